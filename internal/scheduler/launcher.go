package scheduler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
)

const defaultStderrTail = 8 << 10

// Outcome is what the scheduler observes of a finished worker.
type Outcome struct {
	ExitCode int
	Stderr   string
}

// Launcher runs one task to completion in an isolated process.
// A non-nil error means the worker could not be started or waited on.
type Launcher interface {
	Launch(ctx context.Context, task *queue.Task) (Outcome, error)
}

// ProcessLauncher execs the scribe binary's worker subcommand.
type ProcessLauncher struct {
	binary     string
	configPath string
	nice       int
	tailBytes  int
	logger     *slog.Logger
}

// NewProcessLauncher resolves the worker binary from config, falling back to
// the running executable.
func NewProcessLauncher(cfg *config.Config, configPath string, logger *slog.Logger) (*ProcessLauncher, error) {
	binary := strings.TrimSpace(cfg.Scheduler.WorkerBinary)
	if binary == "" {
		exe, err := os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve worker binary: %w", err)
		}
		binary = exe
	}
	return &ProcessLauncher{
		binary:     binary,
		configPath: configPath,
		nice:       cfg.Scheduler.WorkerNice,
		tailBytes:  defaultStderrTail,
		logger:     logging.NewComponentLogger(logger, "launcher"),
	}, nil
}

// Binary returns the executable the launcher runs.
func (l *ProcessLauncher) Binary() string {
	return l.binary
}

// Args builds the worker command line for task.
func (l *ProcessLauncher) Args(task *queue.Task) []string {
	args := []string{
		"worker", task.ID, string(task.Mode),
		"--source", task.Source.Ref,
		"--source-id", task.SourceID,
	}
	if task.Title != "" {
		args = append(args, "--title", task.Title)
	}
	if task.Description != "" {
		args = append(args, "--description", task.Description)
	}
	if task.Model != "" {
		args = append(args, "--model", task.Model)
	}
	if l.configPath != "" {
		args = append(args, "--config", l.configPath)
	}
	return args
}

// Launch starts the worker and blocks until it exits. The context is not used
// to kill the child; a running worker is never signalled.
func (l *ProcessLauncher) Launch(ctx context.Context, task *queue.Task) (Outcome, error) {
	if task == nil {
		return Outcome{}, errors.New("task is required")
	}
	stderr := newTailBuffer(l.tailBytes)
	cmd := exec.Command(l.binary, l.Args(task)...) //nolint:gosec,noctx
	cmd.Stderr = stderr
	if err := cmd.Start(); err != nil {
		return Outcome{}, fmt.Errorf("start worker: %w", err)
	}
	logger := logging.WithContext(ctx, l.logger)
	if l.nice != 0 {
		if err := unix.Setpriority(unix.PRIO_PROCESS, cmd.Process.Pid, l.nice); err != nil {
			logging.WarnWithContext(logger, "worker niceness not applied", "worker_nice_failed",
				logging.Int("pid", cmd.Process.Pid),
				logging.Int("nice", l.nice),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "lower scheduler.worker_nice or grant CAP_SYS_NICE"),
				logging.String(logging.FieldImpact, "worker runs at the scheduler's priority"),
			)
		}
	}
	logger.Debug("worker started", logging.Int("pid", cmd.Process.Pid), logging.String("binary", l.binary))

	err := cmd.Wait()
	outcome := Outcome{Stderr: stderr.String()}
	if err == nil {
		return outcome, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		// Signal deaths report -1.
		outcome.ExitCode = exitErr.ExitCode()
		return outcome, nil
	}
	return outcome, fmt.Errorf("wait for worker: %w", err)
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	mu    sync.Mutex
	limit int
	buf   []byte
}

func newTailBuffer(limit int) *tailBuffer {
	if limit <= 0 {
		limit = defaultStderrTail
	}
	return &tailBuffer{limit: limit}
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return len(p), nil
}

func (t *tailBuffer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return string(bytes.TrimSpace(t.buf))
}
