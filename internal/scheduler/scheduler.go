package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/results"
	"scribe/internal/services"
)

const (
	claimProgress = 5
	claimETA      = 300
)

// Options controls loop timing, dispatch width, and reaper thresholds.
type Options struct {
	IdleInterval       time.Duration
	ErrorRetryInterval time.Duration
	ReaperInterval     time.Duration
	ProcessingTimeout  time.Duration
	QueuedTimeout      time.Duration
	WorkerSlots        int
}

// OptionsFromConfig converts the second-based scheduler settings.
func OptionsFromConfig(cfg config.Scheduler) Options {
	return Options{
		IdleInterval:       time.Duration(cfg.IdleInterval) * time.Second,
		ErrorRetryInterval: time.Duration(cfg.ErrorRetryInterval) * time.Second,
		ReaperInterval:     time.Duration(cfg.ReaperInterval) * time.Second,
		ProcessingTimeout:  time.Duration(cfg.ProcessingTimeout) * time.Second,
		QueuedTimeout:      time.Duration(cfg.QueuedTimeout) * time.Second,
		WorkerSlots:        cfg.WorkerSlots,
	}
}

// Scheduler claims tasks and dispatches them to workers.
type Scheduler struct {
	store    *queue.Store
	sink     *results.FileSink
	launcher Launcher
	opts     Options
	logger   *slog.Logger

	slots chan struct{}
	wg    sync.WaitGroup
	now   func() time.Time

	mu      sync.Mutex
	running bool
}

// New wires a scheduler. A nil logger discards output.
func New(store *queue.Store, sink *results.FileSink, launcher Launcher, opts Options, logger *slog.Logger) (*Scheduler, error) {
	if store == nil || sink == nil || launcher == nil {
		return nil, errors.New("scheduler requires store, sink, and launcher")
	}
	if opts.WorkerSlots < 1 {
		opts.WorkerSlots = 1
	}
	if opts.IdleInterval <= 0 {
		opts.IdleInterval = 10 * time.Second
	}
	if opts.ErrorRetryInterval <= 0 {
		opts.ErrorRetryInterval = opts.IdleInterval
	}
	return &Scheduler{
		store:    store,
		sink:     sink,
		launcher: launcher,
		opts:     opts,
		logger:   logging.NewComponentLogger(logger, "scheduler"),
		slots:    make(chan struct{}, opts.WorkerSlots),
		now:      time.Now,
	}, nil
}

// SetClock overrides the time source used for reaper cutoffs and diagnostics.
func (s *Scheduler) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Run blocks until ctx is cancelled. In-flight workers are awaited before it
// returns.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("scheduler already running")
	}
	s.running = true
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("scheduler started",
		logging.Int("worker_slots", s.opts.WorkerSlots),
		logging.Duration("idle_interval", s.opts.IdleInterval),
		logging.Duration("reaper_interval", s.opts.ReaperInterval),
		logging.Event("scheduler_started"),
	)

	if s.opts.ReaperInterval > 0 {
		s.wg.Add(1)
		go s.reapLoop(ctx)
	}
	s.claimLoop(ctx)
	s.wg.Wait()

	s.logger.Info("scheduler stopped", logging.Event("scheduler_stopped"))
	return nil
}

func (s *Scheduler) claimLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case s.slots <- struct{}{}:
		}

		task, err := s.store.ClaimNext(ctx)
		if err != nil {
			<-s.slots
			if ctx.Err() != nil {
				return
			}
			s.logger.Error("failed to claim next task",
				logging.Error(err),
				logging.Event("queue_claim_failed"),
				logging.String(logging.FieldErrorHint, "check queue database access"),
			)
			s.wait(ctx, s.opts.ErrorRetryInterval)
			continue
		}
		if task == nil {
			<-s.slots
			s.wait(ctx, s.opts.IdleInterval)
			continue
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer func() { <-s.slots }()
			s.RunTask(context.WithoutCancel(ctx), task)
		}()
	}
}

func (s *Scheduler) wait(ctx context.Context, d time.Duration) {
	select {
	case <-ctx.Done():
	case <-time.After(d):
	}
}

// RunOnce claims a single task and runs it synchronously. It reports whether
// a task was eligible.
func (s *Scheduler) RunOnce(ctx context.Context) (bool, error) {
	task, err := s.store.ClaimNext(ctx)
	if err != nil {
		return false, err
	}
	if task == nil {
		return false, nil
	}
	s.RunTask(ctx, task)
	return true, nil
}

// RunTask launches a worker for a task already transitioned to processing and
// records the failure if the worker does not exit cleanly.
func (s *Scheduler) RunTask(ctx context.Context, task *queue.Task) {
	ctx = services.WithTaskID(ctx, task.ID)
	logger := logging.WithContext(ctx, s.logger)
	// Any traced error after launch must come from this run.
	if err := s.sink.ClearError(task.ID); err != nil {
		logging.WarnWithContext(logger, "stale error diagnostic not cleared", "diagnostic_clear_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "an earlier worker diagnostic may hide this run's failure"),
		)
	}
	s.putStatus(logger, task.ID, results.StateProcessing, claimProgress, claimETA, "worker starting")
	logger.Info("task dispatched",
		logging.String("mode", string(task.Mode)),
		logging.String("priority", string(task.Priority)),
		logging.String("source", task.Source.Ref),
		logging.Event("task_dispatched"),
	)

	started := s.now()
	outcome, err := s.launcher.Launch(ctx, task)
	elapsed := s.now().Sub(started)
	if err == nil && outcome.ExitCode == 0 {
		logger.Info("worker exited cleanly",
			logging.Duration("elapsed", elapsed),
			logging.Event("worker_exited"),
		)
		return
	}
	s.failTask(ctx, logger, task, outcome, err)
}

func (s *Scheduler) failTask(ctx context.Context, logger *slog.Logger, task *queue.Task, outcome Outcome, launchErr error) {
	cause := launchErr
	if cause == nil {
		cause = fmt.Errorf("worker exited with code %d", outcome.ExitCode)
	}
	failure := services.Wrap(services.ErrWorkerCrash, "scheduler", "run worker", "", cause)
	message := failure.Error()
	recordedAt := s.now().UTC()

	logging.ErrorWithContext(logger, "worker failed", "worker_failed",
		logging.Int("exit_code", outcome.ExitCode),
		logging.Error(failure),
		logging.String("stderr_tail", lastLine(outcome.Stderr)),
		logging.String(logging.FieldErrorHint, "inspect the worker log for this task"),
		logging.String(logging.FieldImpact, "task marked failed; the retry sweep may requeue it"),
	)

	if err := s.store.SetStatus(ctx, task.ID, queue.StatusFailed); err != nil {
		logger.Error("failed to mark task failed", logging.Error(err), logging.Event("queue_update_failed"))
	}

	if s.sink.HasTracedError(task.ID) {
		logger.Info("worker diagnostic preserved", logging.Event("diagnostic_preserved"))
	} else if err := s.sink.PutError(task.ID, results.ErrorRecord{
		Message:    message,
		Trace:      outcome.Stderr,
		Origin:     queue.OriginScheduler,
		RecordedAt: recordedAt,
	}); err != nil {
		logger.Error("failed to write error record", logging.Error(err), logging.Event("result_write_failed"))
	}

	if _, err := s.store.WriteDiagnostic(ctx, task.ID, queue.Diagnostic{
		Message:    message,
		Trace:      outcome.Stderr,
		Origin:     queue.OriginScheduler,
		ExitCode:   outcome.ExitCode,
		RecordedAt: recordedAt,
	}, false); err != nil {
		logger.Error("failed to write diagnostic", logging.Error(err), logging.Event("queue_update_failed"))
	}

	s.putStatus(logger, task.ID, results.StateFailed, 100, 0, message)
}

func (s *Scheduler) putStatus(logger *slog.Logger, id, state string, progress, eta int, message string) {
	err := s.sink.PutStatus(id, results.Status{
		Status:    state,
		Progress:  progress,
		ETA:       eta,
		Message:   message,
		UpdatedAt: s.now().UTC(),
	})
	if err != nil {
		logging.WarnWithContext(logger, "status snapshot not written", "status_write_failed",
			logging.String("state", state),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check results_dir permissions"),
			logging.String(logging.FieldImpact, "status readers see a stale snapshot"),
		)
	}
}

func lastLine(text string) string {
	text = strings.TrimSpace(text)
	if idx := strings.LastIndexByte(text, '\n'); idx >= 0 {
		return text[idx+1:]
	}
	return text
}
