package preflight

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"strings"
	"time"

	"github.com/gofrs/flock"
	"golang.org/x/sys/unix"

	"scribe/internal/config"
	"scribe/internal/services/llm"
)

// healthTimeout bounds a single LLM health probe; the check never retries.
const healthTimeout = 30 * time.Second

// CheckLLM sends one tiny JSON completion to verify the endpoint, key, and
// model. A missing key fails without touching the network.
func CheckLLM(ctx context.Context, name string, cfg config.LLMConfig) Result {
	if cfg.APIKey == "" {
		return Result{Name: name, Detail: "API key missing"}
	}
	probeCtx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	client := llm.NewClient(llm.Config{
		APIKey:  cfg.APIKey,
		BaseURL: cfg.BaseURL,
		Model:   cfg.Model,
		Referer: cfg.Referer,
		Title:   cfg.Title,
	}, llm.WithRetryMaxAttempts(1))
	if err := client.HealthCheck(probeCtx); err != nil {
		return Result{Name: name, Detail: summarizeLLMError(err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s reachable", cfg.Model)}
}

// CheckCloudKey reports whether hosted transcription is usable. It never
// calls the API; an audio request costs money.
func CheckCloudKey(cfg *config.Config) Result {
	const name = "Cloud transcription"
	if strings.TrimSpace(cfg.Cloud.APIKey) == "" {
		return Result{Name: name, Detail: "API key missing (set cloud.api_key or OPENAI_API_KEY)"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("model %s", cfg.Cloud.Model)}
}

// CheckDirectoryAccess verifies that path is a directory the current user
// can list and write into.
func CheckDirectoryAccess(name, path string) Result {
	fail := func(reason string) Result {
		return Result{Name: name, Detail: path + ": " + reason}
	}
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return fail("does not exist")
	case err != nil:
		return fail(err.Error())
	case !info.IsDir():
		return fail("not a directory")
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return fail("not writable: " + err.Error())
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSchedulerRunning probes the scheduler lock. Passed means a scheduler
// currently holds it.
func CheckSchedulerRunning(lockPath string) Result {
	const name = "Scheduler"
	if _, err := os.Stat(lockPath); err != nil {
		return Result{Name: name, Detail: "not running"}
	}
	probe := flock.New(lockPath)
	ok, err := probe.TryLock()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("lock probe failed (%v)", err)}
	}
	if ok {
		_ = probe.Unlock()
		return Result{Name: name, Detail: "not running"}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("running (lock %s)", lockPath)}
}

// summarizeLLMError produces a human-readable summary for LLM health check failures.
func summarizeLLMError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "health check timed out (LLM API unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "health check timed out (LLM API unreachable)"
	}
	return err.Error()
}
