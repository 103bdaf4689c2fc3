package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/config"
	"scribe/internal/logging"
	"scribe/internal/services"
)

// Extensions yt-dlp produces for the bestaudio format, in lookup order.
var downloadExtensions = []string{".m4a", ".mp3", ".mp4", ".webm"}

// Fetcher resolves task sources to local audio files.
type Fetcher struct {
	binary       string
	downloadsDir string
	attempts     int
	backoff      time.Duration
	runner       CommandRunner
	sleep        func(time.Duration)
	logger       *slog.Logger
}

// NewFetcher builds a fetcher from the media and path configuration.
func NewFetcher(cfg *config.Config, logger *slog.Logger) *Fetcher {
	attempts := cfg.Media.DownloadAttempts
	if attempts < 1 {
		attempts = 1
	}
	return &Fetcher{
		binary:       cfg.YTDLPBinary(),
		downloadsDir: cfg.Paths.DownloadsDir,
		attempts:     attempts,
		backoff:      5 * time.Second,
		runner:       execRunner,
		sleep:        time.Sleep,
		logger:       logging.NewComponentLogger(logger, "media"),
	}
}

// WithRunner replaces the command runner (for testing).
func (f *Fetcher) WithRunner(runner CommandRunner) *Fetcher {
	if runner != nil {
		f.runner = runner
	}
	return f
}

// WithSleeper replaces the backoff sleep between download attempts (for testing).
func (f *Fetcher) WithSleeper(sleep func(time.Duration)) *Fetcher {
	if sleep != nil {
		f.sleep = sleep
	}
	return f
}

// Acquire returns a local path for ref. Local files must exist. Remote media
// is served from the download cache when present, otherwise downloaded with
// up to the configured number of attempts.
func (f *Fetcher) Acquire(ctx context.Context, ref, sourceID string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", services.Wrap(services.ErrValidation, "media", "acquire", "source reference required", nil)
	}
	if !IsRemote(ref) {
		return acquireLocal(ref)
	}
	if sourceID == "" {
		sourceID = SourceID(ref)
	}
	logger := logging.WithContext(ctx, f.logger)

	if cached, ok := f.cached(sourceID); ok {
		logger.Info("using cached download", logging.String("media_path", cached), logging.Event("download_cache_hit"))
		return cached, nil
	}
	if err := os.MkdirAll(f.downloadsDir, 0o755); err != nil {
		return "", fmt.Errorf("media: ensure downloads dir: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= f.attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		path, err := f.download(ctx, ref, sourceID)
		if err == nil {
			logger.Info("media downloaded",
				logging.String("media_path", path),
				logging.Int("attempt", attempt),
				logging.Event("download_complete"),
			)
			return path, nil
		}
		lastErr = err
		logging.WarnWithContext(logger, "download attempt failed", "download_retry",
			logging.Int("attempt", attempt),
			logging.Int("max_attempts", f.attempts),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check network access and yt-dlp version"),
			logging.String(logging.FieldImpact, "download will be retried"),
		)
		if attempt < f.attempts {
			f.sleep(time.Duration(attempt) * f.backoff)
		}
	}
	return "", services.Wrap(services.ErrExternalTool, "media", "download",
		fmt.Sprintf("%d attempts exhausted", f.attempts), lastErr)
}

func (f *Fetcher) download(ctx context.Context, ref, sourceID string) (string, error) {
	template := filepath.Join(f.downloadsDir, sourceID+".%(ext)s")
	output, err := f.runner(ctx, f.binary,
		"-f", "bestaudio/best",
		"--no-playlist",
		"--quiet",
		"--no-warnings",
		"-o", template,
		"--print", "after_move:filepath",
		ref,
	)
	if err != nil {
		return "", services.Wrap(services.ErrTransient, "media", "yt-dlp", "", err)
	}
	if path := lastLine(string(output)); path != "" {
		if _, statErr := os.Stat(path); statErr == nil {
			return path, nil
		}
	}
	if cached, ok := f.cached(sourceID); ok {
		return cached, nil
	}
	return "", services.Wrap(services.ErrTransient, "media", "yt-dlp", "download produced no audio file", nil)
}

func (f *Fetcher) cached(sourceID string) (string, bool) {
	for _, ext := range downloadExtensions {
		candidate := filepath.Join(f.downloadsDir, sourceID+ext)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() && info.Size() > 0 {
			return candidate, true
		}
	}
	return "", false
}

func acquireLocal(ref string) (string, error) {
	path, err := filepath.Abs(ref)
	if err != nil {
		return "", fmt.Errorf("media: resolve %q: %w", ref, err)
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return "", services.Wrap(services.ErrNotFound, "media", "acquire", path, err)
		}
		return "", fmt.Errorf("media: stat %q: %w", path, err)
	}
	if info.IsDir() {
		return "", services.Wrap(services.ErrValidation, "media", "acquire", path+" is a directory", nil)
	}
	return path, nil
}

func lastLine(output string) string {
	lines := strings.Split(strings.TrimSpace(output), "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		if line := strings.TrimSpace(lines[i]); line != "" {
			return line
		}
	}
	return ""
}
