package media

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"scribe/internal/config"
	"scribe/internal/media/ffprobe"
)

// Extractor cuts audio windows with ffmpeg.
type Extractor struct {
	binary string
	runner CommandRunner
}

// NewExtractor uses the configured ffmpeg binary.
func NewExtractor(cfg *config.Config) *Extractor {
	return &Extractor{binary: cfg.FFmpegBinary(), runner: execRunner}
}

// WithRunner replaces the command runner (for testing).
func (e *Extractor) WithRunner(runner CommandRunner) *Extractor {
	if runner != nil {
		e.runner = runner
	}
	return e
}

// ExtractWindow writes the [start, end) seconds of source to dest as a mono
// 16 kHz PCM WAV file.
func (e *Extractor) ExtractWindow(ctx context.Context, source string, start, end float64, dest string) error {
	if end <= start {
		return fmt.Errorf("extract window: invalid range %.3f-%.3f", start, end)
	}
	if start < 0 {
		start = 0
	}
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("extract window: ensure dir: %w", err)
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-ss", formatSeconds(start),
		"-t", formatSeconds(end - start),
		"-i", source,
		"-vn",
		"-sn",
		"-dn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		dest,
	}
	if _, err := e.runner(ctx, e.binary, args...); err != nil {
		return fmt.Errorf("ffmpeg extract window: %w", err)
	}
	return nil
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 3, 64)
}

// Prober reports media duration through ffprobe.
type Prober struct {
	binary string
	runner ffprobe.Runner
}

// NewProber uses the configured ffprobe binary.
func NewProber(cfg *config.Config) *Prober {
	return &Prober{binary: cfg.FFprobeBinary()}
}

// WithRunner replaces the ffprobe runner (for testing).
func (p *Prober) WithRunner(runner ffprobe.Runner) *Prober {
	p.runner = runner
	return p
}

// Duration returns the media duration in seconds. The file must carry at
// least one audio stream.
func (p *Prober) Duration(ctx context.Context, path string) (float64, error) {
	result, err := ffprobe.Inspect(ctx, p.runner, p.binary, path)
	if err != nil {
		return 0, err
	}
	if result.AudioStreamCount() == 0 {
		return 0, fmt.Errorf("ffprobe: %s has no audio stream", filepath.Base(path))
	}
	return result.DurationSeconds(), nil
}
