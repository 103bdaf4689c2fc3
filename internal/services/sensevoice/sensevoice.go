// Package sensevoice wraps a SenseVoice command-line helper that prints a JSON
// segment list on stdout. The repair engine uses it to recover continuous
// speech in gaps and sparse regions the primary recognizer skipped.
package sensevoice

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"scribe/internal/backend"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// DefaultCommand is the helper executable looked up on PATH.
const DefaultCommand = "sensevoice"

// Runner executes the helper and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// Config selects the helper binary and model.
type Config struct {
	Command     string
	Model       string
	CUDAEnabled bool
}

// Service implements backend.Transcriber on top of the helper.
type Service struct {
	cfg    Config
	runner Runner
}

// NewService builds a SenseVoice backend.
func NewService(cfg Config) *Service {
	if strings.TrimSpace(cfg.Command) == "" {
		cfg.Command = DefaultCommand
	}
	return &Service{cfg: cfg, runner: runCommand}
}

// WithRunner replaces command execution (for testing).
func (s *Service) WithRunner(runner Runner) {
	if runner != nil {
		s.runner = runner
	}
}

// Name identifies the backend.
func (s *Service) Name() string {
	if s.cfg.Model != "" {
		return "sensevoice:" + s.cfg.Model
	}
	return "sensevoice"
}

type helperOutput struct {
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe runs the helper over audioPath.
func (s *Service) Transcribe(ctx context.Context, audioPath string, opts backend.Options) ([]transcript.Segment, error) {
	args := []string{"--audio", audioPath, "--output", "json"}
	if model := firstNonEmpty(opts.Model, s.cfg.Model); model != "" {
		args = append(args, "--model", model)
	}
	if lang := strings.ToLower(strings.TrimSpace(opts.Language)); lang != "" {
		args = append(args, "--language", lang)
	}
	device := "cpu"
	if s.cfg.CUDAEnabled {
		device = "cuda"
	}
	args = append(args, "--device", device)

	out, err := s.runner(ctx, s.cfg.Command, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sensevoice", "run", s.cfg.Command, err)
	}
	var parsed helperOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, services.Wrap(services.ErrExternalTool, "sensevoice", "parse output", summarize(out), err)
	}
	segments := make([]transcript.Segment, 0, len(parsed.Segments))
	for _, seg := range parsed.Segments {
		segments = append(segments, transcript.Segment{Start: seg.Start, End: seg.End, Text: seg.Text})
	}
	return transcript.Normalize(segments), nil
}

func runCommand(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	out, err := cmd.Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(string(exitErr.Stderr)))
		}
		return nil, err
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func summarize(out []byte) string {
	const limit = 160
	text := strings.TrimSpace(string(out))
	if len(text) > limit {
		return text[:limit] + "..."
	}
	return text
}
