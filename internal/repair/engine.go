package repair

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"scribe/internal/backend"
	"scribe/internal/logging"
	"scribe/internal/services"
	"scribe/internal/transcript"
)

// Extractor cuts an audio window out of a media file.
type Extractor interface {
	ExtractWindow(ctx context.Context, source string, start, end float64, dest string) error
}

// Backends resolves transcribers by kind.
type Backends interface {
	Get(kind backend.Kind) (backend.Transcriber, error)
}

// Request describes the media the transcript was produced from.
// PrimaryBackend is the Name of the transcriber that produced it, with any
// model override applied; backends reporting that name are never rerun.
type Request struct {
	AudioPath      string
	MediaDuration  float64
	WorkDir        string
	Language       string
	PrimaryBackend string
}

// Result summarizes a repair run.
type Result struct {
	Rounds     int
	Ranges     int
	Repaired   int
	Unresolved int
	Skipped    bool
}

// Engine runs detect, merge, and re-transcribe rounds over a transcript.
type Engine struct {
	opts      Options
	selection Selection
	backends  Backends
	extractor Extractor
	logger    *slog.Logger
}

// NewEngine wires an engine. A nil logger discards output.
func NewEngine(opts Options, selection Selection, backends Backends, extractor Extractor, logger *slog.Logger) *Engine {
	if opts.Iterations < 1 {
		opts.Iterations = 1
	}
	return &Engine{
		opts:      opts,
		selection: selection,
		backends:  backends,
		extractor: extractor,
		logger:    logging.NewComponentLogger(logger, "repair"),
	}
}

// Scan clears previous quality tags, runs both detectors, and returns the
// flagged indices in ascending order.
func Scan(segments []transcript.Segment, opts Options) []int {
	flagged := make([]bool, len(segments))
	for i := range segments {
		segments[i].QualityIssues = nil
		if tags := DetectHallucinations(segments[i].Text, opts); len(tags) > 0 {
			segments[i].QualityIssues = append(segments[i].QualityIssues, tags...)
			flagged[i] = true
		}
	}
	for _, flag := range DetectGapsAndDensity(segments, opts) {
		segments[flag.Index].QualityIssues = append(segments[flag.Index].QualityIssues, flag.Tag)
		flagged[flag.Index] = true
	}
	var indices []int
	for i, ok := range flagged {
		if ok {
			indices = append(indices, i)
		}
	}
	return indices
}

// Run repairs segments in place. Backend failures are recorded on the affected
// segments; only context cancellation returns an error.
func (e *Engine) Run(ctx context.Context, segments []transcript.Segment, req Request) (Result, error) {
	logger := logging.WithContext(ctx, e.logger)
	var result Result
	if len(segments) == 0 {
		return result, nil
	}
	if _, err := os.Stat(req.AudioPath); err != nil {
		logging.WarnWithContext(logger, "audio unavailable; skipping repair", "repair_skipped",
			logging.String("audio_path", req.AudioPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check the downloads directory and media fetcher logs"),
			logging.String(logging.FieldImpact, "transcript passes through without repair"),
		)
		result.Skipped = true
		return result, nil
	}
	workDir := req.WorkDir
	if workDir == "" {
		workDir = filepath.Dir(req.AudioPath)
	}
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return result, fmt.Errorf("repair work dir: %w", err)
	}

	for round := 1; round <= e.opts.Iterations; round++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		indices := Scan(segments, e.opts)
		spans := MergeAndExpand(indices, len(segments), e.opts.MergeTolerance, e.opts.Expand)
		ranges := BuildRanges(segments, spans)
		if len(ranges) == 0 {
			logger.Info("no quality issues found", logging.Int("round", round), logging.Event("repair_clean"))
			break
		}
		result.Rounds = round
		result.Ranges += len(ranges)
		logger.Info("repair round started",
			logging.Int("round", round),
			logging.Int("flagged_segments", len(indices)),
			logging.Int("ranges", len(ranges)),
			logging.Event("repair_round"),
		)

		for _, r := range ranges {
			if err := ctx.Err(); err != nil {
				return result, err
			}
			kind, transcriber, err := e.resolve(r.Tags, round, req.PrimaryBackend)
			var alt []transcript.Segment
			if err == nil {
				alt, err = e.retranscribe(ctx, r, transcriber, round, workDir, req)
			}
			if err != nil {
				markUnresolved(segments, r, err)
				result.Unresolved++
				logging.WarnWithContext(logger, "range re-transcription failed", "repair_range_failed",
					logging.String(logging.FieldBackend, kind.String()),
					logging.Int("round", round),
					logging.TimeSpan("window", r.StartTime, r.EndTime),
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check the backend binary and worker log"),
					logging.String(logging.FieldImpact, "segments kept their original text and are marked unresolved"),
				)
				continue
			}
			appendCandidate(segments, r, transcript.Candidate{Backend: kind.String(), Round: round, Segments: alt})
			result.Repaired++
			logger.Debug("range re-transcribed",
				logging.String(logging.FieldBackend, kind.String()),
				logging.Int("round", round),
				logging.Int("start_index", r.StartIndex),
				logging.Int("end_index", r.EndIndex),
				logging.Int("alternative_segments", len(alt)),
			)
		}
	}
	return result, nil
}

// resolve returns the first candidate backend that is not the model which
// produced the transcript.
func (e *Engine) resolve(tags []string, round int, primary string) (backend.Kind, backend.Transcriber, error) {
	candidates := e.selection.Candidates(tags, round)
	for _, kind := range candidates {
		transcriber, err := e.backends.Get(kind)
		if err != nil {
			return kind, nil, services.Wrap(services.ErrRepairBackend, "repair", "resolve backend", kind.String(), err)
		}
		if primary != "" && transcriber.Name() == primary {
			continue
		}
		return kind, transcriber, nil
	}
	return candidates[0], nil, services.Wrap(services.ErrRepairBackend, "repair", "resolve backend",
		"every candidate runs the primary model "+primary, nil)
}

func (e *Engine) retranscribe(ctx context.Context, r transcript.IssueRange, transcriber backend.Transcriber, round int, workDir string, req Request) ([]transcript.Segment, error) {
	start, end := AudioWindow(r, e.opts.Padding, req.MediaDuration)
	if end <= start {
		return nil, services.Wrap(services.ErrRepairBackend, "repair", "audio window",
			fmt.Sprintf("empty window %.2f-%.2f", start, end), nil)
	}
	windowPath := filepath.Join(workDir, fmt.Sprintf("repair_r%d_%04d_%04d.wav", round, r.StartIndex, r.EndIndex))
	defer os.Remove(windowPath)

	if err := e.extractor.ExtractWindow(ctx, req.AudioPath, start, end, windowPath); err != nil {
		return nil, services.Wrap(services.ErrRepairBackend, "repair", "extract window", "", err)
	}
	segments, err := transcriber.Transcribe(ctx, windowPath, backend.Options{Language: req.Language, WorkDir: workDir})
	if err != nil {
		return nil, services.Wrap(services.ErrRepairBackend, "repair", "transcribe window", transcriber.Name(), err)
	}
	return transcript.Shift(segments, start), nil
}

func appendCandidate(segments []transcript.Segment, r transcript.IssueRange, candidate transcript.Candidate) {
	for i := r.StartIndex; i <= r.EndIndex; i++ {
		c := candidate
		c.Segments = transcript.Clone(candidate.Segments)
		segments[i].Alternatives = append(segments[i].Alternatives, c)
		segments[i].Unresolved = false
		segments[i].RepairError = ""
	}
}

func markUnresolved(segments []transcript.Segment, r transcript.IssueRange, err error) {
	for i := r.StartIndex; i <= r.EndIndex; i++ {
		segments[i].Unresolved = true
		segments[i].RepairError = err.Error()
	}
}
