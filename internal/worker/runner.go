package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"scribe/internal/backend"
	"scribe/internal/checkpoint"
	"scribe/internal/correction"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/repair"
	"scribe/internal/results"
	"scribe/internal/services"
	"scribe/internal/summary"
	"scribe/internal/transcript"
)

// Pipeline stage names used in logs and contexts.
const (
	StageAcquire    = "acquire"
	StageTranscribe = "transcribe"
	StageRepair     = "repair"
	StageCorrect    = "correct"
	StageSummarize  = "summarize"
	StagePersist    = "persist"
)

// Status snapshot progress points.
const (
	progressCached     = 50
	progressTranscribe = 60
	progressCorrect    = 80
	progressDone       = 100

	etaCached     = 5
	etaCloud      = 25
	etaLocal      = 120
	etaCorrection = 10
)

// Dependencies are the collaborators a Runner drives.
type Dependencies struct {
	Fetcher    Fetcher
	Prober     Prober
	Backends   Backends
	Repairer   Repairer
	Corrector  Corrector
	Summarizer Summarizer
	Cache      *checkpoint.Cache
	Sink       Sink
	Store      TaskStore
	Logger     *slog.Logger
}

// Settings are the config values the pipeline reads directly.
type Settings struct {
	RepairEnabled bool
	Language      string
	TempDir       string
	Pricing       summary.Pricing
}

// Runner executes the pipeline for one task.
type Runner struct {
	deps     Dependencies
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
}

// NewRunner wires a runner from explicit collaborators.
func NewRunner(deps Dependencies, settings Settings) *Runner {
	return &Runner{
		deps:     deps,
		settings: settings,
		logger:   logging.NewComponentLogger(deps.Logger, "worker"),
		now:      time.Now,
	}
}

// Run executes every stage for params. On failure the diagnostic is already
// persisted when Run returns, and the returned error is non-nil so the
// process exits non-zero.
func (r *Runner) Run(ctx context.Context, params Params) (err error) {
	if strings.TrimSpace(params.TaskID) == "" {
		return services.Wrap(services.ErrValidation, "worker", "run", "task id required", nil)
	}
	if params.Mode == "" {
		params.Mode = queue.ModeLocal
	}
	ctx = services.WithTaskID(ctx, params.TaskID)
	logger := logging.WithContext(ctx, r.logger)

	defer func() {
		if recovered := recover(); recovered != nil {
			err = services.Wrap(services.ErrWorkerCrash, "worker", "panic", fmt.Sprint(recovered), nil)
			r.recordFailure(ctx, logger, params.TaskID, err, string(debug.Stack()))
		}
	}()

	if clearErr := r.deps.Sink.ClearError(params.TaskID); clearErr != nil {
		logging.WarnWithContext(logger, "stale error diagnostic not cleared", "diagnostic_clear_failed",
			logging.Error(clearErr),
			logging.String(logging.FieldImpact, "an earlier diagnostic may be reported if this run fails without one"),
		)
	}

	logger.Info("task started",
		logging.String("mode", string(params.Mode)),
		logging.String("source", params.SourceRef),
		logging.Event("task_start"),
	)
	report, runErr := r.execute(ctx, logger, params)
	if runErr != nil {
		r.recordFailure(ctx, logger, params.TaskID, runErr, failureTrace(runErr))
		return runErr
	}
	logger.Info("task completed",
		logging.Int("paragraphs", len(report.Paragraphs)),
		logging.Float64("total_cost", report.Usage.TotalCost),
		logging.Event("task_complete"),
	)
	return nil
}

func (r *Runner) execute(ctx context.Context, logger *slog.Logger, params Params) (Report, error) {
	sourceID := params.SourceID
	if sourceID == "" {
		sourceID = params.TaskID
	}

	stageCtx := withStage(ctx, StageAcquire)
	mediaPath, err := r.deps.Fetcher.Acquire(stageCtx, params.SourceRef, sourceID)
	if err != nil {
		return Report{}, fmt.Errorf("acquire media: %w", err)
	}

	kind := primaryKind(params.Mode)
	transcriber, err := r.deps.Backends.Get(kind)
	if err != nil {
		return Report{}, services.Wrap(services.ErrTranscription, StageTranscribe, "resolve backend", kind.String(), err)
	}
	backendName := transcriber.Name()
	if params.Model != "" {
		backendName = kind.String() + ":" + params.Model
	}
	key := checkpoint.Key{SourceID: sourceID, Mode: string(params.Mode), Backend: backendName}
	workDir := filepath.Join(r.settings.TempDir, params.TaskID)

	segments, stats, err := r.transcribeAndRepair(ctx, params, key, transcriber, mediaPath, workDir)
	if err != nil {
		return Report{}, err
	}

	stageCtx = withStage(ctx, StageCorrect)
	r.putStatus(stageCtx, params.TaskID, results.StateProcessing, progressCorrect, etaCorrection, "correcting and segmenting transcript")
	corrected, err := r.correct(stageCtx, params, key, segments)
	if err != nil {
		return Report{}, err
	}

	stageCtx = withStage(ctx, StageSummarize)
	sum := r.deps.Summarizer.Summarize(stageCtx, paragraphText(corrected.Paragraphs), params.Title, params.Description)
	tokens := corrected.Usage
	tokens.Add(sum.Usage)
	usage := summary.ComputeUsage(transcript.Duration(segments), params.Mode == queue.ModeCloud, tokens, r.settings.Pricing)

	report := Report{
		TaskID:      params.TaskID,
		Title:       params.Title,
		Source:      params.SourceRef,
		SourceID:    sourceID,
		Mode:        params.Mode,
		Backend:     backendName,
		MediaPath:   filepath.Base(mediaPath),
		Summary:     sum.Summary,
		Keywords:    sum.Keywords,
		Paragraphs:  corrected.Paragraphs,
		Usage:       usage,
		Repair:      stats,
		RawSegments: segments,
		CompletedAt: r.now().UTC(),
	}
	if report.Keywords == nil {
		report.Keywords = []string{}
	}

	stageCtx = withStage(ctx, StagePersist)
	if err := r.deps.Sink.PutResult(params.TaskID, report); err != nil {
		return Report{}, fmt.Errorf("persist report: %w", err)
	}
	if err := r.deps.Store.SetStatus(stageCtx, params.TaskID, queue.StatusCompleted); err != nil {
		return Report{}, fmt.Errorf("mark task completed: %w", err)
	}
	r.putStatus(stageCtx, params.TaskID, results.StateCompleted, progressDone, 0, "")
	logging.WithContext(stageCtx, logger).Debug("report persisted", logging.String("media_path", report.MediaPath))
	return report, nil
}

// transcribeAndRepair returns repaired segments, preferring checkpoints.
func (r *Runner) transcribeAndRepair(ctx context.Context, params Params, key checkpoint.Key, transcriber backend.Transcriber, mediaPath, workDir string) ([]transcript.Segment, RepairStats, error) {
	stageCtx := withStage(ctx, StageTranscribe)
	logger := logging.WithContext(stageCtx, r.logger)

	var repaired []transcript.Segment
	if r.settings.RepairEnabled && r.deps.Cache.Load(key, checkpoint.StageRepaired, &repaired) {
		r.putStatus(stageCtx, params.TaskID, results.StateProcessing, progressCached, etaCached, "loading cached transcript")
		logger.Info("repaired transcript loaded from checkpoint", logging.Int("segments", len(repaired)), logging.Event("checkpoint_resume"))
		return repaired, RepairStats{Cached: true}, nil
	}

	var segments []transcript.Segment
	if r.deps.Cache.Load(key, checkpoint.StageRaw, &segments) {
		r.putStatus(stageCtx, params.TaskID, results.StateProcessing, progressCached, etaCached, "loading cached transcript")
		logger.Info("raw transcript loaded from checkpoint", logging.Int("segments", len(segments)), logging.Event("checkpoint_resume"))
	} else {
		eta := etaLocal
		if params.Mode == queue.ModeCloud {
			eta = etaCloud
		}
		r.putStatus(stageCtx, params.TaskID, results.StateProcessing, progressTranscribe, eta, "transcribing audio")
		logger.Info("transcription started",
			logging.String(logging.FieldBackend, transcriber.Name()),
			logging.Event("transcription_start"),
		)
		var err error
		segments, err = transcriber.Transcribe(stageCtx, mediaPath, backend.Options{
			Language: r.settings.Language,
			WorkDir:  workDir,
			Model:    params.Model,
		})
		if err != nil {
			return nil, RepairStats{}, services.Wrap(services.ErrTranscription, StageTranscribe, "primary pass", transcriber.Name(), err)
		}
		segments = transcript.Normalize(segments)
		r.storeCheckpoint(logger, key, checkpoint.StageRaw, segments)
		logger.Info("transcription completed", logging.Int("segments", len(segments)), logging.Event("transcription_complete"))
	}

	if !r.settings.RepairEnabled {
		return segments, RepairStats{Skipped: true}, nil
	}

	stageCtx = withStage(ctx, StageRepair)
	logger = logging.WithContext(stageCtx, r.logger)
	duration := transcript.Duration(segments)
	if r.deps.Prober != nil {
		probed, err := r.deps.Prober.Duration(stageCtx, mediaPath)
		if err != nil {
			logging.WarnWithContext(logger, "media duration probe failed", "duration_probe_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check ffprobe is installed"),
				logging.String(logging.FieldImpact, "repair windows are clipped to the transcript end"),
			)
		} else if probed > 0 {
			duration = probed
		}
	}
	result, err := r.deps.Repairer.Run(stageCtx, segments, repair.Request{
		AudioPath:      mediaPath,
		MediaDuration:  duration,
		WorkDir:        filepath.Join(workDir, "repair"),
		Language:       r.settings.Language,
		PrimaryBackend: key.Backend,
	})
	if err != nil {
		return nil, RepairStats{}, fmt.Errorf("repair: %w", err)
	}
	stats := RepairStats{
		Rounds:     result.Rounds,
		Ranges:     result.Ranges,
		Repaired:   result.Repaired,
		Unresolved: result.Unresolved,
		Skipped:    result.Skipped,
	}
	// A partial repair is not cached so a rerun can retry the failed ranges.
	if !result.Skipped && result.Unresolved == 0 {
		r.storeCheckpoint(logger, key, checkpoint.StageRepaired, segments)
	}
	return segments, stats, nil
}

func (r *Runner) correct(ctx context.Context, params Params, key checkpoint.Key, segments []transcript.Segment) (correctedCheckpoint, error) {
	logger := logging.WithContext(ctx, r.logger)
	var cached correctedCheckpoint
	if r.deps.Cache.Load(key, checkpoint.StageCorrected, &cached) && len(cached.Paragraphs) > 0 {
		logger.Info("corrected paragraphs loaded from checkpoint", logging.Int("paragraphs", len(cached.Paragraphs)))
		return cached, nil
	}
	result, err := r.deps.Corrector.Process(ctx, segments, correction.Hints{Title: params.Title, Description: params.Description, Language: r.settings.Language})
	if err != nil {
		return correctedCheckpoint{}, fmt.Errorf("correct: %w", err)
	}
	out := correctedCheckpoint{Paragraphs: result.Paragraphs, Usage: result.Usage}
	if out.Paragraphs == nil {
		out.Paragraphs = []transcript.Paragraph{}
	}
	logger.Info("correction completed",
		logging.Int("chunks", result.Chunks),
		logging.Int("fallback_chunks", result.FallbackChunks),
		logging.Int("paragraphs", len(out.Paragraphs)),
		logging.Event("correction_complete"),
	)
	if result.FallbackChunks == 0 {
		r.storeCheckpoint(logger, key, checkpoint.StageCorrected, out)
	}
	return out, nil
}

func (r *Runner) storeCheckpoint(logger *slog.Logger, key checkpoint.Key, stage checkpoint.Stage, value any) {
	if err := r.deps.Cache.Store(key, stage, value); err != nil {
		logging.WarnWithContext(logger, "checkpoint not persisted", "checkpoint_store_failed",
			logging.String(logging.FieldStage, string(stage)),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check free space and permissions on the cache directory"),
			logging.String(logging.FieldImpact, "a retry repeats this stage"),
		)
	}
}

func (r *Runner) putStatus(ctx context.Context, taskID, state string, progress, eta int, message string) {
	err := r.deps.Sink.PutStatus(taskID, results.Status{Status: state, Progress: progress, ETA: eta, Message: message})
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, r.logger), "status snapshot not written", "status_write_failed",
			logging.Error(err),
			logging.String(logging.FieldImpact, "progress display is stale"),
		)
	}
}

// recordFailure writes the diagnostic to the sink and the store. The
// worker-authored record always carries a trace so the scheduler keeps it.
func (r *Runner) recordFailure(ctx context.Context, logger *slog.Logger, taskID string, err error, trace string) {
	message := err.Error()
	logging.ErrorWithContext(logger, "task failed", "task_failed",
		logging.String("error_class", services.Classify(err)),
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "see the worker log and the task diagnostic"),
	)
	recordedAt := r.now().UTC()
	if sinkErr := r.deps.Sink.PutError(taskID, results.ErrorRecord{
		Message:    message,
		Trace:      trace,
		Origin:     queue.OriginWorker,
		RecordedAt: recordedAt,
	}); sinkErr != nil {
		logger.Error("error diagnostic not written", logging.Error(sinkErr))
	}
	// The store may be unreachable when the failure was the store itself.
	if _, storeErr := r.deps.Store.WriteDiagnostic(context.WithoutCancel(ctx), taskID, queue.Diagnostic{
		Message:    message,
		Trace:      trace,
		Origin:     queue.OriginWorker,
		RecordedAt: recordedAt,
	}, false); storeErr != nil && !errors.Is(storeErr, queue.ErrTaskNotFound) {
		logger.Error("task diagnostic not written", logging.Error(storeErr))
	}
	r.putStatus(ctx, taskID, results.StateFailed, progressDone, 0, services.Classify(err))
}

func failureTrace(err error) string {
	var b strings.Builder
	fmt.Fprintf(&b, "error_class=%s\n", services.Classify(err))
	for depth := 0; err != nil; depth++ {
		fmt.Fprintf(&b, "%s%s\n", strings.Repeat("  ", depth), err.Error())
		err = errors.Unwrap(err)
	}
	return strings.TrimRight(b.String(), "\n")
}

func primaryKind(mode queue.Mode) backend.Kind {
	if mode == queue.ModeCloud {
		return backend.KindCloud
	}
	return backend.KindWhisperX
}

// withStage tags ctx with the stage name and a fresh correlation id.
func withStage(ctx context.Context, stage string) context.Context {
	return services.WithRequestID(services.WithStage(ctx, stage), uuid.NewString())
}

func paragraphText(paragraphs []transcript.Paragraph) string {
	parts := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		if len(p.Sentences) == 0 {
			parts = append(parts, p.Text)
			continue
		}
		for _, s := range p.Sentences {
			parts = append(parts, s.Text)
		}
	}
	return strings.TrimSpace(strings.Join(parts, " "))
}
