package worker

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"time"

	"scribe/internal/backend"
	"scribe/internal/checkpoint"
	"scribe/internal/correction"
	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/repair"
	"scribe/internal/results"
	"scribe/internal/services"
	"scribe/internal/summary"
	"scribe/internal/testsupport"
	"scribe/internal/transcript"
)

type fakeFetcher struct{ path string }

func (f fakeFetcher) Acquire(context.Context, string, string) (string, error) { return f.path, nil }

type fakeProber struct{ duration float64 }

func (f fakeProber) Duration(context.Context, string) (float64, error) { return f.duration, nil }

type fakeTranscriber struct {
	name     string
	segments []transcript.Segment
	err      error
	calls    int
}

func (f *fakeTranscriber) Transcribe(context.Context, string, backend.Options) ([]transcript.Segment, error) {
	f.calls++
	return transcript.Clone(f.segments), f.err
}

func (f *fakeTranscriber) Name() string { return f.name }

type noopExtractor struct{}

func (noopExtractor) ExtractWindow(context.Context, string, float64, float64, string) error {
	return nil
}

type fakeSummarizer struct{ panicWith string }

func (f fakeSummarizer) Summarize(context.Context, string, string, string) summary.Result {
	if f.panicWith != "" {
		panic(f.panicWith)
	}
	return summary.Result{Summary: "short", Keywords: []string{"go"}}
}

type recordingSink struct {
	*results.FileSink
	statuses []results.Status
}

func (s *recordingSink) PutStatus(id string, status results.Status) error {
	s.statuses = append(s.statuses, status)
	return s.FileSink.PutStatus(id, status)
}

type fixture struct {
	store    *queue.Store
	sink     *recordingSink
	cache    *checkpoint.Cache
	primary  *fakeTranscriber
	fallback *fakeTranscriber
	registry *backend.Registry
	runner   *Runner
	params   Params
}

func newFixture(t *testing.T, summarizer Summarizer) *fixture {
	t.Helper()
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	task := testsupport.NewTask(t, store, "task-1", queue.PriorityManual, time.Now())
	if _, err := store.ClaimNext(context.Background()); err != nil {
		t.Fatalf("ClaimNext: %v", err)
	}

	audio := filepath.Join(cfg.Paths.DownloadsDir, "talk.m4a")
	testsupport.WriteMedia(t, audio, 256)

	fileSink, err := results.NewFileSink(cfg.Paths.ResultsDir)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	sink := &recordingSink{FileSink: fileSink}
	cache := checkpoint.New(cfg.Paths.CacheDir, logging.NewNop())

	primary := &fakeTranscriber{name: "whisperx:large-v3-turbo", segments: []transcript.Segment{
		{Start: 0, End: 3, Text: "Welcome to the show"},
		{Start: 3, End: 5, Text: "用用用用"},
		{Start: 5, End: 8, Text: "today we talk about queues"},
	}}
	fallback := &fakeTranscriber{name: "whisperx:base", segments: []transcript.Segment{{Start: 0, End: 2, Text: "we use"}}}
	registry := backend.NewRegistry()
	registry.Register(backend.KindWhisperX, primary)
	registry.Register(backend.KindWhisperBase, fallback)

	opts := repair.DefaultOptions()
	opts.Iterations = 1
	deps := Dependencies{
		Fetcher:    fakeFetcher{path: audio},
		Prober:     fakeProber{duration: 9},
		Backends:   registry,
		Repairer:   repair.NewEngine(opts, repair.DefaultSelection(backend.KindWhisperX), registry, noopExtractor{}, logging.NewNop()),
		Corrector:  correction.NewProcessor(correction.Options{Enabled: true, ChunkSegments: 10}, nil, logging.NewNop()),
		Summarizer: summarizer,
		Cache:      cache,
		Sink:       sink,
		Store:      store,
		Logger:     logging.NewNop(),
	}
	runner := NewRunner(deps, Settings{
		RepairEnabled: true,
		TempDir:       cfg.Paths.TempDir,
		Pricing:       summary.Pricing{WhisperPerMinute: 0.006},
	})
	return &fixture{
		store:    store,
		sink:     sink,
		cache:    cache,
		primary:  primary,
		fallback: fallback,
		registry: registry,
		runner:   runner,
		params: Params{
			TaskID:    task.ID,
			Mode:      queue.ModeLocal,
			SourceRef: task.Source.Ref,
			SourceID:  "talk",
			Title:     task.Title,
		},
	}
}

func TestRunCompletesPipeline(t *testing.T) {
	f := newFixture(t, fakeSummarizer{})
	ctx := context.Background()

	if err := f.runner.Run(ctx, f.params); err != nil {
		t.Fatalf("Run: %v", err)
	}

	var report Report
	if err := f.sink.ReadResult(f.params.TaskID, &report); err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if report.MediaPath != "talk.m4a" || report.SourceID != "talk" || report.Summary != "short" {
		t.Fatalf("unexpected report header: %+v", report)
	}
	if len(report.Paragraphs) != 1 || !strings.Contains(report.Paragraphs[0].Text, "Welcome") {
		t.Fatalf("unexpected paragraphs: %+v", report.Paragraphs)
	}
	if report.Usage.Duration != 8 || report.Usage.WhisperCost != 0 || report.Usage.Currency != "USD" {
		t.Fatalf("unexpected usage: %+v", report.Usage)
	}
	if report.Repair.Repaired == 0 {
		t.Fatalf("expected a repaired range, got %+v", report.Repair)
	}
	hallucinated := report.RawSegments[1]
	if hallucinated.Text != "用用用用" || len(hallucinated.Alternatives) != 1 || hallucinated.Alternatives[0].Backend != "whisper_base" {
		t.Fatalf("expected original text kept with an alternative, got %+v", hallucinated)
	}

	task, err := f.store.GetByID(ctx, f.params.TaskID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if task.Status != queue.StatusCompleted {
		t.Fatalf("expected completed task, got %s", task.Status)
	}

	progress := make([]int, 0, len(f.sink.statuses))
	for _, s := range f.sink.statuses {
		progress = append(progress, s.Progress)
	}
	if !reflect.DeepEqual(progress, []int{60, 80, 100}) {
		t.Fatalf("unexpected progress sequence %v", progress)
	}
	last := f.sink.statuses[len(f.sink.statuses)-1]
	if last.Status != results.StateCompleted {
		t.Fatalf("expected completed snapshot, got %+v", last)
	}

	var raw []transcript.Segment
	key := checkpoint.Key{SourceID: "talk", Mode: "local", Backend: f.primary.name}
	if !f.cache.Load(key, checkpoint.StageRaw, &raw) || len(raw) != 3 {
		t.Fatalf("expected raw checkpoint, got %+v", raw)
	}
}

func TestRunResumesFromCheckpoint(t *testing.T) {
	f := newFixture(t, fakeSummarizer{})
	ctx := context.Background()
	if err := f.runner.Run(ctx, f.params); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	f.primary.err = errors.New("gpu gone")
	f.primary.calls = 0
	f.fallback.calls = 0
	f.sink.statuses = nil

	if err := f.runner.Run(ctx, f.params); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if f.primary.calls != 0 || f.fallback.calls != 0 {
		t.Fatalf("expected no backend calls on resume, primary=%d fallback=%d", f.primary.calls, f.fallback.calls)
	}
	if f.sink.statuses[0].Progress != progressCached || f.sink.statuses[0].ETA != etaCached {
		t.Fatalf("expected cached snapshot first, got %+v", f.sink.statuses[0])
	}
}

func TestRunUnresolvedRepairIsNotCheckpointed(t *testing.T) {
	f := newFixture(t, fakeSummarizer{})
	f.fallback.err = errors.New("whisperx exited 1")
	ctx := context.Background()

	if err := f.runner.Run(ctx, f.params); err != nil {
		t.Fatalf("first Run: %v", err)
	}
	var report Report
	if err := f.sink.ReadResult(f.params.TaskID, &report); err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	if report.Repair.Unresolved == 0 {
		t.Fatalf("expected unresolved ranges, got %+v", report.Repair)
	}
	key := checkpoint.Key{SourceID: "talk", Mode: "local", Backend: f.primary.name}
	var repaired []transcript.Segment
	if f.cache.Load(key, checkpoint.StageRepaired, &repaired) {
		t.Fatal("partially repaired transcript must not be checkpointed")
	}

	f.fallback.err = nil
	f.fallback.calls = 0
	if err := f.runner.Run(ctx, f.params); err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if f.fallback.calls == 0 {
		t.Fatal("expected failed ranges to be retried on the next run")
	}
	if !f.cache.Load(key, checkpoint.StageRepaired, &repaired) {
		t.Fatal("expected repaired checkpoint once every range resolved")
	}
}

func TestRunModelOverrideIsNotReusedForRepair(t *testing.T) {
	f := newFixture(t, fakeSummarizer{})
	small := &fakeTranscriber{name: "whisperx:small", segments: []transcript.Segment{{Start: 0, End: 2, Text: "we use"}}}
	f.registry.Register(backend.KindWhisperSmall, small)
	f.params.Model = "base"

	if err := f.runner.Run(context.Background(), f.params); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if f.fallback.calls != 0 {
		t.Fatalf("repair reran the primary model %d times", f.fallback.calls)
	}
	if small.calls == 0 {
		t.Fatal("expected the escalation model to repair the range")
	}
	var report Report
	if err := f.sink.ReadResult(f.params.TaskID, &report); err != nil {
		t.Fatalf("ReadResult: %v", err)
	}
	alts := report.RawSegments[1].Alternatives
	if len(alts) != 1 || alts[0].Backend != "whisper_small" {
		t.Fatalf("expected a whisper_small alternative, got %+v", alts)
	}
}

func TestRunPrimaryFailureWritesDiagnostic(t *testing.T) {
	f := newFixture(t, fakeSummarizer{})
	f.primary.err = errors.New("whisperx exited 1")
	ctx := context.Background()

	err := f.runner.Run(ctx, f.params)
	if !errors.Is(err, services.ErrTranscription) {
		t.Fatalf("expected ErrTranscription, got %v", err)
	}
	if !f.sink.HasTracedError(f.params.TaskID) {
		t.Fatal("expected traced error in sink")
	}
	record, _ := f.sink.ReadError(f.params.TaskID)
	if !strings.Contains(record.Trace, "error_class=transcription_backend") || record.Origin != queue.OriginWorker {
		t.Fatalf("unexpected error record: %+v", record)
	}
	task, _ := f.store.GetByID(ctx, f.params.TaskID)
	if task.Diagnostic == nil || task.Diagnostic.Origin != queue.OriginWorker {
		t.Fatalf("expected worker diagnostic in store, got %+v", task.Diagnostic)
	}
	if task.Status != queue.StatusProcessing {
		t.Fatalf("worker must leave the failure transition to the scheduler, got %s", task.Status)
	}
	last := f.sink.statuses[len(f.sink.statuses)-1]
	if last.Status != results.StateFailed || last.Progress != 100 {
		t.Fatalf("unexpected final snapshot %+v", last)
	}
}

func TestRunRecoversPanic(t *testing.T) {
	f := newFixture(t, fakeSummarizer{panicWith: "nil map write"})
	err := f.runner.Run(context.Background(), f.params)
	if !errors.Is(err, services.ErrWorkerCrash) {
		t.Fatalf("expected ErrWorkerCrash, got %v", err)
	}
	record, readErr := f.sink.ReadError(f.params.TaskID)
	if readErr != nil {
		t.Fatalf("ReadError: %v", readErr)
	}
	if !strings.Contains(record.Message, "nil map write") || !strings.Contains(record.Trace, "goroutine") {
		t.Fatalf("expected panic message and stack, got %+v", record)
	}
}

func TestParagraphText(t *testing.T) {
	got := paragraphText([]transcript.Paragraph{
		{Text: "ignored", Sentences: []transcript.Sentence{{Text: "A."}, {Text: "B."}}},
		{Text: "C."},
	})
	if got != "A. B. C." {
		t.Fatalf("unexpected text %q", got)
	}
}
