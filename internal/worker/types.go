package worker

import (
	"context"
	"time"

	"scribe/internal/backend"
	"scribe/internal/correction"
	"scribe/internal/queue"
	"scribe/internal/repair"
	"scribe/internal/results"
	"scribe/internal/services/llm"
	"scribe/internal/summary"
	"scribe/internal/transcript"
)

// Params is the worker invocation surface passed by the scheduler.
type Params struct {
	TaskID      string
	Mode        queue.Mode
	SourceRef   string
	SourceID    string
	Title       string
	Description string
	Model       string
}

// Fetcher acquires the task's media.
type Fetcher interface {
	Acquire(ctx context.Context, ref, sourceID string) (string, error)
}

// Prober reports media duration.
type Prober interface {
	Duration(ctx context.Context, path string) (float64, error)
}

// Backends resolves transcribers.
type Backends interface {
	Get(kind backend.Kind) (backend.Transcriber, error)
}

// Repairer runs quality repair over a transcript.
type Repairer interface {
	Run(ctx context.Context, segments []transcript.Segment, req repair.Request) (repair.Result, error)
}

// Corrector turns the repaired transcript into paragraphs.
type Corrector interface {
	Process(ctx context.Context, segments []transcript.Segment, hints correction.Hints) (correction.Result, error)
}

// Summarizer derives the summary and keywords.
type Summarizer interface {
	Summarize(ctx context.Context, text, title, description string) summary.Result
}

// Sink is the Result Sink subset the worker writes.
type Sink interface {
	PutResult(id string, report any) error
	PutStatus(id string, status results.Status) error
	PutError(id string, record results.ErrorRecord) error
	ClearError(id string) error
}

// TaskStore is the Task Store subset the worker writes.
type TaskStore interface {
	SetStatus(ctx context.Context, id string, status queue.Status) error
	WriteDiagnostic(ctx context.Context, id string, diag queue.Diagnostic, force bool) (bool, error)
}

// RepairStats summarizes the repair stage in the report.
type RepairStats struct {
	Rounds     int  `json:"rounds"`
	Ranges     int  `json:"ranges"`
	Repaired   int  `json:"repaired"`
	Unresolved int  `json:"unresolved"`
	Skipped    bool `json:"skipped,omitempty"`
	Cached     bool `json:"cached,omitempty"`
}

// Report is the final artifact written to the Result Sink.
type Report struct {
	TaskID      string                 `json:"task_id"`
	Title       string                 `json:"title"`
	Source      string                 `json:"source"`
	SourceID    string                 `json:"source_id"`
	Mode        queue.Mode             `json:"mode"`
	Backend     string                 `json:"backend"`
	MediaPath   string                 `json:"media_path"`
	Summary     string                 `json:"summary"`
	Keywords    []string               `json:"keywords"`
	Paragraphs  []transcript.Paragraph `json:"paragraphs"`
	Usage       summary.Usage          `json:"usage"`
	Repair      RepairStats            `json:"repair"`
	RawSegments []transcript.Segment   `json:"raw_segments"`
	CompletedAt time.Time              `json:"completed_at"`
}

// correctedCheckpoint is the StageCorrected payload.
type correctedCheckpoint struct {
	Paragraphs []transcript.Paragraph `json:"paragraphs"`
	Usage      llm.Usage              `json:"usage"`
}
