package queue

import (
	"errors"
	"strings"
	"time"
)

// Status represents the lifecycle of a task.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

var allStatuses = []Status{
	StatusQueued,
	StatusProcessing,
	StatusCompleted,
	StatusFailed,
}

// Priority is the dispatch class of a task. Manual tasks always go first.
type Priority string

const (
	// PriorityManual marks tasks submitted directly by a user.
	PriorityManual Priority = "manual"
	// PriorityTracker marks tasks discovered by channel monitoring.
	PriorityTracker Priority = "tracker"
)

// SourceKind distinguishes remote media references from local files.
type SourceKind string

const (
	SourceRemote SourceKind = "remote"
	SourceLocal  SourceKind = "local"
)

// Mode selects local or hosted transcription.
type Mode string

const (
	ModeLocal Mode = "local"
	ModeCloud Mode = "cloud"
)

// ErrTaskNotFound is returned when a mutation targets an unknown task id.
var ErrTaskNotFound = errors.New("task not found")

// Source points at the media a task transcribes.
type Source struct {
	Kind SourceKind
	Ref  string
}

// Diagnostic is the structured failure payload attached to a task.
type Diagnostic struct {
	Message    string    `json:"message"`
	Trace      string    `json:"trace,omitempty"`
	Origin     string    `json:"origin"`
	ExitCode   int       `json:"exit_code,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// Diagnostic origins.
const (
	OriginWorker    = "worker"
	OriginScheduler = "scheduler"
	OriginReaper    = "reaper"
)

// Task represents a transcription task persisted in SQLite.
type Task struct {
	ID          string
	Status      Status
	Priority    Priority
	Source      Source
	Mode        Mode
	Title       string
	Description string
	SourceID    string
	Model       string
	RetryCount  int
	Diagnostic  *Diagnostic
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTaskParams describes a task submission. ID and CreatedAt are optional.
type NewTaskParams struct {
	ID          string
	Priority    Priority
	Source      Source
	Mode        Mode
	Title       string
	Description string
	SourceID    string
	Model       string
	CreatedAt   time.Time
}

// HealthSummary aggregates queue counts for diagnostics.
type HealthSummary struct {
	Total          int
	Queued         int
	Processing     int
	Completed      int
	Failed         int
	StaleQueued    int
	StaleRunning   int
	RetryExhausted int
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, status := range allStatuses {
		if status == normalized {
			return status, true
		}
	}
	return "", false
}

// ParsePriority converts a string into a Priority.
func ParsePriority(value string) (Priority, bool) {
	switch Priority(strings.ToLower(strings.TrimSpace(value))) {
	case PriorityManual:
		return PriorityManual, true
	case PriorityTracker:
		return PriorityTracker, true
	default:
		return "", false
	}
}

// ParseMode converts a string into a Mode.
func ParseMode(value string) (Mode, bool) {
	switch Mode(strings.ToLower(strings.TrimSpace(value))) {
	case ModeLocal:
		return ModeLocal, true
	case ModeCloud:
		return ModeCloud, true
	default:
		return "", false
	}
}

// IsTerminal reports whether the status ends the task lifecycle.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// SourceFromRef classifies a reference as remote (http/https URL) or local.
func SourceFromRef(ref string) Source {
	ref = strings.TrimSpace(ref)
	lower := strings.ToLower(ref)
	if strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return Source{Kind: SourceRemote, Ref: ref}
	}
	return Source{Kind: SourceLocal, Ref: ref}
}
