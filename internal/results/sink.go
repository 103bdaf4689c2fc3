package results

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"scribe/internal/fileutil"
	"scribe/internal/textutil"
)

// Status snapshot values written by the worker and scheduler.
const (
	StateProcessing = "processing"
	StateCompleted  = "completed"
	StateFailed     = "failed"
)

// Status is the progress snapshot for a task.
type Status struct {
	Status    string    `json:"status"`
	Progress  int       `json:"progress"`
	ETA       int       `json:"eta"`
	Message   string    `json:"message,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ErrorRecord is the failure diagnostic for a task. Trace is for operators.
type ErrorRecord struct {
	Message    string    `json:"message"`
	Trace      string    `json:"trace,omitempty"`
	Origin     string    `json:"origin,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// FileSink stores per-task artifacts under a single directory.
type FileSink struct {
	dir string
	now func() time.Time
}

// NewFileSink creates the results directory if needed.
func NewFileSink(dir string) (*FileSink, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("results directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure results directory: %w", err)
	}
	return &FileSink{dir: dir, now: time.Now}, nil
}

// Dir returns the results directory.
func (s *FileSink) Dir() string {
	return s.dir
}

// ResultPath returns the report location for a task.
func (s *FileSink) ResultPath(id string) string {
	return filepath.Join(s.dir, fileStem(id)+".json")
}

// StatusPath returns the status snapshot location for a task.
func (s *FileSink) StatusPath(id string) string {
	return filepath.Join(s.dir, fileStem(id)+"_status.json")
}

// ErrorPath returns the error diagnostic location for a task.
func (s *FileSink) ErrorPath(id string) string {
	return filepath.Join(s.dir, fileStem(id)+"_error.json")
}

// PutResult writes the final report.
func (s *FileSink) PutResult(id string, report any) error {
	if err := fileutil.WriteJSON(s.ResultPath(id), report); err != nil {
		return fmt.Errorf("put result %s: %w", id, err)
	}
	return nil
}

// PutStatus writes a progress snapshot.
func (s *FileSink) PutStatus(id string, status Status) error {
	if status.UpdatedAt.IsZero() {
		status.UpdatedAt = s.now().UTC()
	}
	if err := fileutil.WriteJSON(s.StatusPath(id), status); err != nil {
		return fmt.Errorf("put status %s: %w", id, err)
	}
	return nil
}

// PutError writes a failure diagnostic, replacing any previous one.
func (s *FileSink) PutError(id string, record ErrorRecord) error {
	if record.RecordedAt.IsZero() {
		record.RecordedAt = s.now().UTC()
	}
	if err := fileutil.WriteJSON(s.ErrorPath(id), record); err != nil {
		return fmt.Errorf("put error %s: %w", id, err)
	}
	return nil
}

// ReadResult decodes the report for a task into target.
func (s *FileSink) ReadResult(id string, target any) error {
	return fileutil.ReadJSON(s.ResultPath(id), target)
}

// ReadStatus returns the latest status snapshot.
func (s *FileSink) ReadStatus(id string) (Status, error) {
	var status Status
	err := fileutil.ReadJSON(s.StatusPath(id), &status)
	return status, err
}

// ReadError returns the error diagnostic.
func (s *FileSink) ReadError(id string) (ErrorRecord, error) {
	var record ErrorRecord
	err := fileutil.ReadJSON(s.ErrorPath(id), &record)
	return record, err
}

// HasTracedError reports whether a worker-authored diagnostic with a trace exists.
func (s *FileSink) HasTracedError(id string) bool {
	record, err := s.ReadError(id)
	if err != nil {
		return false
	}
	return strings.TrimSpace(record.Trace) != ""
}

// ClearError removes a stale diagnostic before a retried run.
func (s *FileSink) ClearError(id string) error {
	err := os.Remove(s.ErrorPath(id))
	if err != nil && !fileutil.IsNotExist(err) {
		return fmt.Errorf("clear error %s: %w", id, err)
	}
	return nil
}

// fileStem keeps path separators out of file names while leaving ordinary
// ids (uuids, video ids) untouched.
func fileStem(id string) string {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" || strings.ContainsAny(trimmed, `/\`) || trimmed == "." || trimmed == ".." {
		return textutil.SanitizeToken(trimmed)
	}
	return trimmed
}
