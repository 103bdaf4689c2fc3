package services

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrExternalTool  = errors.New("external tool error")
	ErrValidation    = errors.New("validation error")
	ErrConfiguration = errors.New("configuration error")
	ErrNotFound      = errors.New("not found")
	ErrTimeout       = errors.New("timeout")
	ErrTransient     = errors.New("transient failure")

	// ErrTranscription marks a failure of the primary transcription pass. It fails the task.
	ErrTranscription = errors.New("transcription backend error")
	// ErrRepairBackend marks a re-transcription failure scoped to one issue range.
	ErrRepairBackend = errors.New("repair backend error")
	// ErrCorrectionBackend marks a correction failure scoped to one chunk.
	ErrCorrectionBackend = errors.New("correction backend error")
	// ErrWorkerCrash marks a worker process that exited non-zero.
	ErrWorkerCrash = errors.New("worker crash")
)

// Wrap builds an error message that includes stage context while tagging it with
// the provided marker for later classification. The marker should be one of the
// exported sentinel errors above.
func Wrap(marker error, stage, operation, message string, err error) error {
	detail := buildDetail(stage, operation, message)
	if marker == nil {
		marker = ErrTransient
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", marker, detail, err)
	}
	return fmt.Errorf("%w: %s", marker, detail)
}

// IsTaskFatal reports whether err must escalate to a Failed task. Repair and
// correction failures are absorbed at segment or chunk scope.
func IsTaskFatal(err error) bool {
	if err == nil {
		return false
	}
	return !errors.Is(err, ErrRepairBackend) && !errors.Is(err, ErrCorrectionBackend)
}

// Classify returns a short label for the marker carried by err, used in diagnostics.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTranscription):
		return "transcription_backend"
	case errors.Is(err, ErrRepairBackend):
		return "repair_backend"
	case errors.Is(err, ErrCorrectionBackend):
		return "correction_backend"
	case errors.Is(err, ErrWorkerCrash):
		return "worker_crash"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ErrConfiguration):
		return "configuration"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrExternalTool):
		return "external_tool"
	default:
		return "unclassified"
	}
}

func buildDetail(stage, operation, message string) string {
	parts := make([]string, 0, 3)
	for _, part := range []string{stage, operation, message} {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	if len(parts) == 0 {
		return "service failure"
	}
	return strings.Join(parts, ": ")
}
