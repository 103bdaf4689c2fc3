package backend

import (
	"context"
	"fmt"
	"sync"

	"scribe/internal/transcript"
)

// Options carries per-call transcription hints.
type Options struct {
	Language string
	// WorkDir receives intermediate files produced by command-line backends.
	WorkDir string
	// Model overrides the backend's configured model when set.
	Model string
}

// Transcriber is the speech recognition capability.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string, opts Options) ([]transcript.Segment, error)
	// Name identifies the concrete model, e.g. "whisperx:large-v3-turbo".
	Name() string
}

// Registry maps backend kinds to constructed transcribers.
type Registry struct {
	mu       sync.RWMutex
	backends map[Kind]Transcriber
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[Kind]Transcriber)}
}

// Register installs or replaces the transcriber for kind.
func (r *Registry) Register(kind Kind, t Transcriber) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[kind] = t
}

// Get returns the transcriber for kind.
func (r *Registry) Get(kind Kind) (Transcriber, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.backends[kind]
	if !ok || t == nil {
		return nil, fmt.Errorf("backend %s not registered", kind)
	}
	return t, nil
}

// Has reports whether kind is registered.
func (r *Registry) Has(kind Kind) bool {
	_, err := r.Get(kind)
	return err == nil
}
