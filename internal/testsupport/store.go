package testsupport

import (
	"context"
	"testing"
	"time"

	"scribe/internal/config"
	"scribe/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewTask inserts a queued task with the given id, priority, and creation time.
func NewTask(t testing.TB, store *queue.Store, id string, priority queue.Priority, created time.Time) *queue.Task {
	t.Helper()

	task, err := store.NewTask(context.Background(), queue.NewTaskParams{
		ID:        id,
		Priority:  priority,
		Source:    queue.SourceFromRef("/media/" + id + ".m4a"),
		Mode:      queue.ModeLocal,
		Title:     "Task " + id,
		CreatedAt: created,
	})
	if err != nil {
		t.Fatalf("store.NewTask: %v", err)
	}
	return task
}
