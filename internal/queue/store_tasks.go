package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// NewTask inserts a queued task. Missing ids are generated and missing
// priorities default to manual.
func (s *Store) NewTask(ctx context.Context, params NewTaskParams) (*Task, error) {
	if strings.TrimSpace(params.Source.Ref) == "" {
		return nil, errors.New("task source is required")
	}
	id := strings.TrimSpace(params.ID)
	if id == "" {
		id = uuid.NewString()
	}
	priority := params.Priority
	if priority == "" {
		priority = PriorityManual
	}
	if _, ok := ParsePriority(string(priority)); !ok {
		return nil, fmt.Errorf("unknown priority class %q", priority)
	}
	mode := params.Mode
	if mode == "" {
		mode = ModeLocal
	}
	if _, ok := ParseMode(string(mode)); !ok {
		return nil, fmt.Errorf("unknown mode %q", mode)
	}
	kind := params.Source.Kind
	if kind == "" {
		kind = SourceFromRef(params.Source.Ref).Kind
	}

	created := s.timestamp()
	if !params.CreatedAt.IsZero() {
		created = formatTime(params.CreatedAt)
	}
	now := s.timestamp()

	if _, err := s.exec(ctx,
		`INSERT INTO tasks (id, status, priority_class, source_kind, source_ref, mode, title, description, source_id, model, retry_count, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		id,
		StatusQueued,
		priority,
		kind,
		strings.TrimSpace(params.Source.Ref),
		mode,
		nullableString(params.Title),
		nullableString(params.Description),
		nullableString(params.SourceID),
		nullableString(params.Model),
		created,
		now,
	); err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID fetches a task. Returns nil, nil when the id is unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// List returns tasks in dispatch order, optionally filtered by status.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks`
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		query += ` WHERE status IN (` + makePlaceholders(len(statuses)) + `)`
		for _, status := range statuses {
			args = append(args, status)
		}
	}
	query += ` ORDER BY ` + dispatchOrder
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return scanTasks(rows)
}
