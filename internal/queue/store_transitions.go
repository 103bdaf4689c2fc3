package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

const dispatchOrder = `CASE priority_class WHEN 'manual' THEN 0 ELSE 1 END, created_at, id`

// ClaimNext atomically moves the next eligible queued task to processing and
// returns it. Returns nil, nil when nothing is queued.
func (s *Store) ClaimNext(ctx context.Context) (*Task, error) {
	var task *Task
	err := s.retryBusy(ctx, func() error {
		row := s.db.QueryRowContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ?
             WHERE id = (
                 SELECT id FROM tasks WHERE status = ?
                 ORDER BY `+dispatchOrder+`
                 LIMIT 1
             )
             RETURNING `+taskColumns,
			StatusProcessing,
			s.timestamp(),
			StatusQueued,
		)
		claimed, scanErr := scanTask(row)
		if scanErr != nil {
			return scanErr
		}
		task = claimed
		return nil
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim next task: %w", err)
	}
	return task, nil
}

// SetStatus records a status transition.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) error {
	if _, ok := ParseStatus(string(status)); !ok {
		return fmt.Errorf("unknown status %q", status)
	}
	res, err := s.exec(ctx,
		`UPDATE tasks SET status = ?, updated_at = ? WHERE id = ?`,
		status, s.timestamp(), id,
	)
	if err != nil {
		return fmt.Errorf("set status %s for %s: %w", status, id, err)
	}
	return requireAffected(res, id)
}

// IncrementRetry bumps the retry counter and returns the new value.
func (s *Store) IncrementRetry(ctx context.Context, id string) (int, error) {
	var count int
	err := s.retryBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx,
			`UPDATE tasks SET retry_count = retry_count + 1, updated_at = ? WHERE id = ? RETURNING retry_count`,
			s.timestamp(), id,
		).Scan(&count)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("increment retry for %s: %w", id, ErrTaskNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("increment retry for %s: %w", id, err)
	}
	return count, nil
}

// WriteDiagnostic attaches a failure payload. An existing diagnostic is kept
// unless force is set. Reports whether the payload was written.
func (s *Store) WriteDiagnostic(ctx context.Context, id string, diag Diagnostic, force bool) (bool, error) {
	if diag.RecordedAt.IsZero() {
		diag.RecordedAt = s.now().UTC()
	}
	payload, err := json.Marshal(diag)
	if err != nil {
		return false, fmt.Errorf("encode diagnostic: %w", err)
	}
	res, err := s.exec(ctx,
		`UPDATE tasks SET diagnostic_json = ?, updated_at = ?
         WHERE id = ? AND (diagnostic_json IS NULL OR diagnostic_json = '' OR ?)`,
		string(payload), s.timestamp(), id, force,
	)
	if err != nil {
		return false, fmt.Errorf("write diagnostic for %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if affected > 0 {
		return true, nil
	}
	existing, err := s.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	if existing == nil {
		return false, fmt.Errorf("write diagnostic for %s: %w", id, ErrTaskNotFound)
	}
	return false, nil
}

func requireAffected(res sql.Result, id string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%s: %w", id, ErrTaskNotFound)
	}
	return nil
}
