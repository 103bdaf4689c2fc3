package queue

import (
	"context"
	"fmt"
	"time"
)

// FailStuck force-fails tasks in the given status whose created_at is older than
// cutoff and returns their ids. Running workers are never signalled.
func (s *Store) FailStuck(ctx context.Context, status Status, cutoff time.Time) ([]string, error) {
	var ids []string
	err := s.retryBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`UPDATE tasks SET status = ?, updated_at = ?
             WHERE status = ? AND created_at < ?
             RETURNING id`,
			StatusFailed, s.timestamp(), status, formatTime(cutoff),
		)
		if err != nil {
			return err
		}
		ids, err = scanIDs(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("fail stuck %s tasks: %w", status, err)
	}
	return ids, nil
}

// RequeueFailed returns failed tasks with retry budget left to the queue,
// incrementing their retry count and clearing the previous diagnostic.
func (s *Store) RequeueFailed(ctx context.Context, maxRetries int) ([]string, error) {
	var ids []string
	err := s.retryBusy(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`UPDATE tasks SET status = ?, retry_count = retry_count + 1, diagnostic_json = NULL, updated_at = ?
             WHERE status = ? AND retry_count < ?
             RETURNING id`,
			StatusQueued, s.timestamp(), StatusFailed, maxRetries,
		)
		if err != nil {
			return err
		}
		ids, err = scanIDs(rows)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("requeue failed tasks: %w", err)
	}
	return ids, nil
}

// Stats returns a count of tasks grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM tasks GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates queue state for diagnostic output. Stale counts use the
// same created_at cutoffs the reaper applies.
func (s *Store) Health(ctx context.Context, processingCutoff, queuedCutoff time.Time, maxRetries int) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusQueued:
			health.Queued += count
		case StatusProcessing:
			health.Processing += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT
             COALESCE(SUM(CASE WHEN status = ? AND created_at < ? THEN 1 ELSE 0 END), 0),
             COALESCE(SUM(CASE WHEN status = ? AND created_at < ? THEN 1 ELSE 0 END), 0),
             COALESCE(SUM(CASE WHEN status = ? AND retry_count >= ? THEN 1 ELSE 0 END), 0)
         FROM tasks`,
		StatusQueued, formatTime(queuedCutoff),
		StatusProcessing, formatTime(processingCutoff),
		StatusFailed, maxRetries,
	)
	if err := row.Scan(&health.StaleQueued, &health.StaleRunning, &health.RetryExhausted); err != nil {
		return HealthSummary{}, fmt.Errorf("queue health: %w", err)
	}
	return health, nil
}
