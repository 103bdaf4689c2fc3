package scheduler

import (
	"context"
	"fmt"
	"time"

	"scribe/internal/logging"
	"scribe/internal/queue"
	"scribe/internal/results"
)

// ReapResult lists the tasks a sweep force-failed.
type ReapResult struct {
	Processing []string
	Queued     []string
}

// Total returns the number of reaped tasks.
func (r ReapResult) Total() int {
	return len(r.Processing) + len(r.Queued)
}

func (s *Scheduler) reapLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.opts.ReaperInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Reap(ctx); err != nil && ctx.Err() == nil {
				logging.WarnWithContext(s.logger, "reaper sweep failed", "reaper_failed",
					logging.Error(err),
					logging.String(logging.FieldErrorHint, "check queue database access"),
					logging.String(logging.FieldImpact, "stuck tasks stay in place until the next sweep"),
				)
			}
		}
	}
}

// Reap force-fails processing tasks older than ProcessingTimeout and queued
// tasks older than QueuedTimeout. Age is measured from created_at. Workers
// are never signalled.
func (s *Scheduler) Reap(ctx context.Context) (ReapResult, error) {
	var result ReapResult
	now := s.now()
	if s.opts.ProcessingTimeout > 0 {
		ids, err := s.store.FailStuck(ctx, queue.StatusProcessing, now.Add(-s.opts.ProcessingTimeout))
		if err != nil {
			return result, err
		}
		result.Processing = ids
		s.recordReaped(ctx, ids, queue.StatusProcessing, s.opts.ProcessingTimeout)
	}
	if s.opts.QueuedTimeout > 0 {
		ids, err := s.store.FailStuck(ctx, queue.StatusQueued, now.Add(-s.opts.QueuedTimeout))
		if err != nil {
			return result, err
		}
		result.Queued = ids
		s.recordReaped(ctx, ids, queue.StatusQueued, s.opts.QueuedTimeout)
	}
	if result.Total() > 0 {
		s.logger.Info("reaper sweep failed stuck tasks",
			logging.Int("processing", len(result.Processing)),
			logging.Int("queued", len(result.Queued)),
			logging.Event("reaper_sweep"),
		)
	}
	return result, nil
}

func (s *Scheduler) recordReaped(ctx context.Context, ids []string, status queue.Status, limit time.Duration) {
	message := fmt.Sprintf("stuck in %s longer than %s", status, limit)
	recordedAt := s.now().UTC()
	for _, id := range ids {
		logger := s.logger.With(logging.String(logging.FieldTaskID, id))
		logging.WarnWithContext(logger, "task reaped", "task_reaped",
			logging.String("status", string(status)),
			logging.Duration("limit", limit),
			logging.String(logging.FieldErrorHint, "inspect the worker log; the process may still be running"),
			logging.String(logging.FieldImpact, "task marked failed"),
		)
		if _, err := s.store.WriteDiagnostic(ctx, id, queue.Diagnostic{
			Message:    message,
			Origin:     queue.OriginReaper,
			RecordedAt: recordedAt,
		}, false); err != nil {
			logger.Error("failed to write diagnostic", logging.Error(err), logging.Event("queue_update_failed"))
		}
		if !s.sink.HasTracedError(id) {
			if err := s.sink.PutError(id, results.ErrorRecord{
				Message:    message,
				Origin:     queue.OriginReaper,
				RecordedAt: recordedAt,
			}); err != nil {
				logger.Error("failed to write error record", logging.Error(err), logging.Event("result_write_failed"))
			}
		}
		s.putStatus(logger, id, results.StateFailed, 100, 0, message)
	}
}
