package retry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"versemill/internal/logging"
	"versemill/internal/pipeline"
	"versemill/internal/queue"
)

// Manager drives retry sweeps over failed jobs.
type Manager struct {
	store       *queue.Store
	runner      *pipeline.Runner
	maxAttempts int
	logger      *slog.Logger
}

// Summary reports one sweep's outcome.
type Summary struct {
	Scanned     int
	Retried     int
	Succeeded   int
	StillFailed int
}

// NewManager builds a retry manager with the given attempt ceiling.
func NewManager(store *queue.Store, runner *pipeline.Runner, maxAttempts int, logger *slog.Logger) *Manager {
	return &Manager{
		store:       store,
		runner:      runner,
		maxAttempts: maxAttempts,
		logger:      logging.WithComponent(logger, "retry"),
	}
}

// Sweep resubmits every retry-eligible failed job, bounded by limit when
// positive. Each resubmission increments the job's retry count once,
// whether or not the rerun succeeds; a job whose count reaches the ceiling
// stays failed permanently.
func (m *Manager) Sweep(ctx context.Context, limit int) (Summary, error) {
	jobs, err := m.store.FailedForRetry(ctx, m.maxAttempts, limit)
	if err != nil {
		return Summary{}, fmt.Errorf("list retryable jobs: %w", err)
	}

	summary := Summary{Scanned: len(jobs)}
	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		requeued, err := m.store.RequeueForRetry(ctx, job.ID, m.maxAttempts)
		if err != nil {
			return summary, fmt.Errorf("requeue job %d: %w", job.ID, err)
		}
		if !requeued {
			// Another process got there first or the ceiling was hit
			// between listing and requeueing.
			continue
		}
		summary.Retried++

		fresh, err := m.store.GetByID(ctx, job.ID)
		if err != nil {
			return summary, fmt.Errorf("reload job %d: %w", job.ID, err)
		}
		if fresh == nil {
			continue
		}

		m.logger.Info("retrying job",
			logging.FieldJobID, fresh.ID,
			logging.FieldWorkUnit, fresh.WorkUnitID,
			"attempt", fresh.RetryCount)

		runErr := m.runner.Run(ctx, fresh)
		switch {
		case runErr == nil:
			summary.Succeeded++
		default:
			var stageErr *pipeline.StageError
			if !errors.As(runErr, &stageErr) {
				return summary, runErr
			}
			summary.StillFailed++
		}
	}

	m.logger.Info("retry sweep complete",
		"scanned", summary.Scanned,
		"retried", summary.Retried,
		"succeeded", summary.Succeeded,
		"still_failed", summary.StillFailed)
	return summary, nil
}
