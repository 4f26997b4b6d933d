package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"versemill/internal/config"
	"versemill/internal/logging"
	"versemill/internal/queue"
)

// Coordinator publishes ready jobs within the daily quota budget.
type Coordinator struct {
	store     *queue.Store
	publisher Publisher
	cfg       *config.Config
	logger    *slog.Logger

	now func() time.Time
}

// Summary reports one publish pass. Failed counts transient upload errors
// that keep the job ready; Rejected counts permanent policy refusals.
type Summary struct {
	Budget        int64
	Considered    int
	Uploaded      int
	Failed        int
	Rejected      int
	SkippedBudget int
}

// NewCoordinator builds a publish coordinator.
func NewCoordinator(store *queue.Store, publisher Publisher, cfg *config.Config, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		store:     store,
		publisher: publisher,
		cfg:       cfg,
		logger:    logging.WithComponent(logger, "publish"),
		now:       time.Now,
	}
}

// RemainingBudget computes the quota units left today from the recorded
// upload count. The budget resets naturally when the counter date rolls
// over.
func (c *Coordinator) RemainingBudget(ctx context.Context) (int64, error) {
	counters, err := c.store.CountersFor(ctx, c.now())
	if err != nil {
		return 0, fmt.Errorf("read daily counters: %w", err)
	}
	spent := int64(counters.Uploaded) * c.cfg.Publish.UploadCost
	remaining := c.cfg.Publish.DailyQuotaUnits - spent
	if remaining < 0 {
		remaining = 0
	}
	return remaining, nil
}

// PublishOne uploads a single ready job by id, subject to the same budget
// check as a full pass.
func (c *Coordinator) PublishOne(ctx context.Context, jobID int64) (Result, error) {
	job, err := c.store.GetByID(ctx, jobID)
	if err != nil {
		return Result{}, err
	}
	if job == nil {
		return Result{}, fmt.Errorf("job %d: %w", jobID, queue.ErrNotFound)
	}
	if job.Status != queue.StatusReady {
		return Result{}, fmt.Errorf("job %d is %s, not %s", jobID, job.Status, queue.StatusReady)
	}

	budget, err := c.RemainingBudget(ctx)
	if err != nil {
		return Result{}, err
	}
	if budget < c.cfg.Publish.UploadCost {
		return Result{}, fmt.Errorf("daily quota budget exhausted: %d units remain, upload costs %d",
			budget, c.cfg.Publish.UploadCost)
	}

	result, pubErr := c.publisher.Publish(ctx, job)
	if pubErr != nil {
		if isPermanentRejection(pubErr) {
			if err := c.store.MarkPublishRejected(ctx, job.ID, c.cfg.Retry.MaxAttempts, pubErr.Error()); err != nil {
				return Result{}, fmt.Errorf("mark job %d publish rejected: %w", job.ID, err)
			}
		} else if err := c.store.RecordPublishFailure(ctx, job.ID, pubErr.Error()); err != nil {
			return Result{}, fmt.Errorf("record publish failure for job %d: %w", job.ID, err)
		}
		return Result{}, pubErr
	}

	if err := c.store.MarkUploaded(ctx, job.ID, result.ID, result.URL); err != nil {
		return Result{}, fmt.Errorf("mark job %d uploaded: %w", job.ID, err)
	}
	if err := c.store.IncrementCounters(ctx, c.now(), 0, 1, 0); err != nil {
		c.logger.Warn("record upload counter", logging.Error(err))
	}
	c.logger.Info("upload complete",
		logging.FieldJobID, job.ID,
		logging.FieldWorkUnit, job.WorkUnitID,
		"published_id", result.ID)
	return result, nil
}

// PublishReady uploads ready jobs oldest first until the daily budget cannot
// cover another upload, bounded by limit when positive. A failed upload
// records the error on the job and moves on; the job stays ready for the
// next pass.
func (c *Coordinator) PublishReady(ctx context.Context, limit int) (Summary, error) {
	budget, err := c.RemainingBudget(ctx)
	if err != nil {
		return Summary{}, err
	}
	summary := Summary{Budget: budget}

	jobs, err := c.store.ReadyOldestFirst(ctx, limit)
	if err != nil {
		return summary, fmt.Errorf("list ready jobs: %w", err)
	}
	summary.Considered = len(jobs)

	for _, job := range jobs {
		if err := ctx.Err(); err != nil {
			return summary, err
		}
		if budget < c.cfg.Publish.UploadCost {
			summary.SkippedBudget = len(jobs) - summary.Uploaded - summary.Failed
			c.logger.Info("daily quota budget exhausted",
				"remaining_budget", budget,
				"upload_cost", c.cfg.Publish.UploadCost,
				"skipped", summary.SkippedBudget)
			break
		}

		jobLogger := c.logger.With(
			logging.FieldJobID, job.ID,
			logging.FieldWorkUnit, job.WorkUnitID,
		)

		result, pubErr := c.publisher.Publish(ctx, job)
		if pubErr != nil {
			if isPermanentRejection(pubErr) {
				summary.Rejected++
				jobLogger.Error("upload rejected permanently", logging.Error(pubErr))
				if err := c.store.MarkPublishRejected(ctx, job.ID, c.cfg.Retry.MaxAttempts, pubErr.Error()); err != nil {
					return summary, fmt.Errorf("mark job %d publish rejected: %w", job.ID, err)
				}
				continue
			}
			summary.Failed++
			jobLogger.Error("upload failed", logging.Error(pubErr))
			if err := c.store.RecordPublishFailure(ctx, job.ID, pubErr.Error()); err != nil {
				return summary, fmt.Errorf("record publish failure for job %d: %w", job.ID, err)
			}
			continue
		}

		if err := c.store.MarkUploaded(ctx, job.ID, result.ID, result.URL); err != nil {
			return summary, fmt.Errorf("mark job %d uploaded: %w", job.ID, err)
		}
		if err := c.store.IncrementCounters(ctx, c.now(), 0, 1, 0); err != nil {
			jobLogger.Warn("record upload counter", logging.Error(err))
		}

		summary.Uploaded++
		budget -= c.cfg.Publish.UploadCost
		jobLogger.Info("upload complete",
			"published_id", result.ID,
			logging.Int64("remaining_budget", budget))
	}

	return summary, nil
}

// isPermanentRejection reports whether a publish error is a policy refusal
// that retrying cannot cure.
func isPermanentRejection(err error) bool {
	var uploadErr *Error
	return errors.As(err, &uploadErr) && !uploadErr.Retryable
}
