package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"versemill/internal/logging"
	"versemill/internal/queue"
)

// Executor runs one production stage against a job and returns the path of
// the asset it produced. Executors must tolerate leftovers from a previous
// attempt: a retry re-runs every stage from the top.
type Executor interface {
	Name() string
	Asset() queue.AssetKind
	Execute(ctx context.Context, job *queue.Job) (string, error)
}

// Runner executes the stage chain for processing jobs.
type Runner struct {
	store     *queue.Store
	executors []Executor
	logger    *slog.Logger

	newRunID func() string
}

// NewRunner builds a runner over the given stage chain. Stage order is the
// order of the slice.
func NewRunner(store *queue.Store, executors []Executor, logger *slog.Logger) *Runner {
	return &Runner{
		store:     store,
		executors: executors,
		logger:    logging.WithComponent(logger, "pipeline"),
		newRunID:  uuid.NewString,
	}
}

// Run drives a processing job through every stage. On success the job moves
// to ready; on the first stage failure it moves to failed with the stage
// error recorded, and the day's error counter is bumped. The returned error
// is a *StageError for stage failures and a plain error for persistence
// problems.
func (r *Runner) Run(ctx context.Context, job *queue.Job) error {
	if job == nil {
		return fmt.Errorf("nil job")
	}

	runLogger := r.logger.With(
		logging.FieldJobID, job.ID,
		logging.FieldWorkUnit, job.WorkUnitID,
		logging.FieldRunID, r.newRunID(),
	)
	started := time.Now()
	runLogger.Info("pipeline run starting", "stages", len(r.executors))

	for _, executor := range r.executors {
		if err := ctx.Err(); err != nil {
			return r.fail(ctx, runLogger, job, &StageError{Stage: executor.Name(), Err: err})
		}

		stageLogger := runLogger.With(logging.FieldStage, executor.Name())
		stageStarted := time.Now()

		path, err := executor.Execute(ctx, job)
		if err != nil {
			stageLogger.Error("stage failed", logging.Error(err))
			return r.fail(ctx, runLogger, job, &StageError{Stage: executor.Name(), Err: err})
		}

		if err := r.store.SetAssetPath(ctx, job.ID, executor.Asset(), path); err != nil {
			return fmt.Errorf("persist %s asset: %w", executor.Asset(), err)
		}
		setJobAsset(job, executor.Asset(), path)
		stageLogger.Info("stage complete",
			"asset", path,
			logging.Duration("elapsed", time.Since(stageStarted)))
	}

	if err := r.store.MarkReady(ctx, job.ID); err != nil {
		return fmt.Errorf("mark job ready: %w", err)
	}
	job.Status = queue.StatusReady

	if err := r.store.IncrementCounters(ctx, time.Now(), 1, 0, 0); err != nil {
		runLogger.Warn("record generated counter", logging.Error(err))
	}
	runLogger.Info("pipeline run complete", logging.Duration("elapsed", time.Since(started)))
	return nil
}

func (r *Runner) fail(ctx context.Context, logger *slog.Logger, job *queue.Job, stageErr *StageError) error {
	if err := r.store.MarkFailed(ctx, job.ID, stageErr.Error()); err != nil {
		return fmt.Errorf("mark job failed after %v: %w", stageErr, err)
	}
	job.Status = queue.StatusFailed
	job.ErrorMessage = stageErr.Error()

	if err := r.store.IncrementCounters(ctx, time.Now(), 0, 0, 1); err != nil {
		logger.Warn("record error counter", logging.Error(err))
	}
	return stageErr
}

func setJobAsset(job *queue.Job, kind queue.AssetKind, path string) {
	switch kind {
	case queue.AssetBackground:
		job.BackgroundPath = path
	case queue.AssetAudio:
		job.AudioPath = path
	case queue.AssetTimestamps:
		job.TimestampsPath = path
	case queue.AssetSubtitles:
		job.SubtitlePath = path
	case queue.AssetFinal:
		job.FinalPath = path
	}
}
