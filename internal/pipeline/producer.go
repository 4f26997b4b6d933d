package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"versemill/internal/catalog"
	"versemill/internal/logging"
	"versemill/internal/queue"
	"versemill/internal/selector"
)

// Producer couples work-unit selection with pipeline execution.
type Producer struct {
	selector *selector.Selector
	runner   *Runner
	store    *queue.Store
	logger   *slog.Logger
}

// BatchSummary reports the outcome of one generation batch.
type BatchSummary struct {
	Requested int
	Succeeded int
	Failed    int
	Exhausted bool
}

// NewProducer builds a producer over the selector and runner.
func NewProducer(sel *selector.Selector, runner *Runner, store *queue.Store, logger *slog.Logger) *Producer {
	return &Producer{
		selector: sel,
		runner:   runner,
		store:    store,
		logger:   logging.WithComponent(logger, "producer"),
	}
}

// GenerateOne selects the next work unit and runs the full pipeline for it.
// In sequential mode the cursor position advances only after a successful
// run, so a failed unit is selected again on the next invocation. Returns
// selector.ErrExhausted when no eligible unit remains.
func (p *Producer) GenerateOne(ctx context.Context) (*queue.Job, error) {
	passage, err := p.selector.Next(ctx)
	if err != nil {
		return nil, err
	}

	job, err := p.store.NewJob(ctx, queue.WorkUnit{
		ID:        passage.ID(),
		Book:      passage.Book,
		Chapter:   passage.Chapter,
		Verse:     passage.Verse,
		Text:      passage.Text,
		WordCount: passage.WordCount,
	})
	if err != nil {
		return nil, fmt.Errorf("seed job for %s: %w", passage.Reference(), err)
	}

	if err := p.store.MarkProcessing(ctx, job.ID); err != nil {
		return job, fmt.Errorf("claim job %d: %w", job.ID, err)
	}
	job.Status = queue.StatusProcessing

	runErr := p.runner.Run(ctx, job)
	if runErr != nil {
		return job, runErr
	}

	if err := p.advanceCursor(ctx, passage.Coordinate); err != nil {
		p.logger.Warn("advance selection cursor", logging.Error(err), logging.FieldJobID, job.ID)
	}
	return job, nil
}

// GenerateBatch runs up to count generation passes, stopping early when the
// catalog is exhausted or the context ends. Stage failures count toward the
// batch but do not stop it.
func (p *Producer) GenerateBatch(ctx context.Context, count int) (BatchSummary, error) {
	summary := BatchSummary{Requested: count}
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		job, err := p.GenerateOne(ctx)
		switch {
		case err == nil:
			summary.Succeeded++
		case errors.Is(err, selector.ErrExhausted):
			summary.Exhausted = true
			p.logger.Info("no eligible work units remain", logging.FieldAction, "generate")
			return summary, nil
		default:
			summary.Failed++
			var stageErr *StageError
			if !errors.As(err, &stageErr) {
				// Persistence errors are not per-unit failures; surface them.
				return summary, err
			}
			if job != nil {
				p.logger.Warn("generation failed",
					logging.FieldJobID, job.ID,
					logging.FieldWorkUnit, job.WorkUnitID,
					logging.Error(err))
			}
		}
	}
	return summary, nil
}

// advanceCursor records the completed coordinate when sequential mode is
// active. Random mode keeps the saved position untouched.
func (p *Producer) advanceCursor(ctx context.Context, coord catalog.Coordinate) error {
	cursor, err := p.store.Progress(ctx)
	if err != nil {
		return err
	}
	if cursor.Mode != queue.ModeSequential {
		return nil
	}
	return p.store.SetPosition(ctx, coord.Book, coord.Chapter, coord.Verse)
}
