package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime/debug"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/flock"

	"versemill/internal/config"
	"versemill/internal/logging"
	"versemill/internal/pipeline"
	"versemill/internal/publish"
	"versemill/internal/queue"
	"versemill/internal/retry"
)

// Scheduler owns the timer loops driving generation, retries, publishing,
// and maintenance.
type Scheduler struct {
	cfg       *config.Config
	store     *queue.Store
	producer  *pipeline.Producer
	retries   *retry.Manager
	publisher *publish.Coordinator
	logger    *slog.Logger

	lockPath string
	lock     *flock.Flock

	// mu serializes tick bodies across all cadences.
	mu      sync.Mutex
	running atomic.Bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	now func() time.Time
}

// New constructs a scheduler with initialized dependencies.
func New(cfg *config.Config, store *queue.Store, producer *pipeline.Producer, retries *retry.Manager, publisher *publish.Coordinator, logger *slog.Logger) (*Scheduler, error) {
	if cfg == nil || store == nil || producer == nil || retries == nil {
		return nil, errors.New("scheduler requires config, store, producer, and retry manager")
	}

	lockPath := filepath.Join(cfg.Paths.DataDir, "versemill.lock")
	return &Scheduler{
		cfg:       cfg,
		store:     store,
		producer:  producer,
		retries:   retries,
		publisher: publisher,
		logger:    logging.WithComponent(logger, "scheduler"),
		lockPath:  lockPath,
		lock:      flock.New(lockPath),
		now:       time.Now,
	}, nil
}

// Start acquires the instance lock, fails over stale processing jobs, and
// launches the timer loops.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.running.Load() {
		return errors.New("scheduler already running")
	}

	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire scheduler lock: %w", err)
	}
	if !ok {
		return errors.New("another scheduler instance is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if err := s.recoverStaleProcessing(runCtx); err != nil {
		_ = s.lock.Unlock()
		cancel()
		s.cancel = nil
		return err
	}

	s.running.Store(true)
	s.logger.Info("scheduler started", "lock", s.lockPath)

	s.launchInterval(runCtx, "generate", time.Duration(s.cfg.Scheduler.GenerationIntervalHours)*time.Hour, s.generateTick)
	s.launchInterval(runCtx, "retry", time.Duration(s.cfg.Scheduler.RetryIntervalHours)*time.Hour, s.retryTick)
	if s.cfg.Publish.Enabled && s.publisher != nil {
		s.launchDaily(runCtx, "publish", s.cfg.Publish.UploadTimes, s.publishTick)
	}
	s.launchDaily(runCtx, "maintenance", []string{s.cfg.Scheduler.MaintenanceTime}, s.maintenanceTick)

	return nil
}

// Stop halts the loops and releases the instance lock.
func (s *Scheduler) Stop() {
	if !s.running.Load() {
		return
	}
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.wg.Wait()
	if err := s.lock.Unlock(); err != nil {
		s.logger.Warn("release scheduler lock", logging.Error(err))
	}
	s.running.Store(false)
	s.logger.Info("scheduler stopped")
}

// Running reports whether the loops are active.
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// LockPath returns the instance lock location.
func (s *Scheduler) LockPath() string {
	return s.lockPath
}

// recoverStaleProcessing fails over jobs stranded in processing by a crash.
func (s *Scheduler) recoverStaleProcessing(ctx context.Context) error {
	cutoff := s.now().Add(-time.Duration(s.cfg.Scheduler.StaleProcessingMinutes) * time.Minute)
	recovered, err := s.store.FailStaleProcessing(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("recover stale processing jobs: %w", err)
	}
	if recovered > 0 {
		s.logger.Warn("recovered stale processing jobs", "count", recovered)
	}
	return nil
}

func (s *Scheduler) launchInterval(ctx context.Context, action string, interval time.Duration, tick func(context.Context) error) {
	if interval <= 0 {
		s.logger.Warn("cadence disabled by non-positive interval", logging.FieldAction, action)
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		// Run once at startup rather than waiting a full interval.
		s.runTask(ctx, action, tick)
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.runTask(ctx, action, tick)
			}
		}
	}()
}

func (s *Scheduler) launchDaily(ctx context.Context, action string, clockTimes []string, tick func(context.Context) error) {
	type slot struct{ hour, minute int }
	var slots []slot
	for _, value := range clockTimes {
		hour, minute, err := config.ParseClockTime(value)
		if err != nil {
			s.logger.Warn("skipping malformed clock time",
				logging.FieldAction, action, "value", value, logging.Error(err))
			continue
		}
		slots = append(slots, slot{hour: hour, minute: minute})
	}
	if len(slots) == 0 {
		s.logger.Warn("cadence disabled: no valid clock times", logging.FieldAction, action)
		return
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			next := time.Time{}
			now := s.now()
			for _, sl := range slots {
				candidate := nextOccurrence(now, sl.hour, sl.minute)
				if next.IsZero() || candidate.Before(next) {
					next = candidate
				}
			}

			timer := time.NewTimer(next.Sub(now))
			select {
			case <-ctx.Done():
				timer.Stop()
				return
			case <-timer.C:
				s.runTask(ctx, action, tick)
			}
		}
	}()
}

// runTask executes one tick body under the shared mutex with panic recovery.
func (s *Scheduler) runTask(ctx context.Context, action string, tick func(context.Context) error) {
	if ctx.Err() != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("tick panicked",
				logging.FieldAction, action,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()))
		}
	}()

	started := s.now()
	if err := tick(ctx); err != nil && !errors.Is(err, context.Canceled) {
		s.logger.Error("tick failed", logging.FieldAction, action, logging.Error(err))
		return
	}
	s.logger.Debug("tick complete",
		logging.FieldAction, action,
		logging.Duration("elapsed", time.Since(started)))
}

func (s *Scheduler) generateTick(ctx context.Context) error {
	summary, err := s.producer.GenerateBatch(ctx, s.cfg.Scheduler.BatchSize)
	if err != nil {
		return err
	}
	s.logger.Info("generation batch complete",
		logging.FieldAction, "generate",
		"requested", summary.Requested,
		"succeeded", summary.Succeeded,
		"failed", summary.Failed,
		"exhausted", summary.Exhausted)
	return nil
}

func (s *Scheduler) retryTick(ctx context.Context) error {
	summary, err := s.retries.Sweep(ctx, s.cfg.Scheduler.BatchSize)
	if err != nil {
		return err
	}
	if summary.Retried > 0 {
		s.logger.Info("retry sweep complete",
			logging.FieldAction, "retry",
			"retried", summary.Retried,
			"succeeded", summary.Succeeded,
			"still_failed", summary.StillFailed)
	}
	return nil
}

func (s *Scheduler) publishTick(ctx context.Context) error {
	summary, err := s.publisher.PublishReady(ctx, 0)
	if err != nil {
		return err
	}
	s.logger.Info("publish pass complete",
		logging.FieldAction, "publish",
		"budget", summary.Budget,
		"uploaded", summary.Uploaded,
		"failed", summary.Failed,
		"rejected", summary.Rejected,
		"skipped_budget", summary.SkippedBudget)
	return nil
}

func (s *Scheduler) maintenanceTick(ctx context.Context) error {
	return s.runMaintenance(ctx)
}

// nextOccurrence returns the next time the wall clock reads hour:minute,
// strictly after now.
func nextOccurrence(now time.Time, hour, minute int) time.Time {
	candidate := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !candidate.After(now) {
		candidate = candidate.Add(24 * time.Hour)
	}
	return candidate
}
