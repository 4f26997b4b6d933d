package scheduler

import (
	"context"
	"fmt"
	"os"
	"time"

	"versemill/internal/logging"
	"versemill/internal/queue"
)

// runMaintenance performs the nightly pass: stale-job failover, uploaded
// asset cleanup, counter pruning, and database compaction.
func (s *Scheduler) runMaintenance(ctx context.Context) error {
	if err := s.recoverStaleProcessing(ctx); err != nil {
		return err
	}

	if s.cfg.Storage.CleanupAfterUpload {
		cleaned, err := s.cleanupUploadedAssets(ctx)
		if err != nil {
			return err
		}
		if cleaned > 0 {
			s.logger.Info("removed intermediate assets",
				logging.FieldAction, "maintenance", "files", cleaned)
		}
	}

	retention := time.Duration(s.cfg.Storage.RetentionDays) * 24 * time.Hour
	if retention > 0 {
		pruned, err := s.store.PruneCounters(ctx, retention)
		if err != nil {
			return err
		}
		if pruned > 0 {
			s.logger.Info("pruned daily counters",
				logging.FieldAction, "maintenance", "rows", pruned)
		}
	}

	if err := s.store.Vacuum(ctx); err != nil {
		return err
	}
	s.logger.Info("maintenance pass complete", logging.FieldAction, "maintenance")
	return nil
}

// cleanupUploadedAssets deletes intermediate files for uploaded jobs. Final
// videos are kept when configured; the published copy is authoritative
// otherwise.
func (s *Scheduler) cleanupUploadedAssets(ctx context.Context) (int, error) {
	jobs, err := s.store.JobsByStatus(ctx, queue.StatusUploaded)
	if err != nil {
		return 0, fmt.Errorf("list uploaded jobs: %w", err)
	}

	removed := 0
	for _, job := range jobs {
		paths := []string{
			job.BackgroundPath,
			job.AudioPath,
			job.TimestampsPath,
			job.SubtitlePath,
		}
		if !s.cfg.Storage.KeepFinalVideos {
			paths = append(paths, job.FinalPath)
		}
		for _, path := range paths {
			if path == "" {
				continue
			}
			if err := os.Remove(path); err != nil {
				if os.IsNotExist(err) {
					continue
				}
				s.logger.Warn("remove asset",
					logging.FieldJobID, job.ID, "path", path, logging.Error(err))
				continue
			}
			removed++
		}
	}
	return removed, nil
}
