package queue

import (
	"context"
	"fmt"
	"time"
)

// PruneCounters deletes daily counter rows older than the retention window.
func (s *Store) PruneCounters(ctx context.Context, retain time.Duration) (int64, error) {
	cutoff := counterDate(time.Now().Add(-retain))
	res, err := s.execWithRetry(ctx, `DELETE FROM daily_counters WHERE date < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune counters: %w", err)
	}
	return res.RowsAffected()
}

// Vacuum compacts the database file. Run from the maintenance pass, never
// inside a transaction.
func (s *Store) Vacuum(ctx context.Context) error {
	if _, err := s.db.ExecContext(ensureContext(ctx), "VACUUM"); err != nil {
		return fmt.Errorf("vacuum database: %w", err)
	}
	return nil
}
