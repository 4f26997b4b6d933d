package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// counterDate formats a timestamp as the daily_counters primary key.
func counterDate(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// IncrementCounters bumps the day's counters, creating the row on first use.
func (s *Store) IncrementCounters(ctx context.Context, day time.Time, generated, uploaded, errCount int) error {
	if generated == 0 && uploaded == 0 && errCount == 0 {
		return nil
	}
	_, err := s.execWithRetry(
		ctx,
		`INSERT INTO daily_counters (date, generated, uploaded, errors)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(date) DO UPDATE SET
             generated = generated + excluded.generated,
             uploaded = uploaded + excluded.uploaded,
             errors = errors + excluded.errors`,
		counterDate(day),
		generated,
		uploaded,
		errCount,
	)
	if err != nil {
		return fmt.Errorf("increment counters: %w", err)
	}
	return nil
}

// CountersFor returns the counters recorded for a calendar day. Days with no
// activity report zeroes.
func (s *Store) CountersFor(ctx context.Context, day time.Time) (DayCounters, error) {
	date := counterDate(day)
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT COALESCE(generated, 0), COALESCE(uploaded, 0), COALESCE(errors, 0)
         FROM daily_counters WHERE date = ?`,
		date,
	)

	counters := DayCounters{Date: date}
	if err := row.Scan(&counters.Generated, &counters.Uploaded, &counters.Errors); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return counters, nil
		}
		return DayCounters{}, fmt.Errorf("read counters: %w", err)
	}
	return counters, nil
}

// RecentCounters returns up to limit days of counters, newest first.
func (s *Store) RecentCounters(ctx context.Context, limit int) ([]DayCounters, error) {
	if limit <= 0 {
		limit = 7
	}
	rows, err := s.db.QueryContext(
		ensureContext(ctx),
		`SELECT date, generated, uploaded, errors FROM daily_counters
         ORDER BY date DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query counters: %w", err)
	}
	defer rows.Close()

	var days []DayCounters
	for rows.Next() {
		var d DayCounters
		if err := rows.Scan(&d.Date, &d.Generated, &d.Uploaded, &d.Errors); err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, rows.Err()
}
