package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const jobColumns = "id, work_unit_id, book, chapter, verse, text, word_count, status, retry_count, error_message, asset_background, asset_audio, asset_timestamps, asset_subtitles, asset_final, published_id, published_url, uploaded_at, created_at, updated_at"

// NewJob inserts a pending job for a work unit. The work-unit identifier is
// unique across the table; attempting to insert a second record for the same
// unit fails.
func (s *Store) NewJob(ctx context.Context, unit WorkUnit) (*Job, error) {
	if unit.ID == "" {
		return nil, errors.New("work unit id is empty")
	}
	timestamp := time.Now().UTC().Format(time.RFC3339Nano)

	res, err := s.execWithRetry(
		ctx,
		`INSERT INTO jobs (
            work_unit_id, book, chapter, verse, text, word_count,
            status, retry_count, created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		unit.ID,
		unit.Book,
		unit.Chapter,
		unit.Verse,
		unit.Text,
		unit.WordCount,
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier.
func (s *Store) GetByID(ctx context.Context, id int64) (*Job, error) {
	row := s.db.QueryRowContext(ensureContext(ctx), `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ByWorkUnit returns the job recorded for a work unit, if any.
func (s *Store) ByWorkUnit(ctx context.Context, workUnitID string) (*Job, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT `+jobColumns+` FROM jobs WHERE work_unit_id = ?`,
		workUnitID,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job by work unit: %w", err)
	}
	return job, nil
}

// Transition moves a job between statuses atomically. The update only applies
// when the record still holds the expected current status, so concurrent
// writers cannot leave the record half-moved; a lost race or an illegal move
// reports ErrConflict.
func (s *Store) Transition(ctx context.Context, id int64, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s to %s is not a legal transition", ErrConflict, from, to)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		from,
	)
	if err != nil {
		return fmt.Errorf("transition job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %d is not %s", ErrConflict, id, from)
	}
	return nil
}

// MarkProcessing moves a pending job into processing.
func (s *Store) MarkProcessing(ctx context.Context, id int64) error {
	return s.Transition(ctx, id, StatusPending, StatusProcessing)
}

// MarkReady completes a processing job and clears any stale error message.
func (s *Store) MarkReady(ctx context.Context, id int64) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusReady,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark ready: %w", err)
	}
	return requireAffected(res, id, StatusProcessing)
}

// MarkFailed records a stage failure on a processing job. The retry count is
// untouched; it advances when the retry manager resubmits the job.
func (s *Store) MarkFailed(ctx context.Context, id int64, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("mark failed: %w", err)
	}
	return requireAffected(res, id, StatusProcessing)
}

// MarkUploaded records a successful publish on a ready job.
func (s *Store) MarkUploaded(ctx context.Context, id int64, publishedID, publishedURL string) error {
	now := time.Now().UTC().Format(time.RFC3339Nano)
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, published_id = ?, published_url = ?,
             error_message = NULL, uploaded_at = ?, updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusUploaded,
		publishedID,
		nullableString(publishedURL),
		now,
		now,
		id,
		StatusReady,
	)
	if err != nil {
		return fmt.Errorf("mark uploaded: %w", err)
	}
	return requireAffected(res, id, StatusReady)
}

// RequeueForRetry resubmits a failed job below the attempt ceiling,
// incrementing the retry count exactly once. Returns false when the job is
// not failed or has exhausted its attempts.
func (s *Store) RequeueForRetry(ctx context.Context, id int64, maxAttempts int) (bool, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, retry_count = retry_count + 1,
             error_message = NULL, updated_at = ?
         WHERE id = ? AND status = ? AND retry_count < ?`,
		StatusProcessing,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusFailed,
		maxAttempts,
	)
	if err != nil {
		return false, fmt.Errorf("requeue for retry: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// SetAssetPath persists one produced asset path on a processing job. Stages
// call this immediately after succeeding so partial progress is inspectable.
func (s *Store) SetAssetPath(ctx context.Context, id int64, kind AssetKind, path string) error {
	column, ok := assetColumns[kind]
	if !ok {
		return fmt.Errorf("unknown asset kind %q", kind)
	}
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET `+column+` = ?, updated_at = ? WHERE id = ? AND status = ?`,
		path,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusProcessing,
	)
	if err != nil {
		return fmt.Errorf("set asset path: %w", err)
	}
	return requireAffected(res, id, StatusProcessing)
}

var assetColumns = map[AssetKind]string{
	AssetBackground: "asset_background",
	AssetAudio:      "asset_audio",
	AssetTimestamps: "asset_timestamps",
	AssetSubtitles:  "asset_subtitles",
	AssetFinal:      "asset_final",
}

// RecordPublishFailure stores the most recent publish error without leaving
// the ready state: the content is still valid, only the upload attempt failed.
func (s *Store) RecordPublishFailure(ctx context.Context, id int64, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET error_message = ?, updated_at = ? WHERE id = ? AND status = ?`,
		message,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusReady,
	)
	if err != nil {
		return fmt.Errorf("record publish failure: %w", err)
	}
	return requireAffected(res, id, StatusReady)
}

// MarkPublishRejected permanently fails a ready job whose upload was refused
// by policy rather than by a transient fault. The retry count jumps to the
// attempt ceiling so retry sweeps never pick the record up.
func (s *Store) MarkPublishRejected(ctx context.Context, id int64, maxAttempts int, message string) error {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?,
             retry_count = MAX(retry_count, ?), updated_at = ?
         WHERE id = ? AND status = ?`,
		StatusFailed,
		message,
		maxAttempts,
		time.Now().UTC().Format(time.RFC3339Nano),
		id,
		StatusReady,
	)
	if err != nil {
		return fmt.Errorf("mark publish rejected: %w", err)
	}
	return requireAffected(res, id, StatusReady)
}

// JobsByStatus returns jobs matching a status ordered by creation time.
func (s *Store) JobsByStatus(ctx context.Context, status Status) ([]*Job, error) {
	return s.queryJobs(ctx, `SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at, id`, status)
}

// ReadyOldestFirst returns ready jobs ordered oldest first, bounded by limit
// when positive.
func (s *Store) ReadyOldestFirst(ctx context.Context, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = ? ORDER BY created_at, id`
	args := []any{StatusReady}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryJobs(ctx, query, args...)
}

// FailedForRetry returns failed jobs below the attempt ceiling, oldest update
// first, bounded by limit when positive.
func (s *Store) FailedForRetry(ctx context.Context, maxAttempts, limit int) ([]*Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs WHERE status = ? AND retry_count < ? ORDER BY updated_at, id`
	args := []any{StatusFailed, maxAttempts}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryJobs(ctx, query, args...)
}

// AttemptedWorkUnitIDs returns the set of work units that already have a job
// record, whatever its status. Random selection treats all of them as
// ineligible; failed records are resubmitted by the retry manager instead of
// being re-picked.
func (s *Store) AttemptedWorkUnitIDs(ctx context.Context) (map[string]struct{}, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT work_unit_id FROM jobs`)
	if err != nil {
		return nil, fmt.Errorf("query attempted work units: %w", err)
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// FailStaleProcessing converts processing jobs idle past the cutoff into
// failed records with a synthetic error message, making them retry-eligible.
// Run at startup so a crash mid-stage never strands a job in processing.
func (s *Store) FailStaleProcessing(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.execWithRetry(
		ctx,
		`UPDATE jobs SET status = ?, error_message = ?, updated_at = ?
         WHERE status = ? AND updated_at < ?`,
		StatusFailed,
		"stale processing: no progress recorded before shutdown",
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusProcessing,
		cutoff.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, fmt.Errorf("fail stale processing: %w", err)
	}
	return res.RowsAffected()
}

// StatusCounts returns a count of jobs grouped by status.
func (s *Store) StatusCounts(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("status counts: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}

// Stats aggregates the status histogram plus the retryable/permanent failure
// split for a given attempt ceiling.
func (s *Store) Stats(ctx context.Context, maxAttempts int) (ProcessingStats, error) {
	counts, err := s.StatusCounts(ctx)
	if err != nil {
		return ProcessingStats{}, err
	}
	stats := ProcessingStats{ByStatus: counts}
	for _, count := range counts {
		stats.Total += count
	}

	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT
            COUNT(1),
            COALESCE(SUM(CASE WHEN retry_count >= ? THEN 1 ELSE 0 END), 0)
         FROM jobs WHERE status = ?`,
		maxAttempts,
		StatusFailed,
	)
	var totalFailed, permanent int
	if err := row.Scan(&totalFailed, &permanent); err != nil {
		return ProcessingStats{}, fmt.Errorf("failure stats: %w", err)
	}
	stats.PermanentlyFailed = permanent
	stats.RetryableFailed = totalFailed - permanent
	return stats, nil
}

func (s *Store) queryJobs(ctx context.Context, query string, args ...any) ([]*Job, error) {
	rows, err := s.db.QueryContext(ensureContext(ctx), query, args...)
	if err != nil {
		return nil, fmt.Errorf("query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func requireAffected(res sql.Result, id int64, expected Status) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: job %d is not %s", ErrConflict, id, expected)
	}
	return nil
}

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id           int64
		workUnitID   string
		book         string
		chapter      int
		verse        int
		text         string
		wordCount    int
		statusStr    string
		retryCount   int
		errorMessage sql.NullString
		background   sql.NullString
		audio        sql.NullString
		timestamps   sql.NullString
		subtitles    sql.NullString
		final        sql.NullString
		publishedID  sql.NullString
		publishedURL sql.NullString
		uploadedRaw  sql.NullString
		createdRaw   string
		updatedRaw   string
	)

	if err := scanner.Scan(
		&id,
		&workUnitID,
		&book,
		&chapter,
		&verse,
		&text,
		&wordCount,
		&statusStr,
		&retryCount,
		&errorMessage,
		&background,
		&audio,
		&timestamps,
		&subtitles,
		&final,
		&publishedID,
		&publishedURL,
		&uploadedRaw,
		&createdRaw,
		&updatedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		WorkUnitID:     workUnitID,
		Book:           book,
		Chapter:        chapter,
		Verse:          verse,
		Text:           text,
		WordCount:      wordCount,
		Status:         Status(statusStr),
		RetryCount:     retryCount,
		ErrorMessage:   errorMessage.String,
		BackgroundPath: background.String,
		AudioPath:      audio.String,
		TimestampsPath: timestamps.String,
		SubtitlePath:   subtitles.String,
		FinalPath:      final.String,
		PublishedID:    publishedID.String,
		PublishedURL:   publishedURL.String,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if uploadedRaw.Valid {
		if uploaded, err := parseTimeString(uploadedRaw.String); err == nil {
			job.UploadedAt = &uploaded
		}
	}
	return job, nil
}
