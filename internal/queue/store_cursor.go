package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Progress returns the selection cursor singleton.
func (s *Store) Progress(ctx context.Context) (Cursor, error) {
	row := s.db.QueryRowContext(
		ensureContext(ctx),
		`SELECT mode, current_book, current_chapter, current_verse, updated_at FROM cursor WHERE id = 1`,
	)

	var (
		modeStr    string
		book       sql.NullString
		chapter    sql.NullInt64
		verse      sql.NullInt64
		updatedRaw string
	)
	if err := row.Scan(&modeStr, &book, &chapter, &verse, &updatedRaw); err != nil {
		return Cursor{}, fmt.Errorf("read cursor: %w", err)
	}

	mode, ok := ParseMode(modeStr)
	if !ok {
		return Cursor{}, fmt.Errorf("cursor holds unknown mode %q", modeStr)
	}

	cursor := Cursor{
		Mode:    mode,
		Book:    book.String,
		Chapter: int(chapter.Int64),
		Verse:   int(verse.Int64),
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		cursor.UpdatedAt = updated
	}
	return cursor, nil
}

// SetMode switches the selection policy. The saved sequential position is
// preserved across switches so sequential mode resumes where it left off.
func (s *Store) SetMode(ctx context.Context, mode Mode) error {
	if _, ok := ParseMode(string(mode)); !ok {
		return fmt.Errorf("unknown selection mode %q", mode)
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE cursor SET mode = ?, updated_at = ? WHERE id = 1`,
		mode,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set selection mode: %w", err)
	}
	return nil
}

// SetPosition records the last sequentially selected coordinate. Callers
// advance the position only after the selected unit's pipeline run succeeds;
// a failed unit stays behind the cursor and re-enters through the retry
// manager rather than re-selection.
func (s *Store) SetPosition(ctx context.Context, book string, chapter, verse int) error {
	if book == "" {
		return fmt.Errorf("cursor position requires a book name")
	}
	_, err := s.execWithRetry(
		ctx,
		`UPDATE cursor SET current_book = ?, current_chapter = ?, current_verse = ?, updated_at = ?
         WHERE id = 1`,
		book,
		chapter,
		verse,
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("set cursor position: %w", err)
	}
	return nil
}
