package testsupport

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"versemill/internal/catalog"
	"versemill/internal/config"
	"versemill/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// NewJob seeds a pending job for tests using the provided store.
func NewJob(t testing.TB, store *queue.Store, unit queue.WorkUnit) *queue.Job {
	t.Helper()

	job, err := store.NewJob(context.Background(), unit)
	if err != nil {
		t.Fatalf("store.NewJob: %v", err)
	}
	return job
}

// BackdateJob rewrites a job's updated_at directly so tests can cross
// staleness windows without waiting.
func BackdateJob(t testing.TB, cfg *config.Config, id int64, to time.Time) {
	t.Helper()

	db, err := sql.Open("sqlite", filepath.Join(cfg.Paths.DataDir, "versemill.db"))
	if err != nil {
		t.Fatalf("open job database: %v", err)
	}
	defer db.Close()

	res, err := db.Exec(
		`UPDATE jobs SET updated_at = ? WHERE id = ?`,
		to.UTC().Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		t.Fatalf("backdate job %d: %v", id, err)
	}
	if affected, err := res.RowsAffected(); err != nil || affected != 1 {
		t.Fatalf("backdate job %d: affected=%d err=%v", id, affected, err)
	}
}

// Unit builds a work-unit seed with a derived identifier and word count.
func Unit(book string, chapter, verse int, text string) queue.WorkUnit {
	coord := catalog.Coordinate{Book: book, Chapter: chapter, Verse: verse}
	return queue.WorkUnit{
		ID:        coord.WorkUnitID(),
		Book:      book,
		Chapter:   chapter,
		Verse:     verse,
		Text:      text,
		WordCount: len(strings.Fields(text)),
	}
}
