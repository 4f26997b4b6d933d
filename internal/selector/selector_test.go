package selector

import (
	"context"
	"errors"
	"testing"

	"versemill/internal/logging"
	"versemill/internal/queue"
	"versemill/internal/testsupport"
)

func newTestSelector(t *testing.T, opts ...testsupport.ConfigOption) (*Selector, *queue.Store) {
	t.Helper()
	cfg := testsupport.NewConfig(t, opts...)
	store := testsupport.MustOpenStore(t, cfg)
	cat := testsupport.WriteCorpus(t, cfg, testsupport.SmallCorpus())
	return New(cat, store, cfg, logging.NewNop()), store
}

func TestRandomSelectionSkipsAttemptedUnits(t *testing.T) {
	sel, store := newTestSelector(t, testsupport.WithWordBounds(1, 100))
	sel.intn = func(n int) int { return 0 }

	ctx := context.Background()
	first, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	testsupport.NewJob(t, store, testsupport.Unit(first.Book, first.Chapter, first.Verse, first.Text))

	second, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if second.ID() == first.ID() {
		t.Fatalf("selected %s twice despite existing job record", first.ID())
	}
}

func TestRandomSelectionTreatsFailedUnitsAsAttempted(t *testing.T) {
	sel, store := newTestSelector(t, testsupport.WithWordBounds(1, 100))
	sel.intn = func(n int) int { return 0 }

	ctx := context.Background()
	first, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}

	job := testsupport.NewJob(t, store, testsupport.Unit(first.Book, first.Chapter, first.Verse, first.Text))
	if err := store.MarkProcessing(ctx, job.ID); err != nil {
		t.Fatalf("MarkProcessing failed: %v", err)
	}
	if err := store.MarkFailed(ctx, job.ID, "boom"); err != nil {
		t.Fatalf("MarkFailed failed: %v", err)
	}

	second, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if second.ID() == first.ID() {
		t.Fatal("failed unit must not be re-picked; retries own it")
	}
}

func TestRandomSelectionExhaustion(t *testing.T) {
	// Bounds nothing satisfies.
	sel, _ := newTestSelector(t, testsupport.WithWordBounds(90, 100))

	if _, err := sel.Next(context.Background()); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestRandomSelectionRespectsWordBounds(t *testing.T) {
	// Only "Jesus wept." (2 words) fits.
	sel, _ := newTestSelector(t, testsupport.WithWordBounds(1, 3))
	sel.intn = func(n int) int {
		if n != 1 {
			t.Fatalf("expected a single candidate, got %d", n)
		}
		return 0
	}

	passage, err := sel.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if passage.Text != "Jesus wept." {
		t.Fatalf("unexpected passage %q", passage.Text)
	}
}

func TestSequentialSelectionWalksFromCursor(t *testing.T) {
	sel, store := newTestSelector(t, testsupport.WithWordBounds(1, 100))

	ctx := context.Background()
	if err := store.SetMode(ctx, queue.ModeSequential); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}

	first, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if first.Reference() != "Genesis 1:1" {
		t.Fatalf("expected walk to start at Genesis 1:1, got %s", first.Reference())
	}

	// The cursor has not advanced, but the unit now has a job record, so the
	// next call moves past it.
	testsupport.NewJob(t, store, testsupport.Unit(first.Book, first.Chapter, first.Verse, first.Text))
	second, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if second.Reference() != "Genesis 1:2" {
		t.Fatalf("expected Genesis 1:2, got %s", second.Reference())
	}

	// An advanced cursor skips everything before it.
	if err := store.SetPosition(ctx, "Psalms", 1, 2); err != nil {
		t.Fatalf("SetPosition failed: %v", err)
	}
	third, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if third.Book != "John" {
		t.Fatalf("expected walk to continue into John, got %s", third.Reference())
	}
}

func TestSequentialSelectionSkipsWordFilterMisses(t *testing.T) {
	// "Jesus wept." is the only passage below 5 words; sequential selection
	// must walk over everything longer.
	sel, store := newTestSelector(t, testsupport.WithWordBounds(1, 3))

	ctx := context.Background()
	if err := store.SetMode(ctx, queue.ModeSequential); err != nil {
		t.Fatalf("SetMode failed: %v", err)
	}

	passage, err := sel.Next(ctx)
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if passage.Text != "Jesus wept." {
		t.Fatalf("unexpected passage %q", passage.Text)
	}

	testsupport.NewJob(t, store, testsupport.Unit(passage.Book, passage.Chapter, passage.Verse, passage.Text))
	if _, err := sel.Next(ctx); !errors.Is(err, ErrExhausted) {
		t.Fatalf("expected ErrExhausted, got %v", err)
	}
}

func TestAllowedBooksAppliesExclusions(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithWordBounds(1, 100))
	cfg.Corpus.Books = nil
	cfg.Corpus.ExcludeBooks = []string{"genesis", "psalms"}
	store := testsupport.MustOpenStore(t, cfg)
	cat := testsupport.WriteCorpus(t, cfg, testsupport.SmallCorpus())
	sel := New(cat, store, cfg, logging.NewNop())

	remaining, err := sel.Remaining(context.Background())
	if err != nil {
		t.Fatalf("Remaining failed: %v", err)
	}
	// Only John's three verses survive the exclusion.
	if remaining != 3 {
		t.Fatalf("expected 3 eligible units, got %d", remaining)
	}
}
