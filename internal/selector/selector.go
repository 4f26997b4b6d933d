package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"versemill/internal/catalog"
	"versemill/internal/config"
	"versemill/internal/logging"
	"versemill/internal/queue"
)

// ErrExhausted indicates no eligible work unit remains under the current
// filters and selection policy.
var ErrExhausted = errors.New("no eligible work unit remains")

// Selector picks work units from the catalog according to the persisted
// selection mode.
type Selector struct {
	catalog *catalog.Catalog
	store   *queue.Store
	cfg     *config.Config
	logger  *slog.Logger

	// allowed is the configured book filter with exclusions applied. A nil
	// slice means every book; an empty non-nil slice means the filters
	// excluded everything.
	allowed []string

	// intn is swapped in tests for deterministic draws.
	intn func(n int) int
}

// New builds a selector over the given catalog and store.
func New(cat *catalog.Catalog, store *queue.Store, cfg *config.Config, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Selector{
		catalog: cat,
		store:   store,
		cfg:     cfg,
		logger:  logger.With(logging.FieldComponent, "selector"),
		allowed: allowedBooks(cat, cfg.Corpus.Books, cfg.Corpus.ExcludeBooks),
		intn:    rand.Intn,
	}
}

func allowedBooks(cat *catalog.Catalog, include, exclude []string) []string {
	if len(exclude) == 0 {
		return include
	}
	excluded := make(map[string]struct{}, len(exclude))
	for _, name := range exclude {
		excluded[catalog.CanonicalBookName(name)] = struct{}{}
	}
	base := include
	if len(base) == 0 {
		base = cat.Books()
	}
	out := make([]string, 0, len(base))
	for _, name := range base {
		if _, skip := excluded[catalog.CanonicalBookName(name)]; skip {
			continue
		}
		out = append(out, name)
	}
	return out
}

// Next returns the next work unit under the persisted selection mode.
func (s *Selector) Next(ctx context.Context) (catalog.Passage, error) {
	cursor, err := s.store.Progress(ctx)
	if err != nil {
		return catalog.Passage{}, fmt.Errorf("read selection cursor: %w", err)
	}
	switch cursor.Mode {
	case queue.ModeSequential:
		return s.nextSequential(ctx, cursor)
	default:
		return s.nextRandom(ctx)
	}
}

func (s *Selector) nextRandom(ctx context.Context) (catalog.Passage, error) {
	attempted, err := s.store.AttemptedWorkUnitIDs(ctx)
	if err != nil {
		return catalog.Passage{}, fmt.Errorf("load attempted work units: %w", err)
	}

	candidates := s.eligible(attempted)
	if len(candidates) == 0 {
		return catalog.Passage{}, ErrExhausted
	}

	passage := candidates[s.intn(len(candidates))]
	s.logger.Debug("selected work unit",
		logging.FieldWorkUnit, passage.ID(),
		logging.FieldAction, "select-random",
		"candidates", len(candidates))
	return passage, nil
}

func (s *Selector) nextSequential(ctx context.Context, cursor queue.Cursor) (catalog.Passage, error) {
	attempted, err := s.store.AttemptedWorkUnitIDs(ctx)
	if err != nil {
		return catalog.Passage{}, fmt.Errorf("load attempted work units: %w", err)
	}

	if s.allowed != nil && len(s.allowed) == 0 {
		return catalog.Passage{}, ErrExhausted
	}

	coord := catalog.Coordinate{Book: cursor.Book, Chapter: cursor.Chapter, Verse: cursor.Verse}
	for {
		passage, ok := s.catalog.LookupNextAfter(coord, s.allowed)
		if !ok {
			return catalog.Passage{}, ErrExhausted
		}
		coord = passage.Coordinate

		if !s.withinWordBounds(passage) {
			continue
		}
		if _, seen := attempted[passage.ID()]; seen {
			continue
		}

		s.logger.Debug("selected work unit",
			logging.FieldWorkUnit, passage.ID(),
			logging.FieldAction, "select-sequential")
		return passage, nil
	}
}

// eligible returns the filtered passages with no job record, in corpus order.
func (s *Selector) eligible(attempted map[string]struct{}) []catalog.Passage {
	if s.allowed != nil && len(s.allowed) == 0 {
		return nil
	}
	filtered := s.catalog.Filter(s.cfg.Corpus.MinWords, s.cfg.Corpus.MaxWords, s.allowed)
	out := filtered[:0:0]
	for _, passage := range filtered {
		if _, seen := attempted[passage.ID()]; seen {
			continue
		}
		out = append(out, passage)
	}
	return out
}

// Remaining reports how many eligible units are left for random selection.
func (s *Selector) Remaining(ctx context.Context) (int, error) {
	attempted, err := s.store.AttemptedWorkUnitIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("load attempted work units: %w", err)
	}
	return len(s.eligible(attempted)), nil
}

func (s *Selector) withinWordBounds(passage catalog.Passage) bool {
	return passage.WordCount >= s.cfg.Corpus.MinWords && passage.WordCount <= s.cfg.Corpus.MaxWords
}
