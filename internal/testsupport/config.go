package testsupport

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"versemill/internal/catalog"
	"versemill/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*configBuilder)

type configBuilder struct {
	t       testing.TB
	baseDir string
	cfg     *config.Config
}

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfgVal := config.Default()
	cfgVal.Paths.DataDir = filepath.Join(base, "data")
	cfgVal.Paths.OutputDir = filepath.Join(base, "output")
	cfgVal.Paths.LogDir = filepath.Join(base, "logs")
	cfgVal.Paths.CorpusPath = filepath.Join(base, "corpus.json")
	cfgVal.Video.BackgroundDir = filepath.Join(base, "clips")
	cfgVal.Corpus.Books = nil

	builder := &configBuilder{
		t:       t,
		baseDir: base,
		cfg:     &cfgVal,
	}

	for _, opt := range opts {
		opt(builder)
	}

	return builder.cfg
}

// WithCorpusBooks restricts the configured book filter on the test config.
func WithCorpusBooks(books ...string) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpus.Books = books
	}
}

// WithWordBounds sets the word-count filter on the test config.
func WithWordBounds(min, max int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Corpus.MinWords = min
		b.cfg.Corpus.MaxWords = max
	}
}

// WithMaxAttempts sets the pipeline retry ceiling on the test config.
func WithMaxAttempts(attempts int) ConfigOption {
	return func(b *configBuilder) {
		b.cfg.Retry.MaxAttempts = attempts
	}
}

// WriteCorpus serializes the provided books to the config's corpus path and
// returns the loaded catalog.
func WriteCorpus(t testing.TB, cfg *config.Config, books []catalog.Book) *catalog.Catalog {
	t.Helper()

	payload, err := json.Marshal(books)
	if err != nil {
		t.Fatalf("marshal corpus: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.CorpusPath), 0o755); err != nil {
		t.Fatalf("mkdir corpus dir: %v", err)
	}
	if err := os.WriteFile(cfg.Paths.CorpusPath, payload, 0o644); err != nil {
		t.Fatalf("write corpus: %v", err)
	}

	cat, err := catalog.Load(cfg.Paths.CorpusPath)
	if err != nil {
		t.Fatalf("catalog.Load: %v", err)
	}
	return cat
}

// SmallCorpus returns a three-book catalog fixture with predictable word
// counts for selection tests.
func SmallCorpus() []catalog.Book {
	return []catalog.Book{
		{
			Name: "Genesis",
			Chapters: [][]string{
				{
					"In the beginning God created the heaven and the earth.",
					"And the earth was without form, and void; and darkness was upon the face of the deep.",
				},
				{
					"Thus the heavens and the earth were finished, and all the host of them.",
				},
			},
		},
		{
			Name: "Psalms",
			Chapters: [][]string{
				{
					"Blessed is the man that walketh not in the counsel of the ungodly.",
					"But his delight is in the law of the Lord; and in his law doth he meditate day and night.",
				},
			},
		},
		{
			Name: "John",
			Chapters: [][]string{
				{
					"In the beginning was the Word, and the Word was with God, and the Word was God.",
					"The same was in the beginning with God.",
					"Jesus wept.",
				},
			},
		},
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.DataDir)
}
