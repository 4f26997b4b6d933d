package stages

import (
	"versemill/internal/config"
	"versemill/internal/pipeline"
)

// Chain returns the full production stage chain in execution order.
func Chain(cfg *config.Config) []pipeline.Executor {
	return []pipeline.Executor{
		NewBackground(cfg),
		NewSpeech(cfg),
		NewAlignment(cfg),
		NewSubtitles(cfg),
		NewComposition(cfg),
	}
}
