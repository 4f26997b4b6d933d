package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"versemill/internal/config"
	"versemill/internal/queue"
)

// WordSpan is one word's interval within the narration audio, in seconds.
type WordSpan struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// Alignment produces per-word timestamps for the narration. When an external
// forced-alignment command is configured it is invoked with the audio path
// and the passage text on stdin, and must print a WordSpan JSON array.
// Without one, spans are estimated by spreading the words across the probed
// audio duration; if probing fails the duration is derived from the
// configured speaking rate instead.
type Alignment struct {
	cfg *config.Config
}

// NewAlignment builds the word alignment stage.
func NewAlignment(cfg *config.Config) *Alignment {
	return &Alignment{cfg: cfg}
}

func (a *Alignment) Name() string { return "alignment" }

func (a *Alignment) Asset() queue.AssetKind { return queue.AssetTimestamps }

func (a *Alignment) Execute(ctx context.Context, job *queue.Job) (string, error) {
	audioPath := job.AudioPath
	if audioPath == "" {
		return "", fmt.Errorf("no audio asset recorded for job %d", job.ID)
	}

	var spans []WordSpan
	var err error
	if a.cfg.Alignment.Command != "" {
		spans, err = a.alignWithTool(ctx, audioPath, job.Text)
	} else {
		spans, err = a.estimate(ctx, audioPath, job.Text)
	}
	if err != nil {
		return "", err
	}
	if len(spans) == 0 {
		return "", fmt.Errorf("alignment produced no word spans")
	}

	outPath := filepath.Join(a.cfg.AssetDir("timestamps"), job.WorkUnitID+".json")
	payload, err := json.MarshalIndent(spans, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal word spans: %w", err)
	}
	if err := os.WriteFile(outPath, payload, 0o644); err != nil {
		return "", fmt.Errorf("write word spans: %w", err)
	}
	return outPath, nil
}

func (a *Alignment) alignWithTool(ctx context.Context, audioPath, text string) ([]WordSpan, error) {
	out, err := runCommand(ctx, text, a.cfg.Alignment.Command, audioPath)
	if err != nil {
		return nil, fmt.Errorf("run alignment tool: %w", err)
	}
	var spans []WordSpan
	if err := json.Unmarshal([]byte(out), &spans); err != nil {
		return nil, fmt.Errorf("parse alignment output: %w", err)
	}
	return spans, nil
}

// estimate distributes word intervals across the real audio duration,
// weighting each word by its share of the text's characters so long words
// hold the screen a little longer.
func (a *Alignment) estimate(ctx context.Context, audioPath, text string) ([]WordSpan, error) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil, fmt.Errorf("passage has no words")
	}

	duration, err := probeDuration(ctx, a.cfg.FFprobeBinary(), audioPath)
	if err != nil {
		// Probe unavailable; derive the duration from the speaking rate.
		duration = float64(len(words)) / float64(a.cfg.Video.WordsPerMinute) * 60
	}

	totalChars := 0
	for _, word := range words {
		totalChars += len(word)
	}

	spans := make([]WordSpan, 0, len(words))
	cursor := 0.0
	for _, word := range words {
		share := float64(len(word)) / float64(totalChars)
		end := cursor + duration*share
		spans = append(spans, WordSpan{Word: word, Start: cursor, End: end})
		cursor = end
	}
	// Close the last span on the real duration to absorb rounding drift.
	spans[len(spans)-1].End = duration
	return spans, nil
}

// LoadWordSpans reads a persisted word-span file.
func LoadWordSpans(path string) ([]WordSpan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read word spans: %w", err)
	}
	var spans []WordSpan
	if err := json.Unmarshal(data, &spans); err != nil {
		return nil, fmt.Errorf("parse word spans: %w", err)
	}
	return spans, nil
}
