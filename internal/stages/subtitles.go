package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"versemill/internal/config"
	"versemill/internal/queue"
)

// Subtitles renders the word-by-word subtitle track as an ASS file from the
// persisted alignment spans. One dialogue event per word keeps the burn-in
// filter simple and matches the short-form pacing.
type Subtitles struct {
	cfg *config.Config
}

// NewSubtitles builds the subtitle rendering stage.
func NewSubtitles(cfg *config.Config) *Subtitles {
	return &Subtitles{cfg: cfg}
}

func (s *Subtitles) Name() string { return "subtitles" }

func (s *Subtitles) Asset() queue.AssetKind { return queue.AssetSubtitles }

func (s *Subtitles) Execute(ctx context.Context, job *queue.Job) (string, error) {
	if job.TimestampsPath == "" {
		return "", fmt.Errorf("no timestamps asset recorded for job %d", job.ID)
	}
	spans, err := LoadWordSpans(job.TimestampsPath)
	if err != nil {
		return "", err
	}
	if len(spans) == 0 {
		return "", fmt.Errorf("timestamps file %s holds no spans", job.TimestampsPath)
	}

	outPath := filepath.Join(s.cfg.AssetDir("subtitles"), job.WorkUnitID+".ass")
	content := renderASS(spans, s.cfg.Video.Width, s.cfg.Video.Height, job.Reference())
	if err := os.WriteFile(outPath, []byte(content), 0o644); err != nil {
		return "", fmt.Errorf("write subtitles: %w", err)
	}
	return outPath, nil
}

func renderASS(spans []WordSpan, width, height int, reference string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[Script Info]\n")
	fmt.Fprintf(&b, "Title: %s\n", reference)
	fmt.Fprintf(&b, "ScriptType: v4.00+\n")
	fmt.Fprintf(&b, "PlayResX: %d\n", width)
	fmt.Fprintf(&b, "PlayResY: %d\n\n", height)

	b.WriteString("[V4+ Styles]\n")
	b.WriteString("Format: Name, Fontname, Fontsize, PrimaryColour, OutlineColour, BackColour, Bold, Outline, Shadow, Alignment, MarginL, MarginR, MarginV\n")
	fmt.Fprintf(&b, "Style: Word,Arial,%d,&H00FFFFFF,&H00000000,&H80000000,-1,4,0,5,40,40,40\n\n", height/10)

	b.WriteString("[Events]\n")
	b.WriteString("Format: Layer, Start, End, Style, Name, MarginL, MarginR, MarginV, Effect, Text\n")
	for _, span := range spans {
		fmt.Fprintf(&b, "Dialogue: 0,%s,%s,Word,,0,0,0,,%s\n",
			assTimestamp(span.Start),
			assTimestamp(span.End),
			escapeASS(span.Word))
	}
	return b.String()
}

// assTimestamp formats seconds as the H:MM:SS.CS form ASS requires.
func assTimestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	centis := int(seconds*100 + 0.5)
	hours := centis / 360000
	centis %= 360000
	minutes := centis / 6000
	centis %= 6000
	secs := centis / 100
	centis %= 100
	return fmt.Sprintf("%d:%02d:%02d.%02d", hours, minutes, secs, centis)
}

func escapeASS(text string) string {
	replacer := strings.NewReplacer("\\", "\\\\", "{", "\\{", "}", "\\}", "\n", "\\N")
	return replacer.Replace(text)
}
