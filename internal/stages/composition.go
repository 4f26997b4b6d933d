package stages

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"versemill/internal/config"
	"versemill/internal/queue"
)

// Composition muxes the background, narration, and subtitle assets into the
// final video. The output is cut to the narration's length; the background
// was prepared longer than any narration can run, so -shortest trims it.
type Composition struct {
	cfg *config.Config
}

// NewComposition builds the final composition stage.
func NewComposition(cfg *config.Config) *Composition {
	return &Composition{cfg: cfg}
}

func (c *Composition) Name() string { return "composition" }

func (c *Composition) Asset() queue.AssetKind { return queue.AssetFinal }

func (c *Composition) Execute(ctx context.Context, job *queue.Job) (string, error) {
	for asset, path := range map[string]string{
		"background": job.BackgroundPath,
		"audio":      job.AudioPath,
		"subtitles":  job.SubtitlePath,
	} {
		if path == "" {
			return "", fmt.Errorf("no %s asset recorded for job %d", asset, job.ID)
		}
	}

	outPath := filepath.Join(c.cfg.AssetDir("final"), job.WorkUnitID+".mp4")
	_, err := runCommand(ctx, "", c.cfg.FFmpegBinary(),
		"-y",
		"-i", job.BackgroundPath,
		"-i", job.AudioPath,
		"-vf", fmt.Sprintf("ass=%s", escapeFilterPath(job.SubtitlePath)),
		"-map", "0:v:0",
		"-map", "1:a:0",
		"-c:v", "libx264",
		"-preset", "medium",
		"-c:a", "aac",
		"-b:a", "192k",
		"-shortest",
		"-movflags", "+faststart",
		outPath,
	)
	if err != nil {
		return "", fmt.Errorf("compose final video: %w", err)
	}
	return outPath, nil
}

// escapeFilterPath quotes a path for use inside an ffmpeg filter argument.
func escapeFilterPath(path string) string {
	replacer := strings.NewReplacer("\\", "\\\\", ":", "\\:", "'", "\\'")
	return replacer.Replace(path)
}
