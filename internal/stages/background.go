package stages

import (
	"context"
	"fmt"
	"hash/fnv"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"versemill/internal/config"
	"versemill/internal/queue"
)

var clipExtensions = map[string]struct{}{
	".mp4":  {},
	".mov":  {},
	".mkv":  {},
	".webm": {},
}

// Background prepares the looping background clip for one job. It picks a
// source clip deterministically from the work-unit identifier, then scales
// and crops it to the output frame so every later stage sees a uniform
// canvas.
type Background struct {
	cfg *config.Config
}

// NewBackground builds the background stage.
func NewBackground(cfg *config.Config) *Background {
	return &Background{cfg: cfg}
}

func (b *Background) Name() string { return "background" }

func (b *Background) Asset() queue.AssetKind { return queue.AssetBackground }

func (b *Background) Execute(ctx context.Context, job *queue.Job) (string, error) {
	clip, err := b.pickClip(job.WorkUnitID)
	if err != nil {
		return "", err
	}

	outPath := filepath.Join(b.cfg.AssetDir("backgrounds"), job.WorkUnitID+".mp4")
	filter := fmt.Sprintf(
		"scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d",
		b.cfg.Video.Width, b.cfg.Video.Height,
		b.cfg.Video.Width, b.cfg.Video.Height,
	)

	_, err = runCommand(ctx, "", b.cfg.FFmpegBinary(),
		"-y",
		"-stream_loop", "-1",
		"-i", clip,
		"-t", strconv.Itoa(b.cfg.Video.MaxDurationSeconds),
		"-vf", filter,
		"-an",
		"-c:v", "libx264",
		"-preset", "fast",
		"-pix_fmt", "yuv420p",
		outPath,
	)
	if err != nil {
		return "", fmt.Errorf("prepare background: %w", err)
	}
	return outPath, nil
}

// pickClip hashes the work-unit identifier over the sorted clip list so the
// same unit always gets the same background, retries included.
func (b *Background) pickClip(workUnitID string) (string, error) {
	entries, err := os.ReadDir(b.cfg.Video.BackgroundDir)
	if err != nil {
		return "", fmt.Errorf("read background dir: %w", err)
	}

	var clips []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := clipExtensions[ext]; ok {
			clips = append(clips, filepath.Join(b.cfg.Video.BackgroundDir, entry.Name()))
		}
	}
	if len(clips) == 0 {
		return "", fmt.Errorf("no background clips in %s", b.cfg.Video.BackgroundDir)
	}
	sort.Strings(clips)

	hasher := fnv.New32a()
	_, _ = hasher.Write([]byte(workUnitID))
	return clips[int(hasher.Sum32())%len(clips)], nil
}
