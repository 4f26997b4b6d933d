package stages

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"versemill/internal/config"
	"versemill/internal/queue"
)

// Speech synthesizes the narration audio by invoking the configured
// text-to-speech command. The passage text is passed on stdin; the command
// writes a WAV file at the requested output path.
type Speech struct {
	cfg *config.Config
}

// NewSpeech builds the speech synthesis stage.
func NewSpeech(cfg *config.Config) *Speech {
	return &Speech{cfg: cfg}
}

func (s *Speech) Name() string { return "speech" }

func (s *Speech) Asset() queue.AssetKind { return queue.AssetAudio }

func (s *Speech) Execute(ctx context.Context, job *queue.Job) (string, error) {
	if s.cfg.Speech.Command == "" {
		return "", fmt.Errorf("speech command not configured")
	}

	outPath := filepath.Join(s.cfg.AssetDir("audio"), job.WorkUnitID+".wav")
	args := []string{"--output", outPath}
	if s.cfg.Speech.Voice != "" {
		args = append(args, "--voice", s.cfg.Speech.Voice)
	}

	if _, err := runCommand(ctx, job.Text, s.cfg.Speech.Command, args...); err != nil {
		return "", fmt.Errorf("synthesize speech: %w", err)
	}

	info, err := os.Stat(outPath)
	if err != nil {
		return "", fmt.Errorf("speech output missing: %w", err)
	}
	if info.Size() == 0 {
		return "", fmt.Errorf("speech output %s is empty", outPath)
	}
	return outPath, nil
}
