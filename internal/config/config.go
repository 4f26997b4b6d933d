package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir    string `toml:"data_dir"`
	OutputDir  string `toml:"output_dir"`
	LogDir     string `toml:"log_dir"`
	CorpusPath string `toml:"corpus_path"`
}

// Corpus contains work-unit selection filters.
type Corpus struct {
	Books        []string `toml:"books"`
	ExcludeBooks []string `toml:"exclude_books"`
	MinWords     int      `toml:"min_words"`
	MaxWords     int      `toml:"max_words"`
}

// Video contains output video parameters and the background clip source.
type Video struct {
	Width              int    `toml:"width"`
	Height             int    `toml:"height"`
	MaxDurationSeconds int    `toml:"max_duration_seconds"`
	BackgroundDir      string `toml:"background_dir"`
	WordsPerMinute     int    `toml:"words_per_minute"`
}

// Speech contains the text-to-speech tool configuration.
type Speech struct {
	Command string `toml:"command"`
	Voice   string `toml:"voice"`
}

// Alignment contains the optional forced-alignment tool configuration.
// When Command is empty, word timestamps are estimated over the probed audio
// duration, falling back to the configured speaking rate.
type Alignment struct {
	Command string `toml:"command"`
}

// Publish contains upload client and quota configuration.
type Publish struct {
	Enabled             bool     `toml:"enabled"`
	ClientID            string   `toml:"client_id"`
	ClientSecret        string   `toml:"client_secret"`
	RefreshToken        string   `toml:"refresh_token"`
	TokenURL            string   `toml:"token_url"`
	UploadURL           string   `toml:"upload_url"`
	Privacy             string   `toml:"privacy"`
	CategoryID          string   `toml:"category_id"`
	Tags                []string `toml:"tags"`
	TitleTemplate       string   `toml:"title_template"`
	DescriptionTemplate string   `toml:"description_template"`
	DailyQuotaUnits     int64    `toml:"daily_quota_units"`
	UploadCost          int64    `toml:"upload_cost"`
	UploadTimes         []string `toml:"upload_times"`
	RequestTimeout      int      `toml:"request_timeout"`
}

// Scheduler contains timer loop cadences.
type Scheduler struct {
	Enabled                 bool   `toml:"enabled"`
	GenerationIntervalHours int    `toml:"generation_interval_hours"`
	BatchSize               int    `toml:"batch_size"`
	RetryIntervalHours      int    `toml:"retry_interval_hours"`
	MaintenanceTime         string `toml:"maintenance_time"`
	StaleProcessingMinutes  int    `toml:"stale_processing_minutes"`
}

// Retry contains pipeline retry policy.
type Retry struct {
	MaxAttempts int `toml:"max_attempts"`
}

// Storage contains asset retention policy applied during maintenance.
type Storage struct {
	CleanupAfterUpload bool `toml:"cleanup_after_upload"`
	RetentionDays      int  `toml:"retention_days"`
	KeepFinalVideos    bool `toml:"keep_final_videos"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for versemill.
type Config struct {
	Paths     Paths     `toml:"paths"`
	Corpus    Corpus    `toml:"corpus"`
	Video     Video     `toml:"video"`
	Speech    Speech    `toml:"speech"`
	Alignment Alignment `toml:"alignment"`
	Publish   Publish   `toml:"publish"`
	Scheduler Scheduler `toml:"scheduler"`
	Retry     Retry     `toml:"retry"`
	Storage   Storage   `toml:"storage"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/versemill/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned
// config has all path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs("versemill.toml")
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the directories daemon operation requires.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.LogDir,
		c.Paths.OutputDir,
	}
	for _, sub := range assetSubdirs {
		dirs = append(dirs, filepath.Join(c.Paths.OutputDir, sub))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

var assetSubdirs = []string{"backgrounds", "audio", "timestamps", "subtitles", "final"}

// AssetDir returns the output subdirectory for a given asset kind.
func (c *Config) AssetDir(kind string) string {
	return filepath.Join(c.Paths.OutputDir, kind)
}

// FFmpegBinary returns the ffmpeg executable name used by media stages.
func (c *Config) FFmpegBinary() string {
	return "ffmpeg"
}

// FFprobeBinary returns the ffprobe executable name used for media inspection.
func (c *Config) FFprobeBinary() string {
	return "ffprobe"
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
