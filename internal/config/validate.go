package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateCorpus(); err != nil {
		return err
	}
	if err := c.validateVideo(); err != nil {
		return err
	}
	if err := c.validatePublish(); err != nil {
		return err
	}
	if err := c.validateScheduler(); err != nil {
		return err
	}
	if err := c.validateRetry(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateCorpus() error {
	if c.Corpus.MinWords <= 0 {
		return errors.New("corpus.min_words must be positive")
	}
	if c.Corpus.MaxWords < c.Corpus.MinWords {
		return errors.New("corpus.max_words must be at least corpus.min_words")
	}
	if strings.TrimSpace(c.Paths.CorpusPath) == "" {
		return errors.New("paths.corpus_path must be set")
	}
	return nil
}

func (c *Config) validateVideo() error {
	if c.Video.Width <= 0 || c.Video.Height <= 0 {
		return errors.New("video.width and video.height must be positive")
	}
	if c.Video.MaxDurationSeconds <= 0 {
		return errors.New("video.max_duration_seconds must be positive")
	}
	if c.Video.WordsPerMinute <= 0 {
		return errors.New("video.words_per_minute must be positive")
	}
	return nil
}

func (c *Config) validatePublish() error {
	if !c.Publish.Enabled {
		return nil
	}
	if c.Publish.ClientID == "" || c.Publish.ClientSecret == "" || c.Publish.RefreshToken == "" {
		return errors.New("publish.client_id, publish.client_secret, and publish.refresh_token are required when publish.enabled is true")
	}
	switch c.Publish.Privacy {
	case "public", "private", "unlisted":
	default:
		return fmt.Errorf("publish.privacy must be public, private, or unlisted (got %q)", c.Publish.Privacy)
	}
	if c.Publish.UploadCost <= 0 {
		return errors.New("publish.upload_cost must be positive")
	}
	if c.Publish.DailyQuotaUnits < c.Publish.UploadCost {
		return errors.New("publish.daily_quota_units must be at least publish.upload_cost")
	}
	for _, value := range c.Publish.UploadTimes {
		if _, _, err := ParseClockTime(value); err != nil {
			return fmt.Errorf("publish.upload_times: %w", err)
		}
	}
	return nil
}

func (c *Config) validateScheduler() error {
	if !c.Scheduler.Enabled {
		return nil
	}
	if c.Scheduler.GenerationIntervalHours <= 0 {
		return errors.New("scheduler.generation_interval_hours must be positive")
	}
	if c.Scheduler.BatchSize <= 0 {
		return errors.New("scheduler.batch_size must be positive")
	}
	if c.Scheduler.RetryIntervalHours <= 0 {
		return errors.New("scheduler.retry_interval_hours must be positive")
	}
	if c.Scheduler.StaleProcessingMinutes <= 0 {
		return errors.New("scheduler.stale_processing_minutes must be positive")
	}
	if _, _, err := ParseClockTime(c.Scheduler.MaintenanceTime); err != nil {
		return fmt.Errorf("scheduler.maintenance_time: %w", err)
	}
	return nil
}

func (c *Config) validateRetry() error {
	if c.Retry.MaxAttempts <= 0 {
		return errors.New("retry.max_attempts must be positive")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "", "console", "json":
	default:
		return fmt.Errorf("logging.format must be console or json (got %q)", c.Logging.Format)
	}
	return nil
}

// ParseClockTime parses an HH:MM time-of-day value.
func ParseClockTime(value string) (hour, minute int, err error) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("invalid time %q, expected HH:MM", value)
	}
	hour, err = strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("invalid hour in %q", value)
	}
	minute, err = strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("invalid minute in %q", value)
	}
	return hour, minute, nil
}
