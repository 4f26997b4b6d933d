package config

import "strings"

func (c *Config) normalize() error {
	pathFields := []*string{
		&c.Paths.DataDir,
		&c.Paths.OutputDir,
		&c.Paths.LogDir,
		&c.Paths.CorpusPath,
		&c.Video.BackgroundDir,
	}
	for _, field := range pathFields {
		if strings.TrimSpace(*field) == "" {
			continue
		}
		expanded, err := expandPath(*field)
		if err != nil {
			return err
		}
		*field = expanded
	}

	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	c.Publish.Privacy = strings.ToLower(strings.TrimSpace(c.Publish.Privacy))

	times := make([]string, 0, len(c.Publish.UploadTimes))
	for _, value := range c.Publish.UploadTimes {
		if trimmed := strings.TrimSpace(value); trimmed != "" {
			times = append(times, trimmed)
		}
	}
	c.Publish.UploadTimes = times

	return nil
}
