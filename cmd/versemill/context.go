package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"

	"versemill/internal/catalog"
	"versemill/internal/config"
	"versemill/internal/logging"
	"versemill/internal/pipeline"
	"versemill/internal/publish"
	"versemill/internal/publish/youtube"
	"versemill/internal/queue"
	"versemill/internal/retry"
	"versemill/internal/selector"
	"versemill/internal/stages"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) configValue() *config.Config {
	cfg, _ := c.ensureConfig()
	return cfg
}

// buildLogger constructs the process logger. Without an explicit format the
// console handler is used on a terminal and JSON otherwise.
func (c *commandContext) buildLogger(cfg *config.Config) (*slog.Logger, error) {
	format := cfg.Logging.Format
	if format == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) {
			format = "console"
		} else {
			format = "json"
		}
	}
	return logging.NewForDir(cfg.Paths.LogDir, cfg.Logging.Level, format)
}

// runtime bundles the wired components one-shot commands need.
type runtime struct {
	cfg         *config.Config
	logger      *slog.Logger
	store       *queue.Store
	catalog     *catalog.Catalog
	selector    *selector.Selector
	producer    *pipeline.Producer
	retries     *retry.Manager
	coordinator *publish.Coordinator
}

func (c *commandContext) openRuntime() (*runtime, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}

	logger, err := c.buildLogger(cfg)
	if err != nil {
		return nil, err
	}

	store, err := queue.Open(cfg)
	if err != nil {
		return nil, fmt.Errorf("open job store: %w", err)
	}

	// A crash during an earlier run can strand a job in processing, where
	// neither selection nor retry sweeps will see it. Fail it over here so
	// one-shot commands recover the same way the daemon does at startup.
	if minutes := cfg.Scheduler.StaleProcessingMinutes; minutes > 0 {
		cutoff := time.Now().Add(-time.Duration(minutes) * time.Minute)
		recovered, err := store.FailStaleProcessing(context.Background(), cutoff)
		if err != nil {
			store.Close()
			return nil, fmt.Errorf("recover stale processing jobs: %w", err)
		}
		if recovered > 0 {
			logger.Warn("recovered stale processing jobs", "count", recovered)
		}
	}

	cat, err := catalog.Load(cfg.Paths.CorpusPath)
	if err != nil {
		store.Close()
		return nil, err
	}

	sel := selector.New(cat, store, cfg, logger)
	runner := pipeline.NewRunner(store, stages.Chain(cfg), logger)
	producer := pipeline.NewProducer(sel, runner, store, logger)
	retries := retry.NewManager(store, runner, cfg.Retry.MaxAttempts, logger)
	coordinator := publish.NewCoordinator(store, youtube.NewClient(cfg.Publish), cfg, logger)

	return &runtime{
		cfg:         cfg,
		logger:      logger,
		store:       store,
		catalog:     cat,
		selector:    sel,
		producer:    producer,
		retries:     retries,
		coordinator: coordinator,
	}, nil
}

func (r *runtime) Close() {
	if r.store != nil {
		_ = r.store.Close()
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
