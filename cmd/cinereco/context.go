package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"cinereco/internal/config"
	"cinereco/internal/dataset"
	"cinereco/internal/logging"
	"cinereco/internal/manifest"
	"cinereco/internal/pipeline"
	"cinereco/internal/snapshot"
	"cinereco/internal/textutil"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
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

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// workspace bundles the stores every data command opens.
type workspace struct {
	cfg      *config.Config
	logger   *slog.Logger
	store    *snapshot.Store
	manifest *manifest.Store
}

func (w *workspace) Close() {
	_ = w.store.Close()
	_ = w.manifest.Close()
}

func (c *commandContext) openWorkspace(ctx context.Context) (*workspace, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, err
	}
	store, err := snapshot.Open(cfg.Paths.DataDir, logger)
	if err != nil {
		return nil, err
	}
	ledger, err := manifest.Open(ctx, cfg.ManifestPath())
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("open manifest: %w", err)
	}
	return &workspace{cfg: cfg, logger: logger, store: store, manifest: ledger}, nil
}

func (w *workspace) builder(opts ...pipeline.Option) (*pipeline.Builder, error) {
	stopWords, err := textutil.FrenchStopWords()
	if err != nil {
		return nil, err
	}
	if err := textutil.LoadLemmatizer(); err != nil {
		return nil, err
	}
	return pipeline.New(w.cfg, w.store, w.manifest, dataset.NewNormalizer(stopWords), w.logger, opts...), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
