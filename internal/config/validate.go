package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/language"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTMDB(); err != nil {
		return err
	}
	if err := c.validateFetch(); err != nil {
		return err
	}
	if err := c.validateRecommend(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

// ValidateCredentials reports whether the configuration can reach the
// catalog API. Offline commands skip this check.
func (c *Config) ValidateCredentials() error {
	if c.TMDB.APIKey == "" {
		defaultPath, err := DefaultConfigPath()
		if err != nil {
			defaultPath = "~/.config/cinereco/config.toml"
		}
		return fmt.Errorf("tmdb.api_key is required. Set TMDB_API_KEY env var or edit %s (create with 'cinereco config init')", defaultPath)
	}
	return nil
}

func (c *Config) validateTMDB() error {
	if _, err := language.Parse(c.TMDB.Language); err != nil {
		return fmt.Errorf("tmdb.language %q is not a valid language tag: %w", c.TMDB.Language, err)
	}
	if !strings.HasPrefix(c.TMDB.BaseURL, "http://") && !strings.HasPrefix(c.TMDB.BaseURL, "https://") {
		return fmt.Errorf("tmdb.base_url %q must be an http(s) URL", c.TMDB.BaseURL)
	}
	if c.TMDB.StartYear < 1874 || c.TMDB.StartYear > time.Now().Year() {
		return fmt.Errorf("tmdb.start_year must be between 1874 and %d", time.Now().Year())
	}
	if c.TMDB.MinVoteAverage < 0 || c.TMDB.MinVoteAverage > 10 {
		return errors.New("tmdb.min_vote_average must be between 0 and 10")
	}
	if c.TMDB.MinVoteCount < 0 {
		return errors.New("tmdb.min_vote_count must be >= 0")
	}
	if c.TMDB.MinRuntime < 0 {
		return errors.New("tmdb.min_runtime must be >= 0")
	}
	if c.TMDB.MaxRuntime < c.TMDB.MinRuntime {
		return errors.New("tmdb.max_runtime must be greater than or equal to tmdb.min_runtime")
	}
	return ensurePositiveMap(map[string]int{
		"tmdb.keywords_max":    c.TMDB.KeywordsMax,
		"tmdb.actors_max":      c.TMDB.ActorsMax,
		"tmdb.request_timeout": c.TMDB.RequestTimeout,
	})
}

func (c *Config) validateFetch() error {
	if err := ensurePositiveMap(map[string]int{
		"fetch.window_days":              c.Fetch.WindowDays,
		"fetch.max_pages":                c.Fetch.MaxPages,
		"fetch.page_concurrency":         c.Fetch.PageConcurrency,
		"fetch.detail_concurrency":       c.Fetch.DetailConcurrency,
		"fetch.max_attempts":             c.Fetch.MaxAttempts,
		"fetch.initial_backoff_seconds":  c.Fetch.InitialBackoffSeconds,
		"fetch.max_backoff_seconds":      c.Fetch.MaxBackoffSeconds,
		"fetch.breaker_failures":         c.Fetch.BreakerFailures,
		"fetch.breaker_cooldown_seconds": c.Fetch.BreakerCooldownSeconds,
	}); err != nil {
		return err
	}
	if c.Fetch.LaunchIntervalMillis < 0 {
		return errors.New("fetch.launch_interval_ms must be >= 0")
	}
	if c.Fetch.MaxBackoffSeconds < c.Fetch.InitialBackoffSeconds {
		return errors.New("fetch.max_backoff_seconds must be greater than or equal to fetch.initial_backoff_seconds")
	}
	return nil
}

func (c *Config) validateRecommend() error {
	return ensurePositiveMap(map[string]int{
		"recommend.neighbors": c.Recommend.Neighbors,
		"recommend.top_n":     c.Recommend.TopN,
	})
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
