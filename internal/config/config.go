package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Paths contains directory configuration.
type Paths struct {
	DataDir string `toml:"data_dir"`
	LogDir  string `toml:"log_dir"`
}

// TMDB contains configuration for The Movie Database API and the catalog
// filters applied during discovery and enrichment.
type TMDB struct {
	APIKey         string  `toml:"api_key"`
	BaseURL        string  `toml:"base_url"`
	Language       string  `toml:"language"`
	StartYear      int     `toml:"start_year"`
	MinVoteAverage float64 `toml:"min_vote_average"`
	MinVoteCount   int     `toml:"min_vote_count"`
	MinRuntime     int     `toml:"min_runtime"`
	MaxRuntime     int     `toml:"max_runtime"`
	ExcludedGenres string  `toml:"excluded_genres"`
	KeywordsMax    int     `toml:"keywords_max"`
	ActorsMax      int     `toml:"actors_max"`
	RequestTimeout int     `toml:"request_timeout"`
}

// Fetch contains concurrency and rate-limit tuning for catalog requests.
type Fetch struct {
	WindowDays             int `toml:"window_days"`
	MaxPages               int `toml:"max_pages"`
	PageConcurrency        int `toml:"page_concurrency"`
	DetailConcurrency      int `toml:"detail_concurrency"`
	LaunchIntervalMillis   int `toml:"launch_interval_ms"`
	MaxAttempts            int `toml:"max_attempts"`
	InitialBackoffSeconds  int `toml:"initial_backoff_seconds"`
	MaxBackoffSeconds      int `toml:"max_backoff_seconds"`
	BreakerFailures        int `toml:"breaker_failures"`
	BreakerCooldownSeconds int `toml:"breaker_cooldown_seconds"`
}

// Dataset contains configuration for the assembled dataset.
type Dataset struct {
	Kind string `toml:"kind"`
}

// Recommend contains configuration for nearest-neighbour lookups.
type Recommend struct {
	Neighbors int `toml:"neighbors"`
	TopN      int `toml:"top_n"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for cinereco.
//
// Configuration sections by subsystem:
//   - Paths: snapshot and log directories
//   - TMDB: catalog credentials and discovery filters
//   - Fetch: paging, concurrency and retry tuning
//   - Dataset: which declared schema the pipeline assembles
//   - Recommend: neighbour and top-list sizes
//   - Logging: log format and level
type Config struct {
	Paths     Paths     `toml:"paths"`
	TMDB      TMDB      `toml:"tmdb"`
	Fetch     Fetch     `toml:"fetch"`
	Dataset   Dataset   `toml:"dataset"`
	Recommend Recommend `toml:"recommend"`
	Logging   Logging   `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath("~/.config/cinereco/config.toml")
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
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

	projectPath, err := filepath.Abs("cinereco.toml")
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

// EnsureDirectories creates the data and log directories.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.Paths.DataDir, c.Paths.LogDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// SnapshotPath returns the Parquet file path for the named snapshot.
func (c *Config) SnapshotPath(name string) string {
	return filepath.Join(c.Paths.DataDir, name+".parquet")
}

// ManifestPath returns the location of the snapshot ledger database.
func (c *Config) ManifestPath() string {
	return filepath.Join(c.Paths.DataDir, "manifest.db")
}

// LockPath returns the location of the data directory writer lock.
func (c *Config) LockPath() string {
	return filepath.Join(c.Paths.DataDir, ".cinereco.lock")
}

// LogFilePath returns the file that receives a copy of CLI logs.
func (c *Config) LogFilePath() string {
	return filepath.Join(c.Paths.LogDir, "cinereco.log")
}

// RequestTimeout returns the per-request HTTP timeout.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.TMDB.RequestTimeout) * time.Second
}

// LaunchInterval returns the minimum delay between detail request launches.
func (c *Config) LaunchInterval() time.Duration {
	return time.Duration(c.Fetch.LaunchIntervalMillis) * time.Millisecond
}

// InitialBackoff returns the first rate-limit backoff delay.
func (c *Config) InitialBackoff() time.Duration {
	return time.Duration(c.Fetch.InitialBackoffSeconds) * time.Second
}

// MaxBackoff returns the rate-limit backoff ceiling.
func (c *Config) MaxBackoff() time.Duration {
	return time.Duration(c.Fetch.MaxBackoffSeconds) * time.Second
}

// BreakerCooldown returns how long an open circuit rejects requests.
func (c *Config) BreakerCooldown() time.Duration {
	return time.Duration(c.Fetch.BreakerCooldownSeconds) * time.Second
}

// DiscoveryStart returns January 1st of the configured start year.
func (c *Config) DiscoveryStart() time.Time {
	return time.Date(c.TMDB.StartYear, time.January, 1, 0, 0, 0, 0, time.UTC)
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
