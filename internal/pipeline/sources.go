package pipeline

import (
	"context"
	"log/slog"
	"net/http"

	"cinereco/internal/config"
	"cinereco/internal/enrich"
	"cinereco/internal/logging"
	"cinereco/internal/tmdb"
)

// Discoverer enumerates catalog ids.
type Discoverer interface {
	Discover(ctx context.Context, rng tmdb.DateRange, filters tmdb.DiscoverFilters) ([]int64, error)
}

// Enricher turns catalog ids into records.
type Enricher interface {
	Enrich(ctx context.Context, ids []int64) ([]enrich.Record, enrich.Report, error)
}

// NewCatalogSources builds the TMDB-backed discoverer and enricher from cfg.
// Both share one client, so they share its retry policy and circuit breaker.
func NewCatalogSources(cfg *config.Config, logger *slog.Logger) (*tmdb.Crawler, *enrich.Enricher, error) {
	if err := cfg.ValidateCredentials(); err != nil {
		return nil, nil, err
	}
	client, err := tmdb.New(cfg.TMDB.APIKey, cfg.TMDB.BaseURL, cfg.TMDB.Language,
		tmdb.WithHTTPClient(&http.Client{Timeout: cfg.RequestTimeout()}),
		tmdb.WithRetryPolicy(tmdb.RetryPolicy{
			MaxAttempts:    cfg.Fetch.MaxAttempts,
			InitialBackoff: cfg.InitialBackoff(),
			MaxBackoff:     cfg.MaxBackoff(),
		}),
		tmdb.WithBreaker(cfg.Fetch.BreakerFailures, cfg.BreakerCooldown()),
		tmdb.WithLogger(logging.NewComponentLogger(logger, "tmdb")),
	)
	if err != nil {
		return nil, nil, err
	}
	crawler := tmdb.NewCrawler(client,
		tmdb.WithWindowDays(cfg.Fetch.WindowDays),
		tmdb.WithMaxPages(cfg.Fetch.MaxPages),
		tmdb.WithPageConcurrency(cfg.Fetch.PageConcurrency),
		tmdb.WithCrawlerLogger(logging.NewComponentLogger(logger, "discover")),
	)
	enricher := enrich.New(client, enrich.Options{
		Limits:         enrich.Limits{KeywordsMax: cfg.TMDB.KeywordsMax, ActorsMax: cfg.TMDB.ActorsMax},
		Concurrency:    cfg.Fetch.DetailConcurrency,
		LaunchInterval: cfg.LaunchInterval(),
		Logger:         logger,
	})
	return crawler, enricher, nil
}

// Filters returns the discover filters configured in cfg.
func Filters(cfg *config.Config) tmdb.DiscoverFilters {
	return tmdb.DiscoverFilters{
		MinVoteAverage: cfg.TMDB.MinVoteAverage,
		MinVoteCount:   cfg.TMDB.MinVoteCount,
		MinRuntime:     cfg.TMDB.MinRuntime,
		MaxRuntime:     cfg.TMDB.MaxRuntime,
		ExcludedGenres: cfg.TMDB.ExcludedGenres,
	}
}
