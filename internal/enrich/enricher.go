package enrich

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"cinereco/internal/logging"
	"cinereco/internal/tmdb"
)

// DetailSource fetches one movie detail payload.
type DetailSource interface {
	MovieDetails(ctx context.Context, movieID int64) (*tmdb.Response, error)
}

// Options tunes an Enricher.
type Options struct {
	Limits         Limits
	Concurrency    int
	LaunchInterval time.Duration
	Logger         *slog.Logger
}

// Enricher turns catalog ids into Records with bounded concurrency and a
// minimum spacing between request launches.
type Enricher struct {
	source      DetailSource
	limits      Limits
	concurrency int
	limiter     *rate.Limiter
	logger      *slog.Logger
}

// New creates an Enricher backed by source.
func New(source DetailSource, opts Options) *Enricher {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	limit := rate.Inf
	if opts.LaunchInterval > 0 {
		limit = rate.Every(opts.LaunchInterval)
	}
	return &Enricher{
		source:      source,
		limits:      opts.Limits,
		concurrency: opts.Concurrency,
		limiter:     rate.NewLimiter(limit, 1),
		logger:      logging.NewComponentLogger(opts.Logger, "enrich"),
	}
}

// EnrichResults fetches and transforms every id. The returned slice is
// indexed like ids; one failing id never aborts the others. The error is
// non-nil only when ctx is cancelled.
func (e *Enricher) EnrichResults(ctx context.Context, ids []int64) ([]Result, error) {
	results := make([]Result, len(ids))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(e.concurrency)
	for i, id := range ids {
		if err := e.limiter.Wait(groupCtx); err != nil {
			break
		}
		group.Go(func() error {
			results[i] = e.enrichOne(groupCtx, id)
			return nil
		})
	}
	_ = group.Wait()
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("enrich: %w", err)
	}
	return results, nil
}

// Enrich returns the accepted records in input order with the batch report.
func (e *Enricher) Enrich(ctx context.Context, ids []int64) ([]Record, Report, error) {
	results, err := e.EnrichResults(ctx, ids)
	if err != nil {
		return nil, Report{Requested: len(ids)}, err
	}
	records := make([]Record, 0, len(results))
	for _, result := range results {
		if result.Err == nil && result.Record != nil {
			records = append(records, *result.Record)
		}
	}
	report := Summarize(results)
	e.logger.Info("enrichment complete",
		logging.Int("requested", report.Requested),
		logging.Int("enriched", report.Enriched),
		logging.Int("rejected", report.Rejected),
		logging.Int("failed", report.Failed),
	)
	return records, report, nil
}

func (e *Enricher) enrichOne(ctx context.Context, id int64) Result {
	result := Result{ID: id}
	resp, err := e.source.MovieDetails(ctx, id)
	switch {
	case err != nil:
		result.Err = fmt.Errorf("fetch movie %d: %w", id, err)
	case !resp.OK():
		result.Err = fmt.Errorf("%w: movie %d returned status %d", ErrRejected, id, resp.StatusCode)
	default:
		result.Record, result.Err = Transform(resp.Body, e.limits)
		if result.Err != nil {
			result.Err = fmt.Errorf("movie %d: %w", id, result.Err)
		}
	}
	if result.Err == nil {
		return result
	}
	if result.Rejected() {
		logging.WarnWithContext(e.logger, "movie rejected",
			"movie_rejected",
			logging.Int64(logging.FieldCatalogID, id),
			logging.Error(result.Err),
			logging.String(logging.FieldErrorHint, "the catalog entry lacks an imdb_id, poster or video list"),
			logging.String(logging.FieldImpact, "movie omitted from the dataset"),
		)
		return result
	}
	if errors.Is(result.Err, context.Canceled) {
		return result
	}
	logging.WarnWithContext(e.logger, "movie enrichment failed",
		"enrich_failed",
		logging.Int64(logging.FieldCatalogID, id),
		logging.Error(result.Err),
		logging.String(logging.FieldImpact, "movie omitted from the dataset"),
	)
	return result
}
