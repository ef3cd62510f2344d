package tmdb

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"cinereco/internal/logging"
)

const (
	dateLayout = "2006-01-02"

	// DefaultWindowDays is the width of one discovery window.
	DefaultWindowDays = 30
	// DefaultMaxPages is the page ceiling TMDB enforces on discover queries.
	DefaultMaxPages = 500
	// DefaultPageConcurrency bounds in-flight page requests within a window.
	DefaultPageConcurrency = 20
)

// DateRange is an inclusive range of release dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

func (r DateRange) String() string {
	return r.Start.Format(dateLayout) + ".." + r.End.Format(dateLayout)
}

// Windows splits the range into sequential windows of the given width. Each
// window starts the day after the previous one ends; the last may be shorter.
func (r DateRange) Windows(days int) []DateRange {
	if days <= 0 {
		days = DefaultWindowDays
	}
	start := truncateDay(r.Start)
	end := truncateDay(r.End)
	var windows []DateRange
	for !start.After(end) {
		windowEnd := start.AddDate(0, 0, days)
		if windowEnd.After(end) {
			windowEnd = end
		}
		windows = append(windows, DateRange{Start: start, End: windowEnd})
		start = windowEnd.AddDate(0, 0, 1)
	}
	return windows
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DiscoverFilters holds the catalog filters applied to every discover query.
type DiscoverFilters struct {
	MinVoteAverage float64
	MinVoteCount   int
	MinRuntime     int
	MaxRuntime     int
	// ExcludedGenres is passed verbatim as without_genres.
	ExcludedGenres string
}

func (f DiscoverFilters) params(window DateRange, page int) url.Values {
	params := url.Values{}
	params.Set("include_adult", "false")
	params.Set("sort_by", "primary_release_date.desc")
	params.Set("primary_release_date.gte", window.Start.Format(dateLayout))
	params.Set("primary_release_date.lte", window.End.Format(dateLayout))
	params.Set("vote_average.gte", strconv.FormatFloat(f.MinVoteAverage, 'f', -1, 64))
	params.Set("vote_count.gte", strconv.Itoa(f.MinVoteCount))
	if f.MinRuntime > 0 {
		params.Set("with_runtime.gte", strconv.Itoa(f.MinRuntime))
	}
	if f.MaxRuntime > 0 {
		params.Set("with_runtime.lte", strconv.Itoa(f.MaxRuntime))
	}
	if f.ExcludedGenres != "" {
		params.Set("without_genres", f.ExcludedGenres)
	}
	params.Set("page", strconv.Itoa(page))
	return params
}

// DiscoverResult is one movie summary from a discover page.
type DiscoverResult struct {
	ID          int64   `json:"id"`
	Title       string  `json:"title"`
	ReleaseDate string  `json:"release_date"`
	Popularity  float64 `json:"popularity"`
	VoteAverage float64 `json:"vote_average"`
	VoteCount   int64   `json:"vote_count"`
}

// DiscoverPage models one page of the discover endpoint. HasResults is false
// when the payload carried no results key at all.
type DiscoverPage struct {
	Page       int
	TotalPages int
	Results    []DiscoverResult
	HasResults bool
}

type discoverPayload struct {
	Page       int               `json:"page"`
	TotalPages int               `json:"total_pages"`
	Results    *[]DiscoverResult `json:"results"`
}

// Crawler enumerates catalog ids through the paginated discover endpoint.
type Crawler struct {
	client      *Client
	windowDays  int
	maxPages    int
	concurrency int
	logger      *slog.Logger
}

// CrawlerOption configures a Crawler.
type CrawlerOption func(*Crawler)

// WithWindowDays sets the discovery window width.
func WithWindowDays(days int) CrawlerOption {
	return func(c *Crawler) {
		if days > 0 {
			c.windowDays = days
		}
	}
}

// WithMaxPages caps the number of pages fetched per window.
func WithMaxPages(pages int) CrawlerOption {
	return func(c *Crawler) {
		if pages > 0 {
			c.maxPages = pages
		}
	}
}

// WithPageConcurrency bounds concurrent page requests within a window.
func WithPageConcurrency(n int) CrawlerOption {
	return func(c *Crawler) {
		if n > 0 {
			c.concurrency = n
		}
	}
}

// WithCrawlerLogger sets the crawler logger.
func WithCrawlerLogger(logger *slog.Logger) CrawlerOption {
	return func(c *Crawler) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCrawler builds a crawler on top of client.
func NewCrawler(client *Client, opts ...CrawlerOption) *Crawler {
	crawler := &Crawler{
		client:      client,
		windowDays:  DefaultWindowDays,
		maxPages:    DefaultMaxPages,
		concurrency: DefaultPageConcurrency,
		logger:      logging.NewNop(),
	}
	for _, opt := range opts {
		opt(crawler)
	}
	return crawler
}

// Discover returns the sorted, duplicate-free ids of every movie matching
// filters with a primary release date inside rng. Windows are processed one
// after another; pages within a window are fetched concurrently. The first
// fetch error aborts discovery.
func (c *Crawler) Discover(ctx context.Context, rng DateRange, filters DiscoverFilters) ([]int64, error) {
	seen := make(map[int64]struct{})
	windows := rng.Windows(c.windowDays)
	for idx, window := range windows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		pages, err := c.crawlWindow(ctx, window, filters)
		if err != nil {
			return nil, fmt.Errorf("discover window %s: %w", window, err)
		}
		before := len(seen)
		for _, page := range pages {
			for _, result := range page.Results {
				seen[result.ID] = struct{}{}
			}
		}
		c.logger.Debug("discovery window fetched",
			logging.String("window", window.String()),
			logging.Int("window_index", idx+1),
			logging.Int("window_count", len(windows)),
			logging.Int("pages", len(pages)),
			logging.Int("new_ids", len(seen)-before),
		)
	}

	ids := make([]int64, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	c.logger.Info("discovery complete",
		logging.String("range", rng.String()),
		logging.Int("windows", len(windows)),
		logging.Int("ids", len(ids)),
	)
	return ids, nil
}

func (c *Crawler) crawlWindow(ctx context.Context, window DateRange, filters DiscoverFilters) ([]*DiscoverPage, error) {
	first, err := c.FetchPage(ctx, window, filters, 1)
	if err != nil {
		return nil, err
	}
	if first == nil {
		return nil, nil
	}
	total := min(first.TotalPages, c.maxPages)
	if total <= 1 {
		return []*DiscoverPage{first}, nil
	}

	pages := make([]*DiscoverPage, total)
	pages[0] = first
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(c.concurrency)
	for page := 2; page <= total; page++ {
		group.Go(func() error {
			result, err := c.FetchPage(groupCtx, window, filters, page)
			if err != nil {
				return fmt.Errorf("page %d: %w", page, err)
			}
			pages[page-1] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return slices.DeleteFunc(pages, func(p *DiscoverPage) bool { return p == nil }), nil
}

// FetchPage fetches one discover page. It returns nil without error when the
// response is not a success. A page without a results key comes back with
// HasResults false and its TotalPages intact.
func (c *Crawler) FetchPage(ctx context.Context, window DateRange, filters DiscoverFilters, page int) (*DiscoverPage, error) {
	resp, err := c.client.Fetch(ctx, "/discover/movie", filters.params(window, page))
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		c.logger.Debug("discover page skipped",
			logging.String("window", window.String()),
			logging.Int("page", page),
			logging.Int("status", resp.StatusCode),
		)
		return nil, nil
	}
	var payload discoverPayload
	if err := resp.Decode(&payload); err != nil {
		return nil, err
	}
	if payload.Results == nil {
		return &DiscoverPage{Page: payload.Page, TotalPages: payload.TotalPages}, nil
	}
	return &DiscoverPage{
		Page:       payload.Page,
		TotalPages: payload.TotalPages,
		Results:    *payload.Results,
		HasResults: true,
	}, nil
}
