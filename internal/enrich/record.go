package enrich

import (
	"errors"
	"fmt"
)

const (
	imdbTitleURL    = "https://www.imdb.com/title/"
	posterBaseURL   = "https://image.tmdb.org/t/p/w500"
	youtubeWatchURL = "https://www.youtube.com/watch?v="
)

// PlaceholderVideo is the trailer link used when a movie has no video.
const PlaceholderVideo = youtubeWatchURL + "dQw4w9WgXcQ"

// Record is one enriched movie. Actors/ActorIDs and Directors/DirectorIDs are
// parallel lists in the same order.
type Record struct {
	ID                  int64
	IMDbID              string
	Title               string
	Overview            string
	Tagline             string
	Popularity          float64
	ReleaseDate         string
	Runtime             int64
	Budget              int64
	Revenue             int64
	VoteAverage         float64
	VoteCount           int64
	Genres              []string
	SpokenLanguages     []string
	ProductionCompanies []string
	ProductionCountries []string
	Keywords            []string
	Actors              []string
	ActorIDs            []int64
	Directors           []string
	DirectorIDs         []int64
	URL                 string
	Image               string
	YouTube             string
}

// ErrRejected marks a payload that lacks a required field (imdb_id,
// poster_path or videos) or was not a successful response.
var ErrRejected = errors.New("record rejected")

// MissingFieldError reports a nested structure absent from an otherwise
// valid payload.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing field %q", e.Field)
}

// Result is the outcome for one catalog id: either Record or Err is set.
type Result struct {
	ID     int64
	Record *Record
	Err    error
}

// Rejected reports whether the id was dropped for missing required fields.
func (r Result) Rejected() bool {
	return r.Err != nil && errors.Is(r.Err, ErrRejected)
}

// Report summarises an enrichment batch.
// Enriched == Requested - Rejected - Failed.
type Report struct {
	Requested int
	Enriched  int
	Rejected  int
	Failed    int
}

// Summarize counts outcomes across results.
func Summarize(results []Result) Report {
	report := Report{Requested: len(results)}
	for _, result := range results {
		switch {
		case result.Err == nil && result.Record != nil:
			report.Enriched++
		case result.Rejected():
			report.Rejected++
		default:
			report.Failed++
		}
	}
	return report
}
