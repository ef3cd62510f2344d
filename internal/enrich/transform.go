package enrich

import (
	"encoding/json"
	"fmt"
)

// requiredFields must be present and truthy for a payload to be kept.
var requiredFields = []string{"imdb_id", "poster_path", "videos"}

type namedEntry struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type spokenLanguage struct {
	ISO6391 string `json:"iso_639_1"`
}

type productionCountry struct {
	ISO31661 string `json:"iso_3166_1"`
}

type castMember struct {
	ID                 int64  `json:"id"`
	Name               string `json:"name"`
	KnownForDepartment string `json:"known_for_department"`
	Order              int    `json:"order"`
}

type crewMember struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type video struct {
	Key  string `json:"key"`
	Site string `json:"site"`
	Type string `json:"type"`
}

// movieDetail mirrors the detail payload. Pointer fields distinguish an
// absent key from an empty list.
type movieDetail struct {
	ID                  int64                `json:"id"`
	IMDbID              string               `json:"imdb_id"`
	Title               string               `json:"title"`
	Overview            string               `json:"overview"`
	Tagline             string               `json:"tagline"`
	Popularity          float64              `json:"popularity"`
	ReleaseDate         string               `json:"release_date"`
	Runtime             int64                `json:"runtime"`
	Budget              int64                `json:"budget"`
	Revenue             int64                `json:"revenue"`
	VoteAverage         float64              `json:"vote_average"`
	VoteCount           int64                `json:"vote_count"`
	PosterPath          string               `json:"poster_path"`
	Genres              *[]namedEntry        `json:"genres"`
	SpokenLanguages     *[]spokenLanguage    `json:"spoken_languages"`
	ProductionCompanies *[]namedEntry        `json:"production_companies"`
	ProductionCountries *[]productionCountry `json:"production_countries"`
	Keywords            *struct {
		Keywords *[]namedEntry `json:"keywords"`
	} `json:"keywords"`
	Credits *struct {
		Cast *[]castMember `json:"cast"`
		Crew *[]crewMember `json:"crew"`
	} `json:"credits"`
	Videos *struct {
		Results *[]video `json:"results"`
	} `json:"videos"`
}

// Limits caps the list fields carried into a record.
type Limits struct {
	KeywordsMax int
	ActorsMax   int
}

// Transform validates and flattens one detail payload. Payloads missing a
// required field yield an error wrapping ErrRejected; a missing nested
// structure yields *MissingFieldError.
func Transform(payload []byte, limits Limits) (*Record, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(payload, &fields); err != nil {
		return nil, fmt.Errorf("decode detail payload: %w", err)
	}
	for _, key := range requiredFields {
		if !truthy(fields[key]) {
			return nil, fmt.Errorf("%w: %s missing or empty", ErrRejected, key)
		}
	}

	var detail movieDetail
	if err := json.Unmarshal(payload, &detail); err != nil {
		return nil, fmt.Errorf("decode detail payload: %w", err)
	}

	record := &Record{
		ID:          detail.ID,
		IMDbID:      detail.IMDbID,
		Title:       detail.Title,
		Overview:    detail.Overview,
		Tagline:     detail.Tagline,
		Popularity:  detail.Popularity,
		ReleaseDate: detail.ReleaseDate,
		Runtime:     detail.Runtime,
		Budget:      detail.Budget,
		Revenue:     detail.Revenue,
		VoteAverage: detail.VoteAverage,
		VoteCount:   detail.VoteCount,
		URL:         imdbTitleURL + detail.IMDbID,
		Image:       posterBaseURL + detail.PosterPath,
	}

	if detail.Genres == nil {
		return nil, &MissingFieldError{Field: "genres"}
	}
	record.Genres = collect(*detail.Genres, func(e namedEntry) string { return e.Name })

	if detail.SpokenLanguages == nil {
		return nil, &MissingFieldError{Field: "spoken_languages"}
	}
	record.SpokenLanguages = collect(*detail.SpokenLanguages, func(l spokenLanguage) string { return l.ISO6391 })

	if detail.ProductionCompanies == nil {
		return nil, &MissingFieldError{Field: "production_companies"}
	}
	record.ProductionCompanies = collect(*detail.ProductionCompanies, func(e namedEntry) string { return e.Name })

	if detail.ProductionCountries == nil {
		return nil, &MissingFieldError{Field: "production_countries"}
	}
	record.ProductionCountries = collect(*detail.ProductionCountries, func(c productionCountry) string { return c.ISO31661 })

	if detail.Keywords == nil || detail.Keywords.Keywords == nil {
		return nil, &MissingFieldError{Field: "keywords.keywords"}
	}
	keywords := collect(*detail.Keywords.Keywords, func(e namedEntry) string { return e.Name })
	if limits.KeywordsMax > 0 && len(keywords) > limits.KeywordsMax {
		keywords = keywords[:limits.KeywordsMax]
	}
	record.Keywords = keywords

	if detail.Credits == nil || detail.Credits.Cast == nil {
		return nil, &MissingFieldError{Field: "credits.cast"}
	}
	if detail.Credits.Crew == nil {
		return nil, &MissingFieldError{Field: "credits.crew"}
	}
	record.Actors, record.ActorIDs = selectCast(*detail.Credits.Cast, limits.ActorsMax)
	record.Directors, record.DirectorIDs = selectDirectors(*detail.Credits.Crew)

	if detail.Videos == nil || detail.Videos.Results == nil {
		return nil, &MissingFieldError{Field: "videos.results"}
	}
	record.YouTube = trailerLink(*detail.Videos.Results)

	return record, nil
}

func collect[T any](items []T, value func(T) string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if v := value(item); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// selectCast keeps acting credits billed before position limit.
func selectCast(cast []castMember, limit int) ([]string, []int64) {
	names := make([]string, 0, len(cast))
	ids := make([]int64, 0, len(cast))
	for _, member := range cast {
		if member.KnownForDepartment != "Acting" {
			continue
		}
		if limit > 0 && member.Order >= limit {
			continue
		}
		names = append(names, member.Name)
		ids = append(ids, member.ID)
	}
	return names, ids
}

func selectDirectors(crew []crewMember) ([]string, []int64) {
	var names []string
	var ids []int64
	for _, member := range crew {
		if member.Job != "Director" {
			continue
		}
		names = append(names, member.Name)
		ids = append(ids, member.ID)
	}
	if names == nil {
		return []string{}, []int64{}
	}
	return names, ids
}

// trailerLink prefers the first YouTube trailer, then the first video with a
// key, then the placeholder.
func trailerLink(videos []video) string {
	var fallback string
	for _, v := range videos {
		if v.Key == "" || (v.Site != "" && v.Site != "YouTube") {
			continue
		}
		if v.Type == "Trailer" {
			return youtubeWatchURL + v.Key
		}
		if fallback == "" {
			fallback = youtubeWatchURL + v.Key
		}
	}
	if fallback != "" {
		return fallback
	}
	return PlaceholderVideo
}

// truthy applies JSON truthiness: null, false, 0, "", [] and {} are false.
func truthy(raw json.RawMessage) bool {
	if len(raw) == 0 {
		return false
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return false
	}
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	case []any:
		return len(v) > 0
	case map[string]any:
		return len(v) > 0
	default:
		return true
	}
}
