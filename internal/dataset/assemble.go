package dataset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"cinereco/internal/enrich"
	"cinereco/internal/logging"
)

const releaseDateLayout = "2006-01-02"

// Assembler builds tables from enriched records.
type Assembler struct {
	logger *slog.Logger
}

// NewAssembler creates an Assembler.
func NewAssembler(logger *slog.Logger) *Assembler {
	return &Assembler{logger: logging.NewComponentLogger(logger, "dataset")}
}

// Assemble builds the raw machine_learning table: one row per catalog id,
// ordered by id. Later duplicates of an id are dropped.
func (a *Assembler) Assemble(records []enrich.Record) (*Table, error) {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(x, y enrich.Record) int {
		switch {
		case x.ID < y.ID:
			return -1
		case x.ID > y.ID:
			return 1
		}
		return 0
	})
	sorted = slices.CompactFunc(sorted, func(x, y enrich.Record) bool { return x.ID == y.ID })
	if dropped := len(records) - len(sorted); dropped > 0 {
		a.logger.Debug("duplicate catalog ids collapsed", logging.Int("dropped", dropped))
	}

	columns := make(map[string][]any, len(RawSchema))
	for _, f := range RawSchema {
		columns[f.Name] = make([]any, len(sorted))
	}
	for i, r := range sorted {
		actorIDs, err := encodeIDs(r.ActorIDs)
		if err != nil {
			return nil, fmt.Errorf("movie %d: %w", r.ID, err)
		}
		directorIDs, err := encodeIDs(r.DirectorIDs)
		if err != nil {
			return nil, fmt.Errorf("movie %d: %w", r.ID, err)
		}
		row := map[string]any{
			"id":                        r.ID,
			"imdb_id":                   r.IMDbID,
			"title":                     r.Title,
			"overview":                  r.Overview,
			"tagline":                   r.Tagline,
			"popularity":                r.Popularity,
			"release_date":              parseReleaseDate(r.ReleaseDate),
			"runtime":                   r.Runtime,
			"budget":                    r.Budget,
			"revenue":                   r.Revenue,
			"vote_average":              r.VoteAverage,
			"vote_count":                r.VoteCount,
			"genres":                    nonNil(r.Genres),
			"spoken_languages":          nonNil(r.SpokenLanguages),
			"production_companies_name": nonNil(r.ProductionCompanies),
			"production_countries":      nonNil(r.ProductionCountries),
			"keywords":                  nonNil(r.Keywords),
			"actors":                    nonNil(r.Actors),
			"actors_ids":                actorIDs,
			"director":                  nonNil(r.Directors),
			"director_ids":              directorIDs,
			"url":                       r.URL,
			"image":                     r.Image,
			"youtube":                   r.YouTube,
		}
		for name, value := range row {
			columns[name][i] = value
		}
	}

	table := NewTable(KindMachineLearning)
	for _, f := range RawSchema {
		if err := table.SetColumn(f.Name, f.Type, columns[f.Name]); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// Prepare renames the raw table per the declared mapping of kind, keeping
// only mapped columns. The raw table is left untouched.
func (a *Assembler) Prepare(raw *Table, kind string) (*Table, error) {
	mapping, err := MappingFor(kind)
	if err != nil {
		return nil, err
	}
	sources := make([]string, len(mapping))
	for i, m := range mapping {
		sources[i] = m.Source
	}
	prepared, err := raw.Clone(raw.Name).Project(SiteWebName, sources...)
	if err != nil {
		return nil, fmt.Errorf("prepare %s: %w", kind, err)
	}
	for _, m := range mapping {
		if err := prepared.Rename(m.Source, m.Target); err != nil {
			return nil, fmt.Errorf("prepare %s: %w", kind, err)
		}
	}
	return prepared, nil
}

func parseReleaseDate(value string) any {
	if value == "" {
		return nil
	}
	t, err := time.Parse(releaseDateLayout, value)
	if err != nil {
		return nil
	}
	return t
}

func encodeIDs(ids []int64) (string, error) {
	if ids == nil {
		ids = []int64{}
	}
	data, err := json.Marshal(ids)
	if err != nil {
		return "", fmt.Errorf("encode ids: %w", err)
	}
	return string(data), nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
