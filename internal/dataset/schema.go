package dataset

import (
	"errors"
	"fmt"
)

// Snapshot names, also the table names written at each checkpoint.
const (
	KindMachineLearning = "machine_learning"
	SiteWebName         = "site_web"
	FinalName           = "machine_learning_final"
)

// SchemaVersion changes whenever a schema or normalisation rule changes so
// cached final snapshots are rebuilt.
const SchemaVersion = 1

// Column names shared by the normalisation stages.
const (
	colID          = "titre_id"
	colTitle       = "titre_str"
	colGenres      = "titre_genres"
	colActors      = "actors"
	colActorIDs    = "actors_ids"
	colDirector    = "director"
	colDirectorIDs = "director_ids"
	colKeywords    = "keywords"
	colOverview    = "overview"
	colDate        = "date"
	colTitleClean  = "titre_clean"
	colOneForAll   = "one_for_all"
)

// ErrUnknownDataset is returned for a dataset kind with no declared mapping.
var ErrUnknownDataset = errors.New("unknown dataset")

// Mapping renames a raw column.
type Mapping struct {
	Source string
	Target string
}

// RawSchema is the assembled machine_learning table.
var RawSchema = []Field{
	{"id", TypeInt},
	{"imdb_id", TypeString},
	{"title", TypeString},
	{"overview", TypeString},
	{"tagline", TypeString},
	{"popularity", TypeFloat},
	{"release_date", TypeDate},
	{"runtime", TypeInt},
	{"budget", TypeInt},
	{"revenue", TypeInt},
	{"vote_average", TypeFloat},
	{"vote_count", TypeInt},
	{"genres", TypeStringList},
	{"spoken_languages", TypeStringList},
	{"production_companies_name", TypeStringList},
	{"production_countries", TypeStringList},
	{"keywords", TypeStringList},
	{"actors", TypeStringList},
	{"actors_ids", TypeString},
	{"director", TypeStringList},
	{"director_ids", TypeString},
	{"url", TypeString},
	{"image", TypeString},
	{"youtube", TypeString},
}

var mappings = map[string][]Mapping{
	KindMachineLearning: {
		{"id", colID},
		{"imdb_id", "imdb_id"},
		{"title", colTitle},
		{"genres", colGenres},
		{"actors", colActors},
		{"actors_ids", colActorIDs},
		{"director", colDirector},
		{"director_ids", colDirectorIDs},
		{"keywords", colKeywords},
		{"overview", colOverview},
		{"popularity", "popularity"},
		{"release_date", colDate},
		{"vote_average", "rating_avg"},
		{"vote_count", "rating_vote"},
		{"url", "url"},
		{"image", "image"},
		{"youtube", "youtube"},
	},
}

// MappingFor returns the declared column mapping of kind.
func MappingFor(kind string) ([]Mapping, error) {
	m, ok := mappings[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, kind)
	}
	return m, nil
}

// FinalColumns lists the columns of the final snapshot of kind in order.
func FinalColumns(kind string) ([]string, error) {
	m, err := MappingFor(kind)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, len(m)+2)
	for _, entry := range m {
		cols = append(cols, entry.Target)
	}
	return append(cols, colTitleClean, colOneForAll), nil
}

// SchemaFor returns the persisted schema of a snapshot.
func SchemaFor(snapshot string) ([]Field, error) {
	switch snapshot {
	case KindMachineLearning:
		return RawSchema, nil
	case SiteWebName:
		return siteWebSchema(), nil
	case FinalName:
		return finalSchema(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDataset, snapshot)
	}
}

// siteWebSchema is the renamed table after normalisation steps 1 to 4.
func siteWebSchema() []Field {
	fields := renamedSchema(KindMachineLearning)
	for i := range fields {
		switch fields[i].Name {
		case colGenres, colActors, colDirector, colKeywords:
			fields[i].Type = TypeString
		case colDate:
			fields[i].Type = TypeInt
		case colActorIDs, colDirectorIDs:
			fields[i].Type = TypeIntList
		}
	}
	return append(fields, Field{colTitleClean, TypeString})
}

func finalSchema() []Field {
	return append(siteWebSchema(), Field{colOneForAll, TypeString})
}

func renamedSchema(kind string) []Field {
	types := make(map[string]ColumnType, len(RawSchema))
	for _, f := range RawSchema {
		types[f.Name] = f.Type
	}
	var fields []Field
	for _, m := range mappings[kind] {
		fields = append(fields, Field{m.Target, types[m.Source]})
	}
	return fields
}
