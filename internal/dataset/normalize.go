package dataset

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"cinereco/internal/textutil"
)

const listSeparator = ", "

// listTextColumns are joined in Prepare and compacted in Finalize.
var listTextColumns = []string{colActors, colGenres, colDirector, colKeywords}

var idListColumns = []string{colActorIDs, colDirectorIDs}

// Normalizer runs the text normalisation stage in two halves around the
// site_web checkpoint.
type Normalizer struct {
	cleaner   *textutil.OverviewCleaner
	stopWords int
}

// NewNormalizer creates a Normalizer whose overview cleaning drops stopWords.
func NewNormalizer(stopWords textutil.StopWords) *Normalizer {
	return &Normalizer{cleaner: textutil.NewOverviewCleaner(stopWords), stopWords: len(stopWords)}
}

// Settings describes the normalisation rules; it feeds the cache fingerprint.
func (n *Normalizer) Settings() string {
	return fmt.Sprintf("join=%q;accents=nfkd-mn;stopwords=%d;lemma=golem-en;compact=space,hyphen,apostrophe,colon", listSeparator, n.stopWords)
}

// Prepare joins the list columns into compact strings, derives titre_clean,
// reduces date to the release year and decodes the id lists. It mutates t and
// fails on a table that was already prepared.
func (n *Normalizer) Prepare(t *Table) error {
	for _, name := range listTextColumns {
		col, err := t.require(name, TypeStringList)
		if err != nil {
			return fmt.Errorf("join list columns: %w", err)
		}
		joined := make([]any, len(col.Values))
		for i, v := range col.Values {
			list, _ := v.([]string)
			joined[i] = strings.ReplaceAll(strings.Join(list, listSeparator), " ", "")
		}
		if err := t.SetColumn(name, TypeString, joined); err != nil {
			return err
		}
	}

	title, err := t.require(colTitle, TypeString)
	if err != nil {
		return err
	}
	lower := cases.Lower(language.Und)
	clean := make([]any, len(title.Values))
	for i := range title.Values {
		clean[i] = lower.String(title.StringAt(i))
	}
	if err := t.SetColumn(colTitleClean, TypeString, clean); err != nil {
		return err
	}

	if err := reduceToYear(t); err != nil {
		return err
	}
	for _, name := range idListColumns {
		if err := decodeIDList(t, name); err != nil {
			return err
		}
	}
	return nil
}

// Finalize strips accents, cleans the overview, compacts the list-text
// columns, projects the final columns of kind and builds one_for_all. t is
// not modified.
func (n *Normalizer) Finalize(t *Table, kind string) (*Table, error) {
	columns, err := FinalColumns(kind)
	if err != nil {
		return nil, err
	}
	work := t.Clone(FinalName)

	accentColumns := append(append([]string{}, listTextColumns...), colTitleClean, colOverview)
	for _, name := range accentColumns {
		if err := mapStrings(work, name, textutil.StripAccents); err != nil {
			return nil, fmt.Errorf("strip accents: %w", err)
		}
	}
	if err := mapStrings(work, colOverview, n.cleaner.Clean); err != nil {
		return nil, fmt.Errorf("clean overview: %w", err)
	}
	for _, name := range listTextColumns {
		if err := mapStrings(work, name, textutil.Compact); err != nil {
			return nil, fmt.Errorf("compact %s: %w", name, err)
		}
	}

	final, err := work.Project(FinalName, columns[:len(columns)-1]...)
	if err != nil {
		return nil, fmt.Errorf("project final columns: %w", err)
	}
	parts := make([]*Column, 0, 4)
	for _, name := range []string{colKeywords, colActors, colDirector, colGenres} {
		col, _ := final.Column(name)
		parts = append(parts, col)
	}
	oneForAll := make([]any, final.Len())
	for i := range oneForAll {
		oneForAll[i] = parts[0].StringAt(i) + " " + parts[1].StringAt(i) + " " + parts[2].StringAt(i) + " " + parts[3].StringAt(i)
	}
	if err := final.SetColumn(colOneForAll, TypeString, oneForAll); err != nil {
		return nil, err
	}
	return final, nil
}

func mapStrings(t *Table, name string, fn func(string) string) error {
	col, err := t.require(name, TypeString)
	if err != nil {
		return err
	}
	for i, v := range col.Values {
		if s, ok := v.(string); ok {
			col.Values[i] = fn(s)
		}
	}
	return nil
}

func reduceToYear(t *Table) error {
	col, err := t.require(colDate, TypeDate, TypeInt)
	if err != nil {
		return err
	}
	if col.Type == TypeInt {
		return nil
	}
	years := make([]any, len(col.Values))
	for i, v := range col.Values {
		if date, ok := v.(time.Time); ok && !date.IsZero() {
			years[i] = int64(date.Year())
		}
	}
	return t.SetColumn(colDate, TypeInt, years)
}

func decodeIDList(t *Table, name string) error {
	col, err := t.require(name, TypeString, TypeIntList)
	if err != nil {
		return err
	}
	if col.Type == TypeIntList {
		return nil
	}
	lists := make([]any, len(col.Values))
	for i, v := range col.Values {
		ids := []int64{}
		if s, ok := v.(string); ok && s != "" {
			if err := json.Unmarshal([]byte(s), &ids); err != nil {
				return fmt.Errorf("decode %s row %d: %w", name, i, err)
			}
		}
		lists[i] = ids
	}
	return t.SetColumn(name, TypeIntList, lists)
}
