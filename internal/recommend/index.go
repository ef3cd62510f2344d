package recommend

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"cinereco/internal/dataset"
	"cinereco/internal/textutil"
)

// ErrTitleNotFound is returned when a lookup title is not in the dataset.
var ErrTitleNotFound = errors.New("title not found")

// Movie is one row of the final dataset as shown to users.
type Movie struct {
	ID      int64
	Title   string
	Year    int64
	Genres  string
	Rating  float64
	Votes   int64
	URL     string
	Image   string
	YouTube string
}

// Match is a neighbour with its similarity to the query.
type Match struct {
	Movie
	Score float64
}

// Index holds fingerprints of every movie in a final table.
type Index struct {
	movies  []Movie
	genres  [][]string
	prints  []*textutil.Fingerprint
	byTitle map[string][]int
}

// Option configures an Index.
type Option func(*indexOptions)

type indexOptions struct {
	idf bool
}

// WithIDF weights shared features by inverse document frequency so common
// genres count less than rare keywords.
func WithIDF() Option {
	return func(o *indexOptions) { o.idf = true }
}

var requiredColumns = []string{"titre_id", "titre_str", "titre_genres", "date", "rating_avg", "rating_vote", "url", "image", "youtube", "one_for_all"}

// NewIndex builds an Index from a machine_learning_final table.
func NewIndex(t *dataset.Table, opts ...Option) (*Index, error) {
	var options indexOptions
	for _, opt := range opts {
		opt(&options)
	}
	cols := make(map[string]*dataset.Column, len(requiredColumns))
	for _, name := range requiredColumns {
		col, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("table %q has no column %q", t.Name, name)
		}
		cols[name] = col
	}

	n := t.Len()
	idx := &Index{
		movies:  make([]Movie, n),
		genres:  make([][]string, n),
		prints:  make([]*textutil.Fingerprint, n),
		byTitle: make(map[string][]int, n),
	}
	corpus := textutil.NewCorpus()
	for i := 0; i < n; i++ {
		id, _ := cols["titre_id"].IntAt(i)
		year, _ := cols["date"].IntAt(i)
		votes, _ := cols["rating_vote"].IntAt(i)
		movie := Movie{
			ID:      id,
			Title:   cols["titre_str"].StringAt(i),
			Year:    year,
			Genres:  cols["titre_genres"].StringAt(i),
			Rating:  cols["rating_avg"].FloatAt(i),
			Votes:   votes,
			URL:     cols["url"].StringAt(i),
			Image:   cols["image"].StringAt(i),
			YouTube: cols["youtube"].StringAt(i),
		}
		idx.movies[i] = movie
		idx.genres[i] = strings.Split(movie.Genres, ",")
		idx.prints[i] = textutil.NewFingerprint(cols["one_for_all"].StringAt(i))
		corpus.Add(idx.prints[i])
		key := titleKey(movie.Title)
		idx.byTitle[key] = append(idx.byTitle[key], i)
	}
	if options.idf {
		weights := corpus.IDF()
		for i, fp := range idx.prints {
			idx.prints[i] = fp.WithIDF(weights)
		}
	}
	return idx, nil
}

// Len returns the number of indexed movies.
func (ix *Index) Len() int { return len(ix.movies) }

// Lookup returns the movie titled title, matched case and accent insensitively.
func (ix *Index) Lookup(title string) (Movie, error) {
	pos, err := ix.find(title)
	if err != nil {
		return Movie{}, err
	}
	return ix.movies[pos], nil
}

func (ix *Index) find(title string) (int, error) {
	positions := ix.byTitle[titleKey(title)]
	if len(positions) == 0 {
		return 0, fmt.Errorf("%w: %q", ErrTitleNotFound, title)
	}
	return positions[0], nil
}

// Similar returns the k movies most similar to title, best first, never
// including title itself. Ties are broken by catalog id.
func (ix *Index) Similar(title string, k int) ([]Match, error) {
	query, err := ix.find(title)
	if err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, nil
	}
	matches := make([]Match, 0, len(ix.movies)-1)
	for i, fp := range ix.prints {
		if i == query {
			continue
		}
		matches = append(matches, Match{Movie: ix.movies[i], Score: textutil.CosineSimilarity(ix.prints[query], fp)})
	}
	slices.SortFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// TopRated returns up to n movies whose genres include genre, ordered by
// rating then vote count. An empty genre matches every movie.
func (ix *Index) TopRated(genre string, n int) []Movie {
	want := textutil.Compact(textutil.StripAccents(genre))
	var out []Movie
	for i, movie := range ix.movies {
		if want != "" && !slices.Contains(ix.genres[i], want) {
			continue
		}
		out = append(out, movie)
	}
	slices.SortFunc(out, func(a, b Movie) int {
		if c := cmp.Compare(b.Rating, a.Rating); c != 0 {
			return c
		}
		if c := cmp.Compare(b.Votes, a.Votes); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func titleKey(title string) string {
	return strings.ToLower(textutil.StripAccents(strings.TrimSpace(title)))
}
