package dataset

import (
	"fmt"
	"strings"
)

// yearSuffixLen is the length of a " (YYYY)" suffix.
const yearSuffixLen = 7

// titleKey strips a trailing year suffix so "Up (2009)" and "Up" collide.
// Any title ending in ")" loses its last seven characters (runes, not bytes).
func titleKey(title string) string {
	if !strings.HasSuffix(title, ")") {
		return title
	}
	runes := []rune(title)
	if len(runes) < yearSuffixLen {
		return title
	}
	return string(runes[:len(runes)-yearSuffixLen])
}

// ResolveDuplicateTitles appends " (<year>)" to every titre_str whose key is
// shared with another row, using the row's own date. Titles that already
// carry their year are left alone, so running it twice changes nothing. Rows
// without a year keep their title. Returns the number of titles changed.
func ResolveDuplicateTitles(t *Table) (int, error) {
	titles, err := t.require(colTitle, TypeString)
	if err != nil {
		return 0, err
	}
	dates, err := t.require(colDate, TypeInt)
	if err != nil {
		return 0, fmt.Errorf("resolve duplicate titles needs release years: %w", err)
	}

	counts := make(map[string]int, len(titles.Values))
	for i := range titles.Values {
		counts[titleKey(titles.StringAt(i))]++
	}

	changed := 0
	for i := range titles.Values {
		title := titles.StringAt(i)
		if counts[titleKey(title)] < 2 {
			continue
		}
		year, ok := dates.IntAt(i)
		if !ok {
			continue
		}
		suffix := fmt.Sprintf(" (%d)", year)
		if strings.HasSuffix(title, suffix) {
			continue
		}
		titles.Values[i] = title + suffix
		changed++
	}
	return changed, nil
}
