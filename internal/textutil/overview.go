package textutil

import "strings"

// OverviewCleaner turns free-text synopses into space-separated lemmas.
type OverviewCleaner struct {
	stopWords StopWords
	lemmatize func(string) string
}

// NewOverviewCleaner returns a cleaner that drops stopWords and lemmatizes the
// remaining tokens with Lemmatize.
func NewOverviewCleaner(stopWords StopWords) *OverviewCleaner {
	return &OverviewCleaner{stopWords: stopWords, lemmatize: Lemmatize}
}

// Clean lowercases text, replaces every character outside a-z with a space,
// drops stop words, lemmatizes what remains and joins the tokens with single
// spaces. Non-ASCII letters are treated as separators, so callers strip
// accents first.
func (c *OverviewCleaner) Clean(text string) string {
	lowered := strings.ToLower(text)
	var b strings.Builder
	b.Grow(len(lowered))
	for i := 0; i < len(lowered); i++ {
		ch := lowered[i]
		if ch >= 'a' && ch <= 'z' {
			b.WriteByte(ch)
			continue
		}
		b.WriteByte(' ')
	}

	words := strings.Fields(b.String())
	kept := words[:0]
	for _, word := range words {
		if c.stopWords.Contains(word) {
			continue
		}
		lemma := c.lemmatize(word)
		if lemma == "" || c.stopWords.Contains(lemma) {
			continue
		}
		kept = append(kept, lemma)
	}
	return strings.Join(kept, " ")
}
