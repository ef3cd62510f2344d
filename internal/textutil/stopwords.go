package textutil

import (
	"fmt"
	"strings"
	"sync"

	"github.com/blevesearch/bleve/v2/analysis"
	"github.com/blevesearch/bleve/v2/analysis/lang/fr"
)

// StopWords is a set of lowercase words removed from synopses.
type StopWords map[string]struct{}

// Contains reports whether word is a stop word.
func (s StopWords) Contains(word string) bool {
	_, ok := s[word]
	return ok
}

// NewStopWords builds a set from words. Each word is also registered without
// diacritics so the set matches accent-stripped text.
func NewStopWords(words ...string) StopWords {
	set := make(StopWords, len(words)*2)
	for _, word := range words {
		word = strings.ToLower(strings.TrimSpace(word))
		if word == "" {
			continue
		}
		set[word] = struct{}{}
		set[StripAccents(word)] = struct{}{}
	}
	return set
}

var frenchStopWords = sync.OnceValues(func() (StopWords, error) {
	tokens := analysis.NewTokenMap()
	if err := tokens.LoadBytes(fr.FrenchStopWords); err != nil {
		return nil, fmt.Errorf("load french stop words: %w", err)
	}
	words := make([]string, 0, len(tokens))
	for word := range tokens {
		words = append(words, word)
	}
	return NewStopWords(words...), nil
})

// FrenchStopWords returns the Snowball French stop-word list. The set is
// loaded once and shared; callers must not modify it.
func FrenchStopWords() (StopWords, error) {
	return frenchStopWords()
}
