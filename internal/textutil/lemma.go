package textutil

import (
	"fmt"
	"sync"

	"github.com/aaaton/golem/v4"
	"github.com/aaaton/golem/v4/dicts/en"
)

var englishLemmas = sync.OnceValues(func() (*golem.Lemmatizer, error) {
	lemmatizer, err := golem.New(en.New())
	if err != nil {
		return nil, fmt.Errorf("load english lemma dictionary: %w", err)
	}
	return lemmatizer, nil
})

// LoadLemmatizer loads the English lemma dictionary. Callers that want a
// dictionary failure reported up front call it before cleaning text.
func LoadLemmatizer() error {
	_, err := englishLemmas()
	return err
}

// Lemmatize returns the English dictionary lemma of a lowercase word. Words
// the dictionary does not know, French ones included, come back unchanged, as
// does every word when the dictionary failed to load.
func Lemmatize(word string) string {
	lemmatizer, err := englishLemmas()
	if err != nil {
		return word
	}
	return lemmatizer.Lemma(word)
}
