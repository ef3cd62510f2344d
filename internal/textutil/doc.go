// Package textutil provides the text processing used to normalise catalog
// fields and compare movies.
//
// The primary use cases are:
//   - Stripping diacritics and collapsing name lists into compact tokens
//   - Cleaning synopses: stop-word removal and noun lemmatisation
//   - Building term-frequency fingerprints and computing cosine similarity
//
// Every normalisation helper is idempotent: applying it to its own output
// returns the same string.
package textutil
