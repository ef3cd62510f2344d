// Package recommend answers lookups against the final dataset: the nearest
// neighbours of a title by cosine similarity of its one_for_all features, and
// the best rated titles of a genre.
package recommend
