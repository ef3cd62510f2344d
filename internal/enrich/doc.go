// Package enrich turns catalog ids into flat movie records.
//
// For every id it fetches the detail payload (keywords, credits and videos
// appended), rejects payloads missing an IMDb id, a poster or videos, flattens
// the nested lists and derives the IMDb, poster and trailer links. Fetches run
// concurrently with staggered launches. Each id yields its own Result so one
// malformed payload never aborts the batch.
package enrich
