// Package tmdb provides the TMDB catalog client used to build the
// recommendation dataset.
//
// Client.Fetch is the single entry point for HTTP traffic: it injects the API
// key and language, retries HTTP 429 responses with bounded exponential
// backoff, and runs every request through a circuit breaker so a failing
// upstream is not hammered. Non-success responses other than 429 are returned
// to the caller untouched. Crawler walks the discover endpoint over sequential
// date windows and fans out page requests with a bounded errgroup.
package tmdb
