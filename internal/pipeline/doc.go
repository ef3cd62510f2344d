// Package pipeline orchestrates a dataset build: discovery, enrichment,
// assembly, the site_web checkpoint and the final normalised snapshot.
//
// A build holds an exclusive lock on the data directory, records itself in
// the manifest under a fresh run id and skips normalisation when the final
// snapshot's recorded fingerprint still matches its inputs.
package pipeline
