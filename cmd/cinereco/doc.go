// Package main hosts the cinereco CLI entrypoint and command graph.
//
// The Cobra command tree builds the movie dataset (build, import), answers
// lookups against the final snapshot (recommend, top), lists the manifest
// (snapshots, runs) and scaffolds configuration. Configuration is resolved
// once per invocation by commandContext; the heavy lifting lives in the
// internal packages.
package main
