// Package snapshot persists dataset tables as Parquet files through an
// embedded DuckDB engine.
//
// Each snapshot lives at <dir>/<name>.parquet and is written to a temporary
// sibling first, then renamed into place, so readers never see a partial
// file. List columns are stored as JSON text and decoded against the schema
// the caller supplies on Read.
package snapshot
