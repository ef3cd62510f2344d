// Package manifest records snapshot writes and build runs in a SQLite ledger
// next to the snapshots.
//
// The snapshots table holds the path, row count, content fingerprint and
// producing run of the latest write of each snapshot. The runs table holds
// one row per build with its status and fetch counts.
package manifest
