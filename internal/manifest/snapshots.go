package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Snapshot is the ledger entry of one snapshot file.
type Snapshot struct {
	Name        string
	Path        string
	Rows        int
	SHA256      string
	Fingerprint string
	RunID       string
	WrittenAt   time.Time
}

const snapshotColumns = "name, path, rows, sha256, fingerprint, run_id, written_at"

// RecordSnapshot upserts the entry for snap.Name. A zero WrittenAt is set to now.
func (s *Store) RecordSnapshot(ctx context.Context, snap Snapshot) error {
	if snap.Name == "" {
		return errors.New("snapshot name required")
	}
	if snap.WrittenAt.IsZero() {
		snap.WrittenAt = time.Now()
	}
	err := s.exec(ctx,
		`INSERT INTO snapshots (`+snapshotColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(name) DO UPDATE SET
             path = excluded.path, rows = excluded.rows, sha256 = excluded.sha256,
             fingerprint = excluded.fingerprint, run_id = excluded.run_id,
             written_at = excluded.written_at`,
		snap.Name,
		snap.Path,
		snap.Rows,
		snap.SHA256,
		nullableString(snap.Fingerprint),
		nullableString(snap.RunID),
		formatTime(snap.WrittenAt),
	)
	if err != nil {
		return fmt.Errorf("record snapshot %s: %w", snap.Name, err)
	}
	return nil
}

// Snapshot returns the entry for name, or nil when none was recorded.
func (s *Store) Snapshot(ctx context.Context, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots WHERE name = ?`, name)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot %s: %w", name, err)
	}
	return snap, nil
}

// Snapshots lists every entry ordered by name.
func (s *Store) Snapshots(ctx context.Context) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+snapshotColumns+` FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

func scanSnapshot(scanner interface{ Scan(dest ...any) error }) (*Snapshot, error) {
	var (
		snap        Snapshot
		fingerprint sql.NullString
		runID       sql.NullString
		writtenRaw  string
	)
	if err := scanner.Scan(&snap.Name, &snap.Path, &snap.Rows, &snap.SHA256, &fingerprint, &runID, &writtenRaw); err != nil {
		return nil, err
	}
	snap.Fingerprint = fingerprint.String
	snap.RunID = runID.String
	if t, err := parseTimeString(writtenRaw); err == nil {
		snap.WrittenAt = t
	}
	return &snap, nil
}
