package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// RunStatus is the lifecycle state of a build run.
type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunSucceeded RunStatus = "succeeded"
	RunFailed    RunStatus = "failed"
)

// Run is one build invocation.
type Run struct {
	ID         string
	Kind       string
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt *time.Time
	Discovered int
	Enriched   int
	Rejected   int
	Failed     int
	Reused     bool
	Error      string
}

// Counts are the fetch statistics of a run.
type Counts struct {
	Discovered int
	Enriched   int
	Rejected   int
	Failed     int
}

const runColumns = "id, kind, status, started_at, finished_at, discovered, enriched, rejected, failed, reused, error_message"

// StartRun inserts a running entry.
func (s *Store) StartRun(ctx context.Context, id, kind string, startedAt time.Time) error {
	if id == "" {
		return errors.New("run id required")
	}
	err := s.exec(ctx,
		`INSERT INTO runs (id, kind, status, started_at) VALUES (?, ?, ?, ?)`,
		id, kind, RunRunning, formatTime(startedAt),
	)
	if err != nil {
		return fmt.Errorf("start run %s: %w", id, err)
	}
	return nil
}

// FinishRun stores the final status, counts and error of a run.
func (s *Store) FinishRun(ctx context.Context, id string, status RunStatus, counts Counts, reused bool, runErr error) error {
	message := ""
	if runErr != nil {
		message = runErr.Error()
	}
	reusedFlag := 0
	if reused {
		reusedFlag = 1
	}
	err := s.exec(ctx,
		`UPDATE runs
         SET status = ?, finished_at = ?, discovered = ?, enriched = ?, rejected = ?, failed = ?,
             reused = ?, error_message = ?
         WHERE id = ?`,
		status, formatTime(time.Now()), counts.Discovered, counts.Enriched, counts.Rejected, counts.Failed,
		reusedFlag, nullableString(message), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	return nil
}

// Run returns one run, or nil when id is unknown.
func (s *Store) Run(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// RecentRuns returns up to limit runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+runColumns+` FROM runs ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		out = append(out, *run)
	}
	return out, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (*Run, error) {
	var (
		run         Run
		status      string
		startedRaw  string
		finishedRaw sql.NullString
		reused      int
		message     sql.NullString
	)
	if err := scanner.Scan(&run.ID, &run.Kind, &status, &startedRaw, &finishedRaw,
		&run.Discovered, &run.Enriched, &run.Rejected, &run.Failed, &reused, &message); err != nil {
		return nil, err
	}
	run.Status = RunStatus(status)
	run.Reused = reused != 0
	run.Error = message.String
	if t, err := parseTimeString(startedRaw); err == nil {
		run.StartedAt = t
	}
	if finishedRaw.Valid {
		if t, err := parseTimeString(finishedRaw.String); err == nil {
			run.FinishedAt = &t
		}
	}
	return &run, nil
}
