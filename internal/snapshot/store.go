package snapshot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"

	"cinereco/internal/dataset"
	"cinereco/internal/fileutil"
	"cinereco/internal/logging"
)

const fileExt = ".parquet"

var (
	// ErrNotFound is returned when a snapshot file does not exist.
	ErrNotFound = errors.New("snapshot not found")
	// ErrUnsupportedFormat is returned by Import for formats other than csv and parquet.
	ErrUnsupportedFormat = errors.New("unsupported format: expected csv | parquet")
)

// Info describes a written snapshot.
type Info struct {
	Name   string
	Path   string
	Rows   int
	SHA256 string
}

// Store reads and writes Parquet snapshots in one directory.
type Store struct {
	db     *sql.DB
	dir    string
	logger *slog.Logger
}

// Open creates a Store rooted at dir backed by an in-memory DuckDB.
func Open(dir string, logger *slog.Logger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create snapshot dir: %w", err)
	}
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Store{db: db, dir: dir, logger: logging.NewComponentLogger(logger, "snapshot")}, nil
}

// Close releases the DuckDB engine.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the file path of snapshot name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+fileExt)
}

// Exists reports whether snapshot name is on disk.
func (s *Store) Exists(name string) bool {
	return fileutil.Exists(s.Path(name))
}

// Write persists t as snapshot t.Name, replacing any previous file.
func (s *Store) Write(ctx context.Context, t *dataset.Table) (Info, error) {
	if t == nil || t.Name == "" {
		return Info{}, errors.New("write snapshot: table name required")
	}
	start := time.Now()
	dst := s.Path(t.Name)
	tmp := fileutil.TempSibling(dst)

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return Info{}, fmt.Errorf("acquire duckdb connection: %w", err)
	}
	defer conn.Close()

	staging := "stage_" + sanitizeIdent(t.Name)
	if err := createStaging(ctx, conn, staging, t.Fields()); err != nil {
		return Info{}, err
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx), "DROP TABLE IF EXISTS "+quoteIdent(staging)); err != nil {
			s.logger.Debug("drop staging table failed", logging.String("table", staging), logging.Error(err))
		}
	}()

	if err := insertRows(ctx, conn, staging, t); err != nil {
		return Info{}, err
	}
	copyStmt := fmt.Sprintf("COPY %s TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD')", quoteIdent(staging), quoteLiteral(tmp))
	if _, err := conn.ExecContext(ctx, copyStmt); err != nil {
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("export %s: %w", t.Name, err)
	}
	if err := fileutil.ReplaceFile(tmp, dst); err != nil {
		return Info{}, err
	}

	sum, err := fileutil.HashFile(dst)
	if err != nil {
		return Info{}, err
	}
	info := Info{Name: t.Name, Path: dst, Rows: t.Len(), SHA256: sum}
	s.logger.Info("snapshot written",
		logging.String("snapshot", info.Name),
		logging.Int("rows", info.Rows),
		logging.String("path", info.Path),
		logging.Duration("elapsed", time.Since(start)),
	)
	return info, nil
}

// Read loads snapshot name, decoding each column per fields. Columns absent
// from fields are ignored; fields absent from the file are an error.
func (s *Store) Read(ctx context.Context, name string, fields []dataset.Field) (*dataset.Table, error) {
	path := s.Path(name)
	if !fileutil.Exists(path) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = quoteIdent(f.Name)
	}
	query := fmt.Sprintf("SELECT %s FROM read_parquet(%s)", strings.Join(cols, ", "), quoteLiteral(path))
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", name, err)
	}
	defer rows.Close()

	columns := make([][]any, len(fields))
	for rows.Next() {
		raw := make([]any, len(fields))
		dest := make([]any, len(fields))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan snapshot %s: %w", name, err)
		}
		for i, f := range fields {
			value, err := decodeValue(f, raw[i])
			if err != nil {
				return nil, fmt.Errorf("snapshot %s row %d: %w", name, len(columns[i]), err)
			}
			columns[i] = append(columns[i], value)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshot %s: %w", name, err)
	}

	table := dataset.NewTable(name)
	for i, f := range fields {
		values := columns[i]
		if values == nil {
			values = []any{}
		}
		if err := table.SetColumn(f.Name, f.Type, values); err != nil {
			return nil, err
		}
	}
	return table, nil
}

// Count returns the row count of snapshot name without loading it.
func (s *Store) Count(ctx context.Context, name string) (int, error) {
	path := s.Path(name)
	if !fileutil.Exists(path) {
		return 0, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	var count int64
	query := "SELECT count(*) FROM read_parquet(" + quoteLiteral(path) + ")"
	if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("count snapshot %s: %w", name, err)
	}
	return int(count), nil
}

func createStaging(ctx context.Context, conn *sql.Conn, table string, fields []dataset.Field) error {
	defs := make([]string, len(fields))
	for i, f := range fields {
		defs[i] = quoteIdent(f.Name) + " " + sqlType(f.Type)
	}
	stmt := fmt.Sprintf("CREATE OR REPLACE TEMP TABLE %s (%s)", quoteIdent(table), strings.Join(defs, ", "))
	if _, err := conn.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("create staging table: %w", err)
	}
	return nil
}

func insertRows(ctx context.Context, conn *sql.Conn, table string, t *dataset.Table) error {
	columns := t.Columns()
	if len(columns) == 0 || t.Len() == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(columns)), ", ")
	tx, err := conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), placeholders))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	args := make([]any, len(columns))
	for row := 0; row < t.Len(); row++ {
		for i, col := range columns {
			value, err := encodeValue(col.Type, col.Values[row])
			if err != nil {
				return fmt.Errorf("column %s row %d: %w", col.Name, row, err)
			}
			args[i] = value
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", row, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit insert: %w", err)
	}
	return nil
}
