package snapshot

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cinereco/internal/dataset"
	"cinereco/internal/fileutil"
	"cinereco/internal/logging"
)

// Supported import formats.
const (
	FormatCSV     = "csv"
	FormatParquet = "parquet"
)

// ResolveFormat normalises format, inferring it from the file extension when
// empty.
func ResolveFormat(path, format string) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	}
	switch format {
	case FormatCSV, FormatParquet:
		return format, nil
	default:
		return "", fmt.Errorf("%w (got %q)", ErrUnsupportedFormat, format)
	}
}

// Import loads an external CSV or Parquet file into snapshot name, casting
// each column of fields to its stored type. The source must carry every
// field as a column; extra columns are dropped.
func (s *Store) Import(ctx context.Context, src, format, name string, fields []dataset.Field) (Info, error) {
	format, err := ResolveFormat(src, format)
	if err != nil {
		return Info{}, err
	}
	if _, err := os.Stat(src); err != nil {
		return Info{}, fmt.Errorf("import source: %w", err)
	}

	reader := "read_parquet(" + quoteLiteral(src) + ")"
	if format == FormatCSV {
		reader = "read_csv_auto(" + quoteLiteral(src) + ", header = true)"
	}
	sourceTypes, err := s.describe(ctx, reader)
	if err != nil {
		return Info{}, fmt.Errorf("import %s as %s: %w", src, format, err)
	}
	selects := make([]string, len(fields))
	var jsonChecks []string
	for i, f := range fields {
		column := quoteIdent(f.Name)
		expr := column
		// Native list columns are stored as JSON text like every other list.
		if strings.HasSuffix(sourceTypes[f.Name], "[]") {
			expr = "to_json(" + column + ")"
		}
		selects[i] = fmt.Sprintf("CAST(%s AS %s) AS %s", expr, sqlType(f.Type), column)
		if f.Type == dataset.TypeStringList || f.Type == dataset.TypeIntList {
			jsonChecks = append(jsonChecks, "NOT json_valid("+column+")")
		}
	}
	projection := fmt.Sprintf("SELECT %s FROM %s", strings.Join(selects, ", "), reader)
	if len(jsonChecks) > 0 {
		var invalid int
		query := fmt.Sprintf("SELECT count(*) FROM (%s) WHERE %s", projection, strings.Join(jsonChecks, " OR "))
		if err := s.db.QueryRowContext(ctx, query).Scan(&invalid); err != nil {
			return Info{}, fmt.Errorf("import %s as %s: %w", src, format, err)
		}
		if invalid > 0 {
			return Info{}, fmt.Errorf("import %s: %d rows hold list columns that are not valid JSON", src, invalid)
		}
	}

	dst := s.Path(name)
	tmp := fileutil.TempSibling(dst)
	stmt := fmt.Sprintf("COPY (%s) TO %s (FORMAT PARQUET, COMPRESSION 'ZSTD')", projection, quoteLiteral(tmp))
	if _, err := s.db.ExecContext(ctx, stmt); err != nil {
		_ = os.Remove(tmp)
		return Info{}, fmt.Errorf("import %s as %s: %w", src, format, err)
	}
	if err := fileutil.ReplaceFile(tmp, dst); err != nil {
		return Info{}, err
	}

	rows, err := s.Count(ctx, name)
	if err != nil {
		return Info{}, err
	}
	sum, err := fileutil.HashFile(dst)
	if err != nil {
		return Info{}, err
	}
	s.logger.Info("snapshot imported",
		logging.String("snapshot", name),
		logging.String("source", src),
		logging.String("format", format),
		logging.Int("rows", rows),
	)
	return Info{Name: name, Path: dst, Rows: rows, SHA256: sum}, nil
}

// describe maps each column of the relation read by reader to its DuckDB
// type name, e.g. "VARCHAR[]" for a list of strings.
func (s *Store) describe(ctx context.Context, reader string) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "DESCRIBE SELECT * FROM "+reader)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	types := make(map[string]string)
	for rows.Next() {
		cells := make([]sql.NullString, len(columns))
		dest := make([]any, len(columns))
		for i := range cells {
			dest[i] = &cells[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, err
		}
		if len(cells) >= 2 {
			types[cells[0].String] = strings.ToUpper(cells[1].String)
		}
	}
	return types, rows.Err()
}
