package snapshot_test

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"cinereco/internal/dataset"
	"cinereco/internal/snapshot"
)

func openStore(t *testing.T) *snapshot.Store {
	t.Helper()
	store, err := snapshot.Open(t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func mixedTable(t *testing.T) *dataset.Table {
	t.Helper()
	table := dataset.NewTable("mixed")
	release := time.Date(2009, time.May, 28, 0, 0, 0, 0, time.UTC)
	columns := []struct {
		name   string
		typ    dataset.ColumnType
		values []any
	}{
		{"id", dataset.TypeInt, []any{int64(14160), int64(603)}},
		{"title", dataset.TypeString, []any{"Là-haut", "L'odyssée"}},
		{"score", dataset.TypeFloat, []any{7.9, nil}},
		{"released", dataset.TypeDate, []any{release, nil}},
		{"genres", dataset.TypeStringList, []any{[]string{"Animation", "Comédie"}, []string{}}},
		{"cast_ids", dataset.TypeIntList, []any{[]int64{68812, 1131}, []int64{}}},
	}
	for _, c := range columns {
		if err := table.SetColumn(c.name, c.typ, c.values); err != nil {
			t.Fatalf("SetColumn %s: %v", c.name, err)
		}
	}
	return table
}

func TestWriteReadRoundTrip(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()
	table := mixedTable(t)

	info, err := store.Write(ctx, table)
	if err != nil {
		t.Fatalf("Write: %v", err)
	}
	if info.Rows != 2 || info.SHA256 == "" || filepath.Base(info.Path) != "mixed.parquet" {
		t.Fatalf("unexpected info %+v", info)
	}
	entries, _ := os.ReadDir(filepath.Dir(info.Path))
	for _, entry := range entries {
		if strings.HasSuffix(entry.Name(), ".tmp") {
			t.Fatalf("temporary file left behind: %s", entry.Name())
		}
	}

	got, err := store.Read(ctx, "mixed", table.Fields())
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if got.Len() != 2 {
		t.Fatalf("expected 2 rows, got %d", got.Len())
	}
	titles, _ := got.Column("title")
	if titles.StringAt(1) != "L'odyssée" {
		t.Fatalf("title = %q", titles.StringAt(1))
	}
	scores, _ := got.Column("score")
	if scores.Values[1] != nil {
		t.Fatalf("expected null score, got %v", scores.Values[1])
	}
	dates, _ := got.Column("released")
	if d, ok := dates.Values[0].(time.Time); !ok || d.Year() != 2009 || d.Month() != time.May || d.Day() != 28 {
		t.Fatalf("released = %v", dates.Values[0])
	}
	genres, _ := got.Column("genres")
	if !slices.Equal(genres.Values[0].([]string), []string{"Animation", "Comédie"}) {
		t.Fatalf("genres = %v", genres.Values[0])
	}
	ids, _ := got.Column("cast_ids")
	if !slices.Equal(ids.Values[0].([]int64), []int64{68812, 1131}) {
		t.Fatalf("cast_ids = %v", ids.Values[0])
	}

	count, err := store.Count(ctx, "mixed")
	if err != nil || count != 2 {
		t.Fatalf("Count = %d, %v", count, err)
	}
}

func TestReadMissingSnapshot(t *testing.T) {
	store := openStore(t)
	_, err := store.Read(context.Background(), "absent", []dataset.Field{{Name: "id", Type: dataset.TypeInt}})
	if !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestWriteEmptyTable(t *testing.T) {
	store := openStore(t)
	table := dataset.NewTable("empty")
	if err := table.SetColumn("id", dataset.TypeInt, []any{}); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Write(context.Background(), table); err != nil {
		t.Fatalf("Write: %v", err)
	}
	got, err := store.Read(context.Background(), "empty", table.Fields())
	if err != nil || got.Len() != 0 {
		t.Fatalf("Read empty = %v rows, %v", got, err)
	}
}

func TestImportCSV(t *testing.T) {
	store := openStore(t)
	src := filepath.Join(t.TempDir(), "movies.csv")
	csv := "id,title,genres,extra\n603,Matrix,\"[\"\"Action\"\"]\",x\n13,Forrest Gump,\"[]\",y\n"
	if err := os.WriteFile(src, []byte(csv), 0o644); err != nil {
		t.Fatal(err)
	}
	fields := []dataset.Field{
		{Name: "id", Type: dataset.TypeInt},
		{Name: "title", Type: dataset.TypeString},
		{Name: "genres", Type: dataset.TypeStringList},
	}
	info, err := store.Import(context.Background(), src, "", "imported", fields)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if info.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", info.Rows)
	}
	table, err := store.Read(context.Background(), "imported", fields)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	genres, _ := table.Column("genres")
	if !slices.Equal(genres.Values[0].([]string), []string{"Action"}) {
		t.Fatalf("genres = %v", genres.Values[0])
	}
}

func TestImportParquetWithNativeLists(t *testing.T) {
	src := filepath.Join(t.TempDir(), "movies.parquet")
	db, err := sql.Open("duckdb", "")
	if err != nil {
		t.Fatalf("sql.Open: %v", err)
	}
	defer db.Close()
	query := "COPY (SELECT 603 AS id, 'Matrix' AS title, ['Action', 'Science Fiction'] AS genres, [6384, 2975] AS actors_ids) TO '" + src + "' (FORMAT PARQUET)"
	if _, err := db.Exec(query); err != nil {
		t.Fatalf("write parquet: %v", err)
	}

	store := openStore(t)
	fields := []dataset.Field{
		{Name: "id", Type: dataset.TypeInt},
		{Name: "title", Type: dataset.TypeString},
		{Name: "genres", Type: dataset.TypeStringList},
		{Name: "actors_ids", Type: dataset.TypeString},
	}
	if _, err := store.Import(context.Background(), src, "", "imported", fields); err != nil {
		t.Fatalf("Import: %v", err)
	}
	table, err := store.Read(context.Background(), "imported", fields)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	genres, _ := table.Column("genres")
	if !slices.Equal(genres.Values[0].([]string), []string{"Action", "Science Fiction"}) {
		t.Fatalf("genres = %v", genres.Values[0])
	}
	actorIDs, _ := table.Column("actors_ids")
	var ids []int64
	if err := json.Unmarshal([]byte(actorIDs.StringAt(0)), &ids); err != nil || !slices.Equal(ids, []int64{6384, 2975}) {
		t.Fatalf("actors_ids = %q (%v)", actorIDs.StringAt(0), err)
	}
}

func TestImportRejectsMalformedListText(t *testing.T) {
	store := openStore(t)
	src := filepath.Join(t.TempDir(), "movies.csv")
	if err := os.WriteFile(src, []byte("id,genres\n603,\"[Action, Science Fiction]\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	fields := []dataset.Field{
		{Name: "id", Type: dataset.TypeInt},
		{Name: "genres", Type: dataset.TypeStringList},
	}
	if _, err := store.Import(context.Background(), src, "", "imported", fields); err == nil {
		t.Fatal("expected malformed list text to fail the import")
	}
	if store.Exists("imported") {
		t.Fatal("failed import must not leave a snapshot behind")
	}
}

func TestImportRejectsUnknownFormat(t *testing.T) {
	store := openStore(t)
	_, err := store.Import(context.Background(), "movies.xlsx", "", "raw", nil)
	if !errors.Is(err, snapshot.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
	if !strings.Contains(err.Error(), "csv | parquet") {
		t.Fatalf("error should list supported formats: %v", err)
	}
	if _, err := snapshot.ResolveFormat("x.csv", "PARQUET"); err != nil {
		t.Fatalf("explicit format should win: %v", err)
	}
}
