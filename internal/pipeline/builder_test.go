package pipeline_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gofrs/flock"

	"cinereco/internal/config"
	"cinereco/internal/dataset"
	"cinereco/internal/enrich"
	"cinereco/internal/manifest"
	"cinereco/internal/pipeline"
	"cinereco/internal/snapshot"
	"cinereco/internal/textutil"
	"cinereco/internal/tmdb"
)

type fakeDiscoverer struct {
	ids   []int64
	calls int
	rng   tmdb.DateRange
}

func (f *fakeDiscoverer) Discover(_ context.Context, rng tmdb.DateRange, _ tmdb.DiscoverFilters) ([]int64, error) {
	f.calls++
	f.rng = rng
	return f.ids, nil
}

type fakeEnricher struct {
	records map[int64]enrich.Record
	err     error
}

func (f *fakeEnricher) Enrich(_ context.Context, ids []int64) ([]enrich.Record, enrich.Report, error) {
	if f.err != nil {
		return nil, enrich.Report{}, f.err
	}
	report := enrich.Report{Requested: len(ids)}
	var out []enrich.Record
	for _, id := range ids {
		rec, ok := f.records[id]
		if !ok {
			report.Rejected++
			continue
		}
		out = append(out, rec)
		report.Enriched++
	}
	return out, report, nil
}

func movie(id int64, title, date string) enrich.Record {
	return enrich.Record{
		ID: id, IMDbID: "tt" + title, Title: title, ReleaseDate: date,
		Overview: "Les chats sont là.",
		Genres:   []string{"Animation"}, Keywords: []string{"balloon"},
		Actors: []string{"Ed Asner"}, ActorIDs: []int64{1},
		Directors: []string{"Pete Docter"}, DirectorIDs: []int64{2},
		URL: "u", Image: "i", YouTube: enrich.PlaceholderVideo,
	}
}

type harness struct {
	cfg     *config.Config
	store   *snapshot.Store
	ledger  *manifest.Store
	builder *pipeline.Builder
	disc    *fakeDiscoverer
	enr     *fakeEnricher
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.DataDir = t.TempDir()
	cfg.Paths.LogDir = t.TempDir()

	store, err := snapshot.Open(cfg.Paths.DataDir, nil)
	if err != nil {
		t.Fatalf("snapshot.Open: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	ledger, err := manifest.Open(context.Background(), cfg.ManifestPath())
	if err != nil {
		t.Fatalf("manifest.Open: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })

	h := &harness{
		cfg:    &cfg,
		store:  store,
		ledger: ledger,
		disc:   &fakeDiscoverer{ids: []int64{1, 2, 3, 4}},
		enr: &fakeEnricher{records: map[int64]enrich.Record{
			1: movie(1, "Up", "2009-05-28"),
			2: movie(2, "Up", "1976-01-01"),
			3: movie(3, "Alien", "1979-05-25"),
		}},
	}
	clock := func() time.Time { return time.Date(2024, time.January, 15, 12, 0, 0, 0, time.UTC) }
	h.builder = pipeline.New(h.cfg, store, ledger, dataset.NewNormalizer(textutil.NewStopWords("les", "sont", "la")), nil,
		pipeline.WithSources(h.disc, h.enr), pipeline.WithClock(clock))
	return h
}

func TestBuildWritesSnapshotsAndRecordsRun(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	result, err := h.builder.Build(ctx, pipeline.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if result.Reused {
		t.Fatal("first build must not reuse")
	}
	want := manifest.Counts{Discovered: 4, Enriched: 3, Rejected: 1}
	if result.Counts != want {
		t.Fatalf("counts = %+v, want %+v", result.Counts, want)
	}
	if len(result.Snapshots) != 3 {
		t.Fatalf("expected 3 snapshots, got %+v", result.Snapshots)
	}
	if h.disc.rng.Start.Year() != h.cfg.TMDB.StartYear || h.disc.rng.End.Year() != 2024 {
		t.Fatalf("unexpected discovery range %s", h.disc.rng)
	}

	for _, name := range []string{dataset.KindMachineLearning, dataset.SiteWebName, dataset.FinalName} {
		if _, err := os.Stat(h.cfg.SnapshotPath(name)); err != nil {
			t.Fatalf("snapshot %s missing: %v", name, err)
		}
	}
	schema, _ := dataset.SchemaFor(dataset.FinalName)
	final, err := h.store.Read(ctx, dataset.FinalName, schema)
	if err != nil {
		t.Fatalf("read final: %v", err)
	}
	titles, _ := final.Column("titre_str")
	got := []string{titles.StringAt(0), titles.StringAt(1), titles.StringAt(2)}
	if got[0] != "Up (2009)" || got[1] != "Up (1976)" || got[2] != "Alien" {
		t.Fatalf("duplicate titles not resolved in final snapshot: %v", got)
	}

	run, err := h.ledger.Run(ctx, result.RunID)
	if err != nil || run == nil {
		t.Fatalf("run not recorded: %v", err)
	}
	if run.Status != manifest.RunSucceeded || run.Discovered != 4 || run.Rejected != 1 {
		t.Fatalf("unexpected run %#v", run)
	}
	entry, err := h.ledger.Snapshot(ctx, dataset.FinalName)
	if err != nil || entry == nil || entry.Fingerprint != result.Fingerprint || entry.RunID != result.RunID {
		t.Fatalf("unexpected final manifest entry %#v (%v)", entry, err)
	}
}

func TestOfflineBuildReusesMatchingFingerprint(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	first, err := h.builder.Build(ctx, pipeline.BuildOptions{})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	second, err := h.builder.Build(ctx, pipeline.BuildOptions{Offline: true})
	if err != nil {
		t.Fatalf("offline Build: %v", err)
	}
	if !second.Reused || second.Fingerprint != first.Fingerprint {
		t.Fatalf("expected reuse with the same fingerprint, got %+v", second)
	}
	if h.disc.calls != 1 {
		t.Fatalf("offline build hit the catalog: %d calls", h.disc.calls)
	}

	forced, err := h.builder.Build(ctx, pipeline.BuildOptions{Offline: true, Force: true})
	if err != nil {
		t.Fatalf("forced Build: %v", err)
	}
	if forced.Reused || len(forced.Snapshots) != 2 {
		t.Fatalf("force must regenerate site_web and final, got %+v", forced)
	}
}

func TestOfflineBuildWithoutRawSnapshotFails(t *testing.T) {
	h := newHarness(t)
	_, err := h.builder.Build(context.Background(), pipeline.BuildOptions{Offline: true})
	if !errors.Is(err, snapshot.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	runs, _ := h.ledger.RecentRuns(context.Background(), 1)
	if len(runs) != 1 || runs[0].Status != manifest.RunFailed {
		t.Fatalf("failed run not recorded: %#v", runs)
	}
}

func TestBuildFailsWhenLocked(t *testing.T) {
	h := newHarness(t)
	held := flock.New(h.cfg.LockPath())
	ok, err := held.TryLock()
	if err != nil || !ok {
		t.Fatalf("TryLock: %v %v", ok, err)
	}
	defer held.Unlock()

	if _, err := h.builder.Build(context.Background(), pipeline.BuildOptions{}); !errors.Is(err, pipeline.ErrLocked) {
		t.Fatalf("expected ErrLocked, got %v", err)
	}
}

func TestBuildRecordsEnrichFailure(t *testing.T) {
	h := newHarness(t)
	h.enr.err = context.DeadlineExceeded
	result, err := h.builder.Build(context.Background(), pipeline.BuildOptions{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected wrapped deadline error, got %v", err)
	}
	run, _ := h.ledger.Run(context.Background(), result.RunID)
	if run == nil || run.Status != manifest.RunFailed || run.Error == "" {
		t.Fatalf("unexpected run %#v", run)
	}
}

func TestImportThenOfflineBuild(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "movies.csv")
	header := "id,imdb_id,title,overview,tagline,popularity,release_date,runtime,budget,revenue,vote_average,vote_count,genres,spoken_languages,production_companies_name,production_countries,keywords,actors,actors_ids,director,director_ids,url,image,youtube\n"
	line := `603,tt0133093,Matrix,Un pirate,,80.5,1999-03-31,136,63000000,463517383,8.2,24000,"[""Action""]","[""en""]","[]","[""US""]","[""hacker""]","[""Keanu Reeves""]",[6384],"[""Lana Wachowski""]",[9340],u,i,y` + "\n"
	if err := os.WriteFile(src, []byte(header+line), 0o644); err != nil {
		t.Fatal(err)
	}

	info, err := h.builder.Import(ctx, src, "csv")
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if info.Rows != 1 {
		t.Fatalf("expected 1 imported row, got %d", info.Rows)
	}
	result, err := h.builder.Build(ctx, pipeline.BuildOptions{Offline: true})
	if err != nil {
		t.Fatalf("offline Build: %v", err)
	}
	if result.Reused || result.Counts.Enriched != 1 {
		t.Fatalf("unexpected result %+v", result)
	}

	if _, err := h.builder.Import(ctx, src, "json"); !errors.Is(err, snapshot.ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFingerprintDependsOnInputs(t *testing.T) {
	base := pipeline.Fingerprint("machine_learning", "s", "abc")
	if base != pipeline.Fingerprint("machine_learning", "s", "abc") {
		t.Fatal("fingerprint not deterministic")
	}
	for _, other := range []string{
		pipeline.Fingerprint("other", "s", "abc"),
		pipeline.Fingerprint("machine_learning", "t", "abc"),
		pipeline.Fingerprint("machine_learning", "s", "abd"),
	} {
		if other == base {
			t.Fatal("fingerprint ignored an input")
		}
	}
}
