package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gofrs/flock"
	"github.com/google/uuid"

	"cinereco/internal/config"
	"cinereco/internal/dataset"
	"cinereco/internal/fileutil"
	"cinereco/internal/logging"
	"cinereco/internal/manifest"
	"cinereco/internal/snapshot"
	"cinereco/internal/tmdb"
)

// ErrLocked is returned when another process holds the data directory lock.
var ErrLocked = errors.New("data directory locked by another build")

// Stage names used in logs.
const (
	StageDiscover = "discover"
	StageEnrich   = "enrich"
	StageAssemble = "assemble"
	StagePrepare  = "prepare"
	StageFinalize = "finalize"
	StageImport   = "import"
)

// BuildOptions selects how a build obtains its raw data and whether the
// fingerprint cache may be used.
type BuildOptions struct {
	// Force regenerates the final snapshot even when its fingerprint matches.
	Force bool
	// Offline skips the catalog and starts from the existing raw snapshot.
	Offline bool
}

// Result summarises a finished build.
type Result struct {
	RunID       string
	Counts      manifest.Counts
	Reused      bool
	Fingerprint string
	Snapshots   []snapshot.Info
}

// Builder runs builds against one data directory.
type Builder struct {
	cfg        *config.Config
	store      *snapshot.Store
	ledger     *manifest.Store
	assembler  *dataset.Assembler
	normalizer *dataset.Normalizer
	discoverer Discoverer
	enricher   Enricher
	logger     *slog.Logger
	now        func() time.Time
}

// Option configures a Builder.
type Option func(*Builder)

// WithSources sets the catalog sources used by online builds.
func WithSources(discoverer Discoverer, enricher Enricher) Option {
	return func(b *Builder) {
		b.discoverer = discoverer
		b.enricher = enricher
	}
}

// WithClock overrides the clock that bounds the discovery range.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) {
		if now != nil {
			b.now = now
		}
	}
}

// New creates a Builder.
func New(cfg *config.Config, store *snapshot.Store, ledger *manifest.Store, normalizer *dataset.Normalizer, logger *slog.Logger, opts ...Option) *Builder {
	b := &Builder{
		cfg:        cfg,
		store:      store,
		ledger:     ledger,
		assembler:  dataset.NewAssembler(logger),
		normalizer: normalizer,
		logger:     logging.NewComponentLogger(logger, "pipeline"),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) lock() (*flock.Flock, error) {
	lock := flock.New(b.cfg.LockPath())
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, b.cfg.LockPath())
	}
	return lock, nil
}

// Build runs one build and records it in the manifest.
func (b *Builder) Build(ctx context.Context, opts BuildOptions) (result *Result, err error) {
	lock, err := b.lock()
	if err != nil {
		return nil, err
	}
	defer func() {
		if unlockErr := lock.Unlock(); unlockErr != nil {
			b.logger.Warn("failed to release data directory lock", logging.Error(unlockErr))
		}
	}()

	runID := uuid.NewString()
	ctx = logging.WithRunID(ctx, runID)
	logger := logging.WithContext(ctx, b.logger)
	kind := b.cfg.Dataset.Kind

	started := b.now()
	if err := b.ledger.StartRun(ctx, runID, kind, started); err != nil {
		return nil, err
	}
	result = &Result{RunID: runID}
	defer func() {
		status := manifest.RunSucceeded
		if err != nil {
			status = manifest.RunFailed
		}
		finishErr := b.ledger.FinishRun(context.WithoutCancel(ctx), runID, status, result.Counts, result.Reused, err)
		if finishErr != nil {
			logger.Warn("failed to record run outcome", logging.Error(finishErr))
		}
		if err != nil {
			logging.ErrorWithContext(logger, "build failed", "build_failed",
				logging.Error(err),
				logging.Duration("elapsed", time.Since(started)),
			)
			return
		}
		logger.Info("build complete",
			logging.Bool("reused", result.Reused),
			logging.Int("enriched", result.Counts.Enriched),
			logging.Duration("elapsed", time.Since(started)),
		)
	}()

	logger.Info("build started", logging.String("kind", kind), logging.Bool("offline", opts.Offline), logging.Bool("force", opts.Force))

	raw, rawSHA, err := b.rawTable(ctx, runID, opts, result)
	if err != nil {
		return result, err
	}

	fingerprint := Fingerprint(kind, b.normalizer.Settings(), rawSHA)
	result.Fingerprint = fingerprint
	if !opts.Force {
		reuse, err := b.finalCurrent(ctx, fingerprint)
		if err != nil {
			return result, err
		}
		if reuse {
			result.Reused = true
			logger.Info("final snapshot up to date; skipping normalisation",
				logging.String("fingerprint", fingerprint[:12]),
			)
			return result, nil
		}
	}

	if err := b.normalize(ctx, raw, kind, runID, fingerprint, result); err != nil {
		return result, err
	}
	return result, nil
}

// rawTable produces the machine_learning table and the hash of its snapshot
// file, fetching from the catalog unless opts.Offline.
func (b *Builder) rawTable(ctx context.Context, runID string, opts BuildOptions, result *Result) (*dataset.Table, string, error) {
	if opts.Offline {
		raw, err := b.store.Read(ctx, dataset.KindMachineLearning, dataset.RawSchema)
		if err != nil {
			if errors.Is(err, snapshot.ErrNotFound) {
				return nil, "", fmt.Errorf("offline build needs an existing raw snapshot (run 'cinereco build' or 'cinereco import'): %w", err)
			}
			return nil, "", err
		}
		sum, err := fileutil.HashFile(b.store.Path(dataset.KindMachineLearning))
		if err != nil {
			return nil, "", err
		}
		result.Counts.Enriched = raw.Len()
		return raw, sum, nil
	}

	if b.discoverer == nil || b.enricher == nil {
		return nil, "", errors.New("online build requires catalog sources")
	}

	discoverCtx := logging.WithStage(ctx, StageDiscover)
	rng := tmdb.DateRange{Start: b.cfg.DiscoveryStart(), End: b.now().UTC()}
	ids, err := b.discoverer.Discover(discoverCtx, rng, Filters(b.cfg))
	if err != nil {
		return nil, "", fmt.Errorf("discover: %w", err)
	}
	result.Counts.Discovered = len(ids)

	enrichCtx := logging.WithStage(ctx, StageEnrich)
	records, report, err := b.enricher.Enrich(enrichCtx, ids)
	if err != nil {
		return nil, "", fmt.Errorf("enrich: %w", err)
	}
	result.Counts.Enriched = report.Enriched
	result.Counts.Rejected = report.Rejected
	result.Counts.Failed = report.Failed

	assembleCtx := logging.WithStage(ctx, StageAssemble)
	raw, err := b.assembler.Assemble(records)
	if err != nil {
		return nil, "", fmt.Errorf("assemble: %w", err)
	}
	info, err := b.persist(assembleCtx, raw, runID, "", result)
	if err != nil {
		return nil, "", err
	}
	return raw, info.SHA256, nil
}

func (b *Builder) finalCurrent(ctx context.Context, fingerprint string) (bool, error) {
	if !b.store.Exists(dataset.FinalName) {
		return false, nil
	}
	entry, err := b.ledger.Snapshot(ctx, dataset.FinalName)
	if err != nil {
		return false, err
	}
	return entry != nil && entry.Fingerprint == fingerprint, nil
}

func (b *Builder) normalize(ctx context.Context, raw *dataset.Table, kind, runID, fingerprint string, result *Result) error {
	prepareCtx := logging.WithStage(ctx, StagePrepare)
	site, err := b.assembler.Prepare(raw, kind)
	if err != nil {
		return err
	}
	if err := b.normalizer.Prepare(site); err != nil {
		return fmt.Errorf("normalise site_web: %w", err)
	}
	renamed, err := dataset.ResolveDuplicateTitles(site)
	if err != nil {
		return err
	}
	logging.WithContext(prepareCtx, b.logger).Debug("duplicate titles resolved", logging.Int("renamed", renamed))
	if _, err := b.persist(prepareCtx, site, runID, fingerprint, result); err != nil {
		return err
	}

	finalizeCtx := logging.WithStage(ctx, StageFinalize)
	final, err := b.normalizer.Finalize(site, kind)
	if err != nil {
		return fmt.Errorf("finalise: %w", err)
	}
	_, err = b.persist(finalizeCtx, final, runID, fingerprint, result)
	return err
}

func (b *Builder) persist(ctx context.Context, t *dataset.Table, runID, fingerprint string, result *Result) (snapshot.Info, error) {
	info, err := b.store.Write(ctx, t)
	if err != nil {
		return snapshot.Info{}, fmt.Errorf("write snapshot %s: %w", t.Name, err)
	}
	if err := b.ledger.RecordSnapshot(ctx, manifest.Snapshot{
		Name:        info.Name,
		Path:        info.Path,
		Rows:        info.Rows,
		SHA256:      info.SHA256,
		Fingerprint: fingerprint,
		RunID:       runID,
	}); err != nil {
		return snapshot.Info{}, err
	}
	result.Snapshots = append(result.Snapshots, info)
	return info, nil
}

// Import loads an external CSV or Parquet dataset as the raw snapshot under
// the data directory lock. A following offline build normalises it.
func (b *Builder) Import(ctx context.Context, src, format string) (snapshot.Info, error) {
	if _, err := snapshot.ResolveFormat(src, format); err != nil {
		return snapshot.Info{}, err
	}
	lock, err := b.lock()
	if err != nil {
		return snapshot.Info{}, err
	}
	defer func() { _ = lock.Unlock() }()

	ctx = logging.WithStage(ctx, StageImport)
	info, err := b.store.Import(ctx, src, format, dataset.KindMachineLearning, dataset.RawSchema)
	if err != nil {
		return snapshot.Info{}, err
	}
	if err := b.ledger.RecordSnapshot(ctx, manifest.Snapshot{
		Name:   info.Name,
		Path:   info.Path,
		Rows:   info.Rows,
		SHA256: info.SHA256,
	}); err != nil {
		return snapshot.Info{}, err
	}
	return info, nil
}
