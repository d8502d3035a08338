package service

import (
	"context"
	"errors"
	"fmt"

	"reposync/fetcher"
	"reposync/logger"
	"reposync/models"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds the enrichment fan-out when none is configured.
const DefaultConcurrency = 5

// RepositoryLister abstracts the listing call of the source API
// (for testability)
type RepositoryLister interface {
	ListRepositories(ctx context.Context, account string) ([]models.RawRepository, error)
}

// EnricherInterface abstracts per-repository enrichment. Implementations
// never fail.
type EnricherInterface interface {
	Enrich(ctx context.Context, account, repoName string) fetcher.Enrichment
}

// RecordStore abstracts the persistence operations needed by the service
// (for testability)
type RecordStore interface {
	Put(ctx context.Context, record models.RepositoryRecord) error
	ScanAll(ctx context.Context) ([]models.RepositoryRecord, error)
}

// State names a stage of an ingestion run.
type State string

const (
	StateListing     State = "listing"
	StateFiltering   State = "filtering"
	StateEnriching   State = "enriching"
	StateNormalizing State = "normalizing"
	StateSorting     State = "sorting"
	StatePersisting  State = "persisting"
	StateDone        State = "done"
	StateFailed      State = "failed"
)

// IngestorOptions tunes an Ingestor.
type IngestorOptions struct {
	Concurrency int
	GroupSize   int
}

// Ingestor runs the list, enrich and persist pipeline for one account.
type Ingestor struct {
	lister      RepositoryLister
	enricher    EnricherInterface
	store       RecordStore
	concurrency int
	groupSize   int
}

// NewIngestor creates an Ingestor. Zero options fall back to defaults.
func NewIngestor(lister RepositoryLister, enricher EnricherInterface, store RecordStore, opts IngestorOptions) *Ingestor {
	if opts.Concurrency < 1 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.GroupSize < 1 {
		opts.GroupSize = models.DefaultGroupSize
	}
	return &Ingestor{
		lister:      lister,
		enricher:    enricher,
		store:       store,
		concurrency: opts.Concurrency,
		groupSize:   opts.GroupSize,
	}
}

func logState(log *zap.Logger, state State, fields ...zap.Field) {
	log.Info("Ingestion state changed", append([]zap.Field{zap.String("state", string(state))}, fields...)...)
}

// RunIngestion mirrors the repositories of account into the store and
// returns the number of records written. Forks are skipped. A listing failure
// aborts the run before anything is written; enrichment failures degrade the
// affected fields; write failures are collected and returned together after
// every record has been attempted.
func (i *Ingestor) RunIngestion(ctx context.Context, account string) (int, error) {
	if account == "" {
		return 0, fmt.Errorf("%w: account cannot be empty", ErrConfiguration)
	}

	log := logger.With(zap.String("account", account))

	logState(log, StateListing)
	listing, err := i.lister.ListRepositories(ctx, account)
	if err != nil {
		logState(log, StateFailed, zap.Error(err))
		return 0, fmt.Errorf("%w: failed to list repositories of %s: %w", ErrUpstream, account, err)
	}

	logState(log, StateFiltering, zap.Int("listed", len(listing)))
	sources := make([]models.RawRepository, 0, len(listing))
	for _, raw := range listing {
		if raw.Fork {
			continue
		}
		sources = append(sources, raw)
	}

	logState(log, StateEnriching, zap.Int("repositories", len(sources)), zap.Int("concurrency", i.concurrency))
	enrichments := i.enrichAll(ctx, account, sources)

	logState(log, StateNormalizing)
	records := make([]models.RepositoryRecord, len(sources))
	degraded := 0
	for idx, raw := range sources {
		e := enrichments[idx]
		if e.Degraded() {
			degraded++
		}
		records[idx] = models.Normalize(raw, e.CommitCount, e.ReadmeContent)
	}

	logState(log, StateSorting)
	models.SortByCommitCount(records)
	for n, page := range models.GroupPages(records, i.groupSize) {
		names := make([]string, len(page))
		for k, r := range page {
			names[k] = r.Name
		}
		log.Debug("Page", zap.Int("page", n+1), zap.Strings("repositories", names))
	}

	logState(log, StatePersisting, zap.Int("records", len(records)))
	written := 0
	var errs []error
	for _, record := range records {
		if err := i.store.Put(ctx, record); err != nil {
			log.Error("Failed to store repository", zap.Error(err), zap.String("name", record.Name))
			errs = append(errs, err)
			continue
		}
		written++
	}

	if len(errs) > 0 {
		log.Warn("Ingestion finished with write failures",
			zap.Int("written", written),
			zap.Int("failed", len(errs)))
		return written, fmt.Errorf("%w: %d of %d records not written: %w",
			ErrPersistence, len(errs), len(records), errors.Join(errs...))
	}

	logState(log, StateDone, zap.Int("written", written), zap.Int("degraded", degraded))
	return written, nil
}

// enrichAll resolves every source on a bounded pool. Results keep the order
// of sources.
func (i *Ingestor) enrichAll(ctx context.Context, account string, sources []models.RawRepository) []fetcher.Enrichment {
	results := make([]fetcher.Enrichment, len(sources))

	var g errgroup.Group
	g.SetLimit(i.concurrency)
	for idx, raw := range sources {
		g.Go(func() error {
			results[idx] = i.enricher.Enrich(ctx, account, raw.Name)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
