package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"reposync/config"
	"reposync/db"
	"reposync/fetcher"
	"reposync/github"
	"reposync/logger"
	"reposync/models"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Service represents the main application service
type Service struct {
	config   *config.Config
	store    *db.RepositoryStore
	ingestor *Ingestor
}

// NewService wires the GitHub client, enricher, store and ingestor described
// by cfg. Every failure is reported as ErrConfiguration.
func NewService(ctx context.Context, cfg *config.Config) (*Service, error) {
	if cfg == nil || cfg.GitHubAccount == "" {
		return nil, fmt.Errorf("%w: %w", ErrConfiguration, config.ErrMissingAccount)
	}

	client, err := github.NewClient(github.Options{
		BaseURL:            cfg.GitHubAPIURL,
		Token:              cfg.GitHubToken,
		UserAgent:          cfg.UserAgent,
		Timeout:            cfg.HTTPTimeout,
		RateLimit:          rate.Limit(cfg.RateLimitRPS),
		Burst:              cfg.RateLimitBurst,
		FollowListingPages: cfg.FollowListingPages,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create GitHub client: %w", ErrConfiguration, err)
	}

	items, err := db.Open(ctx, storeOptions(cfg))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open store: %w", ErrConfiguration, err)
	}

	logger.Info("Service initialized successfully",
		zap.String("account", cfg.GitHubAccount),
		zap.String("store_backend", cfg.StoreBackend),
		zap.String("store_location", cfg.StoreLocation),
		zap.Duration("sync_interval", cfg.SyncInterval))

	return newService(cfg, client, fetcher.NewEnricher(client, cfg.FetchReadme), db.NewRepositoryStore(items)), nil
}

func newService(cfg *config.Config, lister RepositoryLister, enricher EnricherInterface, store *db.RepositoryStore) *Service {
	return &Service{
		config: cfg,
		store:  store,
		ingestor: NewIngestor(lister, enricher, store, IngestorOptions{
			Concurrency: cfg.EnrichConcurrency,
			GroupSize:   cfg.PageGroupSize,
		}),
	}
}

func storeOptions(cfg *config.Config) db.Options {
	return db.Options{
		Backend:  cfg.StoreBackend,
		Location: cfg.StoreLocation,
		BoltPath: cfg.BoltPath,
		Postgres: db.PostgresConfig{
			Host:            cfg.PostgresHost,
			Port:            cfg.PostgresPort,
			User:            cfg.PostgresUser,
			Password:        cfg.PostgresPassword,
			Database:        cfg.PostgresDB,
			SSLMode:         cfg.PostgresSSLMode,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		},
		DatastoreProject: cfg.DatastoreProject,
	}
}

// Start runs one ingestion. With a sync interval configured it keeps running
// one ingestion per tick until ctx is cancelled; failed runs are logged and
// the loop continues.
func (s *Service) Start(ctx context.Context) error {
	if s.config.SyncInterval <= 0 {
		_, err := s.RunOnce(ctx)
		return err
	}

	s.startMonitoring(ctx, s.config.SyncInterval)
	return nil
}

// RunOnce performs a single ingestion for the configured account.
func (s *Service) RunOnce(ctx context.Context) (int, error) {
	start := time.Now()
	written, err := s.ingestor.RunIngestion(ctx, s.config.GitHubAccount)
	if err != nil {
		logger.Error("Ingestion failed",
			zap.Error(err),
			zap.String("account", s.config.GitHubAccount),
			zap.Int("written", written),
			zap.Duration("elapsed", time.Since(start)))
		return written, err
	}

	logger.Info("Ingestion completed",
		zap.String("account", s.config.GitHubAccount),
		zap.Int("written", written),
		zap.Duration("elapsed", time.Since(start)))
	return written, nil
}

// startMonitoring blocks until ctx is cancelled.
func (s *Service) startMonitoring(ctx context.Context, interval time.Duration) {
	logger.Info("Starting periodic sync", zap.Duration("interval", interval))

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := s.RunOnce(ctx); errors.Is(err, ErrConfiguration) {
			logger.Error("Stopping periodic sync", zap.Error(err))
			return
		}

		select {
		case <-ctx.Done():
			logger.Info("Stopping periodic sync", zap.Error(ctx.Err()))
			return
		case <-ticker.C:
		}
	}
}

// Records returns every stored record, highest commit count first.
func (s *Service) Records(ctx context.Context) ([]models.RepositoryRecord, error) {
	records, err := s.store.ScanAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}
	return records, nil
}

// Close performs cleanup operations
func (s *Service) Close() error {
	logger.Info("Closing service")
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("%w: failed to close store: %v", ErrServiceShutdown, err)
	}
	return nil
}
