package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"reposync/config"
	"reposync/db"
	"reposync/fetcher"
	"reposync/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		GitHubAccount:     "acct",
		GitHubAPIURL:      "http://127.0.0.1:1",
		UserAgent:         "reposync-test",
		HTTPTimeout:       time.Second,
		EnrichConcurrency: 2,
		PageGroupSize:     3,
		StoreBackend:      db.BackendMemory,
		StoreLocation:     "repositories",
	}
}

func TestNewService(t *testing.T) {
	testCases := []struct {
		name          string
		mutate        func(*config.Config)
		expectedError error
	}{
		{
			name:   "memory backend",
			mutate: func(*config.Config) {},
		},
		{
			name:          "missing account",
			mutate:        func(c *config.Config) { c.GitHubAccount = "" },
			expectedError: config.ErrMissingAccount,
		},
		{
			name:          "unknown backend",
			mutate:        func(c *config.Config) { c.StoreBackend = "s3" },
			expectedError: db.ErrUnknownBackend,
		},
		{
			name:          "empty store location",
			mutate:        func(c *config.Config) { c.StoreLocation = "" },
			expectedError: db.ErrInvalidInput,
		},
		{
			name:          "missing user agent",
			mutate:        func(c *config.Config) { c.UserAgent = "" },
			expectedError: ErrConfiguration,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig()
			tc.mutate(cfg)

			svc, err := NewService(context.Background(), cfg)

			if tc.expectedError != nil {
				assert.ErrorIs(t, err, ErrConfiguration)
				assert.ErrorIs(t, err, tc.expectedError)
				assert.Nil(t, svc)
				return
			}
			require.NoError(t, err)
			records, err := svc.Records(context.Background())
			require.NoError(t, err)
			assert.Empty(t, records)
			assert.NoError(t, svc.Close())
		})
	}
}

func TestNewService_NilConfig(t *testing.T) {
	_, err := NewService(context.Background(), nil)
	assert.ErrorIs(t, err, ErrConfiguration)
}

func TestService_StartOnce(t *testing.T) {
	ctx := context.Background()
	client := scenarioClient()
	store := db.NewRepositoryStore(db.NewMemoryStore())
	svc := newService(testConfig(), client, fetcher.NewEnricher(client, true), store)

	require.NoError(t, svc.Start(ctx))

	records, err := svc.Records(ctx)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Name)
	assert.Equal(t, "c", records[1].Name)
	client.AssertNumberOfCalls(t, "ListRepositories", 1)
}

func TestService_StartOnceReportsFailure(t *testing.T) {
	client := new(MockGitHubClient)
	client.On("ListRepositories", mock.Anything, "acct").Return(nil, errors.New("connection refused"))
	svc := newService(testConfig(), client, fetcher.NewEnricher(client, false), db.NewRepositoryStore(db.NewMemoryStore()))

	err := svc.Start(context.Background())

	assert.ErrorIs(t, err, ErrUpstream)
}

// countingLister fails every other listing and counts calls.
type countingLister struct {
	calls atomic.Int32
}

func (l *countingLister) ListRepositories(ctx context.Context, account string) ([]models.RawRepository, error) {
	if l.calls.Add(1)%2 == 0 {
		return nil, errors.New("temporary failure")
	}
	return []models.RawRepository{{Name: "repo", Description: "d", Language: "Go"}}, nil
}

type staticEnricher struct{}

func (staticEnricher) Enrich(ctx context.Context, account, repoName string) fetcher.Enrichment {
	return fetcher.Enrichment{CommitCount: 1}
}

func TestService_StartPeriodic(t *testing.T) {
	cfg := testConfig()
	cfg.SyncInterval = 10 * time.Millisecond
	lister := &countingLister{}
	svc := newService(cfg, lister, staticEnricher{}, db.NewRepositoryStore(db.NewMemoryStore()))

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- svc.Start(ctx) }()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("periodic sync did not stop after cancellation")
	}

	assert.GreaterOrEqual(t, lister.calls.Load(), int32(3), "failed runs do not stop the loop")

	records, err := svc.Records(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "repo", records[0].Name)
}

func TestService_Close(t *testing.T) {
	svc := newService(testConfig(), new(MockGitHubClient), staticEnricher{}, db.NewRepositoryStore(db.NewMemoryStore()))
	assert.NoError(t, svc.Close())
}
