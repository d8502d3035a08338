// Package fetcher resolves the per-repository facts that the listing call
// does not carry: commit count and README content.
package fetcher

import (
	"context"

	"reposync/logger"

	"go.uber.org/zap"
)

// GitHubClientInterface defines the GitHub client operations needed by the fetcher
type GitHubClientInterface interface {
	CountCommits(ctx context.Context, owner, name string) (int, error)
	FetchReadme(ctx context.Context, owner, name string) (string, error)
}

// Enrichment holds the resolved facts for one repository. A non-nil error
// field means the matching value degraded to its default.
type Enrichment struct {
	CommitCount   int
	ReadmeContent string
	CommitErr     error
	ReadmeErr     error
}

// Degraded reports whether any value fell back to its default.
func (e Enrichment) Degraded() bool {
	return e.CommitErr != nil || e.ReadmeErr != nil
}

// Enricher fetches commit counts and, optionally, README snapshots.
type Enricher struct {
	client      GitHubClientInterface
	fetchReadme bool
}

// NewEnricher creates an Enricher. When fetchReadme is false README content
// is always empty and the endpoint is never called.
func NewEnricher(client GitHubClientInterface, fetchReadme bool) *Enricher {
	return &Enricher{client: client, fetchReadme: fetchReadme}
}

// Enrich never fails: every error is recorded on the result and the value
// falls back to 0 or "".
func (e *Enricher) Enrich(ctx context.Context, account, repoName string) Enrichment {
	var result Enrichment

	count, err := e.client.CountCommits(ctx, account, repoName)
	if err != nil {
		logger.Warn("Commit count unavailable, defaulting to 0",
			zap.Error(err),
			zap.String("account", account),
			zap.String("name", repoName))
		result.CommitErr = err
	} else {
		result.CommitCount = max(count, 0)
	}

	if !e.fetchReadme {
		return result
	}

	readme, err := e.client.FetchReadme(ctx, account, repoName)
	if err != nil {
		logger.Debug("README unavailable, leaving content empty",
			zap.Error(err),
			zap.String("account", account),
			zap.String("name", repoName))
		result.ReadmeErr = err
	} else {
		result.ReadmeContent = readme
	}

	return result
}
