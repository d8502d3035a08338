package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reposync/github"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockGitHubClient is a mock implementation of the GitHub client
type MockGitHubClient struct {
	mock.Mock
}

func (m *MockGitHubClient) CountCommits(ctx context.Context, owner, name string) (int, error) {
	args := m.Called(ctx, owner, name)
	return args.Int(0), args.Error(1)
}

func (m *MockGitHubClient) FetchReadme(ctx context.Context, owner, name string) (string, error) {
	args := m.Called(ctx, owner, name)
	return args.String(0), args.Error(1)
}

func TestEnrich(t *testing.T) {
	testCases := []struct {
		name        string
		fetchReadme bool
		setupMocks  func(*MockGitHubClient)
		expected    Enrichment
		degraded    bool
	}{
		{
			name:        "both values resolved",
			fetchReadme: true,
			setupMocks: func(m *MockGitHubClient) {
				m.On("CountCommits", mock.Anything, "acct", "repo").Return(12, nil)
				m.On("FetchReadme", mock.Anything, "acct", "repo").Return("IyBSZXBv", nil)
			},
			expected: Enrichment{CommitCount: 12, ReadmeContent: "IyBSZXBv"},
		},
		{
			name:        "commit count failure degrades to zero",
			fetchReadme: true,
			setupMocks: func(m *MockGitHubClient) {
				m.On("CountCommits", mock.Anything, "acct", "repo").Return(0, assert.AnError)
				m.On("FetchReadme", mock.Anything, "acct", "repo").Return("IyBSZXBv", nil)
			},
			expected: Enrichment{ReadmeContent: "IyBSZXBv", CommitErr: assert.AnError},
			degraded: true,
		},
		{
			name:        "readme failure degrades to empty",
			fetchReadme: true,
			setupMocks: func(m *MockGitHubClient) {
				m.On("CountCommits", mock.Anything, "acct", "repo").Return(3, nil)
				m.On("FetchReadme", mock.Anything, "acct", "repo").Return("", assert.AnError)
			},
			expected: Enrichment{CommitCount: 3, ReadmeErr: assert.AnError},
			degraded: true,
		},
		{
			name:        "readme disabled",
			fetchReadme: false,
			setupMocks: func(m *MockGitHubClient) {
				m.On("CountCommits", mock.Anything, "acct", "repo").Return(3, nil)
			},
			expected: Enrichment{CommitCount: 3},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			client := &MockGitHubClient{}
			tc.setupMocks(client)

			result := NewEnricher(client, tc.fetchReadme).Enrich(context.Background(), "acct", "repo")

			assert.Equal(t, tc.expected, result)
			assert.Equal(t, tc.degraded, result.Degraded())
			client.AssertExpectations(t)
			if !tc.fetchReadme {
				client.AssertNotCalled(t, "FetchReadme", mock.Anything, mock.Anything, mock.Anything)
			}
		})
	}
}

// TestEnrich_NeverFails drives the real client against hostile responses.
func TestEnrich_NeverFails(t *testing.T) {
	handlers := map[string]http.HandlerFunc{
		"server errors": func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		},
		"malformed json": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{{{`)
		},
		"missing fields": func(w http.ResponseWriter, r *http.Request) {
			fmt.Fprint(w, `{}`)
		},
		"slow upstream": func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(time.Second):
			}
		},
	}

	for name, handler := range handlers {
		t.Run(name, func(t *testing.T) {
			server := httptest.NewServer(handler)
			defer server.Close()

			client, err := github.NewClient(github.Options{
				BaseURL:   server.URL,
				UserAgent: "reposync-test",
				Timeout:   50 * time.Millisecond,
			})
			require.NoError(t, err)

			result := NewEnricher(client, true).Enrich(context.Background(), "acct", "repo")

			assert.Equal(t, 0, result.CommitCount)
			assert.Empty(t, result.ReadmeContent)
			assert.True(t, result.Degraded())
		})
	}
}

func TestEnrich_UnreachableHost(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	baseURL := server.URL
	server.Close()

	client, err := github.NewClient(github.Options{BaseURL: baseURL, UserAgent: "reposync-test", Timeout: time.Second})
	require.NoError(t, err)

	result := NewEnricher(client, true).Enrich(context.Background(), "acct", "repo")

	assert.Equal(t, Enrichment{CommitErr: result.CommitErr, ReadmeErr: result.ReadmeErr}, result)
	assert.Error(t, result.CommitErr)
	assert.Error(t, result.ReadmeErr)
}
