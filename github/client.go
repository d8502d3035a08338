package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reposync/logger"
	"reposync/models"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the public GitHub REST API.
	DefaultBaseURL = "https://api.github.com"
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 10 * time.Second

	listingPageSize = 100
)

var (
	// ErrUnsupportedEncoding is returned when a README is not base64 encoded.
	ErrUnsupportedEncoding = errors.New("unsupported readme encoding")
	// ErrMalformedResponse is returned when a response body cannot be decoded.
	ErrMalformedResponse = errors.New("malformed response")
)

// RateLimit represents GitHub's rate limit information
type RateLimit struct {
	Limit     int
	Remaining int
	Reset     time.Time
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	URL        string
	RateLimit  RateLimit
}

func (e *StatusError) Error() string {
	if e.RateLimited() {
		return fmt.Sprintf("unexpected status %d from %s: rate limit exhausted until %s",
			e.StatusCode, e.URL, e.RateLimit.Reset.UTC().Format(time.RFC3339))
	}
	return fmt.Sprintf("unexpected status %d from %s", e.StatusCode, e.URL)
}

// RateLimited reports whether the request was rejected by the API quota.
func (e *StatusError) RateLimited() bool {
	return (e.StatusCode == http.StatusForbidden || e.StatusCode == http.StatusTooManyRequests) &&
		e.RateLimit.Limit > 0 && e.RateLimit.Remaining == 0
}

// Options configures a Client.
type Options struct {
	BaseURL   string
	Token     string
	UserAgent string
	Timeout   time.Duration
	// RateLimit is the sustained request rate shared by all calls; zero disables limiting.
	RateLimit rate.Limit
	Burst     int
	// FollowListingPages walks every page of the repository listing instead
	// of stopping after the first one.
	FollowListingPages bool
}

// Client represents a GitHub API client
type Client struct {
	httpClient  *http.Client
	baseURL     *url.URL
	userAgent   string
	limiter     *rate.Limiter
	followPages bool
}

// NewClient builds a Client. The returned client owns its http.Client; an
// optional token is attached through an oauth2 transport.
func NewClient(opts Options) (*Client, error) {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		return nil, errors.New("user agent is required")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}

	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url %q: %w", opts.BaseURL, err)
	}

	httpClient := &http.Client{}
	if opts.Token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
		httpClient = oauth2.NewClient(context.Background(), ts)
	}
	httpClient.Timeout = opts.Timeout

	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(opts.RateLimit, max(opts.Burst, 1))
	}

	logger.Info("Initializing GitHub client",
		zap.String("base_url", baseURL.String()),
		zap.Bool("authenticated", opts.Token != ""),
		zap.Duration("timeout", opts.Timeout))

	return &Client{
		httpClient:  httpClient,
		baseURL:     baseURL,
		userAgent:   opts.UserAgent,
		limiter:     limiter,
		followPages: opts.FollowListingPages,
	}, nil
}

// get issues a GET request. On success the caller owns the response body.
func (c *Client) get(ctx context.Context, path string, query url.Values) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	reqURL := c.baseURL.ResolveReference(&url.URL{Path: path})
	reqURL.RawQuery = query.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/vnd.github+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request %s: %w", reqURL.Redacted(), err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			URL:        reqURL.Redacted(),
			RateLimit:  parseRateLimit(resp),
		}
	}
	return resp, nil
}

// ListRepositories fetches the repositories owned by account. Only the first
// page of up to 100 entries is read unless the client follows listing pages.
func (c *Client) ListRepositories(ctx context.Context, account string) ([]models.RawRepository, error) {
	path := fmt.Sprintf("/users/%s/repos", url.PathEscape(account))

	logger.Info("Fetching repositories", zap.String("account", account))

	repos, lastPage, err := c.listRepositoriesPage(ctx, path, 1)
	if err != nil {
		logger.Error("Failed to fetch repositories", zap.Error(err), zap.String("account", account))
		return nil, err
	}

	if c.followPages {
		for page := 2; page <= lastPage; page++ {
			next, _, err := c.listRepositoriesPage(ctx, path, page)
			if err != nil {
				logger.Error("Failed to fetch repositories page",
					zap.Error(err),
					zap.String("account", account),
					zap.Int("page", page))
				return nil, err
			}
			repos = append(repos, next...)
		}
	} else if lastPage > 1 {
		logger.Warn("Repository listing has more pages that will not be read",
			zap.String("account", account),
			zap.Int("last_page", lastPage))
	}

	logger.Info("Successfully fetched repositories",
		zap.String("account", account),
		zap.Int("count", len(repos)))

	return repos, nil
}

func (c *Client) listRepositoriesPage(ctx context.Context, path string, page int) ([]models.RawRepository, int, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(listingPageSize))
	if page > 1 {
		q.Set("page", strconv.Itoa(page))
	}

	resp, err := c.get(ctx, path, q)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	var repos []models.RawRepository
	if err := json.NewDecoder(resp.Body).Decode(&repos); err != nil {
		return nil, 0, fmt.Errorf("%w: repositories: %v", ErrMalformedResponse, err)
	}

	lastPage, ok := InferLastPage(resp.Header.Get("Link"))
	if !ok {
		lastPage = page
	}
	return repos, lastPage, nil
}

// CountCommits estimates the number of commits of owner/name. With a page
// size of one the last page number equals the commit count; without a Link
// header the single page body is counted instead.
func (c *Client) CountCommits(ctx context.Context, owner, name string) (int, error) {
	path := fmt.Sprintf("/repos/%s/%s/commits", url.PathEscape(owner), url.PathEscape(name))
	q := url.Values{}
	q.Set("per_page", "1")

	resp, err := c.get(ctx, path, q)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if link := resp.Header.Get("Link"); link != "" {
		if lastPage, ok := InferLastPage(link); ok {
			logger.Debug("Inferred commit count from Link header",
				zap.String("owner", owner),
				zap.String("name", name),
				zap.Int("commit_count", lastPage))
			return lastPage, nil
		}
	}

	var commits []json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&commits); err != nil {
		return 0, fmt.Errorf("%w: commits: %v", ErrMalformedResponse, err)
	}
	return len(commits), nil
}

type readmeResponse struct {
	Encoding string `json:"encoding"`
	Content  string `json:"content"`
}

// FetchReadme returns the base64 encoded README content of owner/name as
// served by the API, without decoding it.
func (c *Client) FetchReadme(ctx context.Context, owner, name string) (string, error) {
	path := fmt.Sprintf("/repos/%s/%s/readme", url.PathEscape(owner), url.PathEscape(name))

	resp, err := c.get(ctx, path, url.Values{})
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var readme readmeResponse
	if err := json.NewDecoder(resp.Body).Decode(&readme); err != nil {
		return "", fmt.Errorf("%w: readme: %v", ErrMalformedResponse, err)
	}
	if readme.Encoding != "base64" {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedEncoding, readme.Encoding)
	}
	return readme.Content, nil
}

// parseRateLimit parses rate limit information from response headers
func parseRateLimit(resp *http.Response) RateLimit {
	limit, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Limit"))
	remaining, _ := strconv.Atoi(resp.Header.Get("X-RateLimit-Remaining"))
	reset, _ := strconv.ParseInt(resp.Header.Get("X-RateLimit-Reset"), 10, 64)

	return RateLimit{
		Limit:     limit,
		Remaining: remaining,
		Reset:     time.Unix(reset, 0),
	}
}
