// Package jina provides a client for the Jina AI Search API.
package jina

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/report-agent/internal/resilience"
)

const defaultSearchBaseURL = "https://s.jina.ai"

// Client defines the Jina AI Search operations.
type Client interface {
	// Search performs a web search and returns result links without page content.
	Search(ctx context.Context, query string) (*SearchResponse, error)
}

// SearchResponse is the parsed Jina Search API response.
type SearchResponse struct {
	Code int            `json:"code"`
	Data []SearchResult `json:"data"`
}

// SearchResult represents a single search result.
type SearchResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// StatusError is returned for an unexpected response status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("jina: search unexpected status %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *StatusError) HTTPStatus() int { return e.StatusCode }

// Option configures the Jina client.
type Option func(*httpClient)

// WithSearchBaseURL sets a custom search base URL (for testing).
func WithSearchBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.searchBaseURL = url
		}
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithBackoff sets the initial retry backoff (for testing).
func WithBackoff(d time.Duration) Option {
	return func(c *httpClient) {
		c.retry.InitialBackoff = d
	}
}

type httpClient struct {
	apiKey        string
	searchBaseURL string
	retry         resilience.RetryConfig
	http          *http.Client
}

// NewClient creates a new Jina AI Search client. Overloaded and failing
// responses are retried up to three attempts.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:        apiKey,
		searchBaseURL: defaultSearchBaseURL,
		retry: resilience.RetryConfig{
			MaxAttempts:    3,
			InitialBackoff: time.Second,
			OnRetry:        resilience.RetryLogger("jina"),
		},
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Search(ctx context.Context, query string) (*SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)

	body, err := resilience.Do(ctx, c.retry, func(ctx context.Context) ([]byte, error) {
		return c.search(ctx, params)
	})
	var se *StatusError
	if errors.As(err, &se) && se.StatusCode == http.StatusUnprocessableEntity {
		// Jina returns 422 when no results are available for the query.
		return &SearchResponse{Code: se.StatusCode}, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "jina: search request failed")
	}

	var result SearchResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "jina: unmarshal search response")
	}

	return &result, nil
}

func (c *httpClient) search(ctx context.Context, params url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.searchBaseURL+"/?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "jina: create search request")
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Respond-With", "no-content")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "jina: read response body")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}
