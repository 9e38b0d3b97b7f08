// Package google provides a client for the Google Programmable Search
// (Custom Search JSON) API.
package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rotisserie/eris"
)

const defaultBaseURL = "https://www.googleapis.com/customsearch/v1"

// MaxPerPage is the largest page size the API accepts.
const MaxPerPage = 10

// Client performs Custom Search API operations.
type Client interface {
	CustomSearch(ctx context.Context, req CustomSearchRequest) (*CustomSearchResponse, error)
}

// CustomSearchRequest is one page of a search. Start is the 1-based index of
// the first result; zero omits it.
type CustomSearchRequest struct {
	Query string
	Num   int
	Start int
}

// CustomSearchResponse is the subset of the API response the client uses.
type CustomSearchResponse struct {
	Items   []Item  `json:"items"`
	Queries Queries `json:"queries"`
}

// Item is a single search result.
type Item struct {
	Title      string `json:"title"`
	Link       string `json:"link"`
	Snippet    string `json:"snippet"`
	Mime       string `json:"mime,omitempty"`
	FileFormat string `json:"fileFormat,omitempty"`
}

// Queries holds pagination metadata.
type Queries struct {
	NextPage []PageInfo `json:"nextPage"`
}

// PageInfo describes a page of results.
type PageInfo struct {
	StartIndex int `json:"startIndex"`
	Count      int `json:"count"`
}

// NextStart returns the start index of the next page and whether one exists.
func (r *CustomSearchResponse) NextStart() (int, bool) {
	if r == nil || len(r.Queries.NextPage) == 0 || r.Queries.NextPage[0].StartIndex == 0 {
		return 0, false
	}
	return r.Queries.NextPage[0].StartIndex, true
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	cseID   string
	baseURL string
	http    *http.Client
}

// NewClient creates a Custom Search API client for the given search engine.
func NewClient(apiKey, cseID string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		cseID:   cseID,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *httpClient) CustomSearch(ctx context.Context, sr CustomSearchRequest) (*CustomSearchResponse, error) {
	params := url.Values{}
	params.Set("key", c.apiKey)
	params.Set("cx", c.cseID)
	params.Set("q", sr.Query)
	if sr.Num > 0 {
		params.Set("num", strconv.Itoa(min(sr.Num, MaxPerPage)))
	}
	if sr.Start > 0 {
		params.Set("start", strconv.Itoa(sr.Start))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "google: create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "google: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "google: read response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, eris.Errorf("google: unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	var result CustomSearchResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, eris.Wrap(err, "google: unmarshal response")
	}

	return &result, nil
}
