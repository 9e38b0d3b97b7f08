package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/report-agent/internal/config"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	MaxBytes  int64
	// HostRate is the per-host request rate; zero means 2 requests/second.
	HostRate rate.Limit
}

// HTTPFetcher implements Fetcher with a single GET per locator and a
// per-host rate limit. There are no retries.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "report-agent/1.0"
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = 50 << 20
	}
	if opts.HostRate == 0 {
		opts.HostRate = 2
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     20,
		IdleConnTimeout:     90 * time.Second,
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout:   opts.Timeout,
			Transport: transport,
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

// New creates an HTTPFetcher from config.
func New(cfg config.FetchConfig) *HTTPFetcher {
	return NewHTTPFetcher(HTTPOptions{
		UserAgent: cfg.UserAgent,
		Timeout:   time.Duration(cfg.TimeoutSecs) * time.Second,
		MaxBytes:  cfg.MaxBytes,
	})
}

func (f *HTTPFetcher) limiterFor(host string) *rate.Limiter {
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.HostRate, 1)
		f.limiters[host] = lim
	}
	return lim
}

// Fetch implements Fetcher.
func (f *HTTPFetcher) Fetch(ctx context.Context, locator string) ([]byte, error) {
	u, err := url.Parse(locator)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: parse locator")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, eris.Errorf("fetch: unsupported scheme %q", u.Scheme)
	}

	if err := f.limiterFor(u.Host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: rate limiter wait")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, locator, nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Locator: locator, Status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.opts.MaxBytes+1))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: read body")
	}
	if int64(len(body)) > f.opts.MaxBytes {
		return nil, eris.Errorf("fetch: body exceeds %d bytes", f.opts.MaxBytes)
	}

	return body, nil
}
