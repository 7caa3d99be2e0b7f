// Package fetch is the transport collaborator: given URLs, it returns body
// bytes. Retry policy, timeouts and rate limiting live here so the pipeline
// core never blocks unbounded.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Fetcher is the interface the session pipeline depends on. FetchAll is
// order-preserving and all-or-nothing: one failed URL fails the batch.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
	FetchAll(ctx context.Context, urls []string) ([][]byte, error)
}

// RangeFetcher adds ranged reads for chunked stream downloads. The HTTP
// fetcher implements it; test fakes may provide only Fetcher.
type RangeFetcher interface {
	Fetcher
	FetchRange(ctx context.Context, url string, start, end int64) ([]byte, error)
	ProbeLength(ctx context.Context, url string) (int64, error)
}

// Error wraps every transport failure: network errors, non-success status,
// timeouts. Callers may retry; the pipeline itself never does beyond the
// configured policy here.
type Error struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: status=%d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Options controls the HTTP fetcher's retry/backoff and pacing behavior.
type Options struct {
	Client         *http.Client
	UserAgent      string
	Timeout        time.Duration // per-request bound; 0 means defaultTimeout
	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
	// RequestsPerSecond throttles outgoing requests; 0 disables pacing.
	RequestsPerSecond float64
	// CookieJar attaches session cookies to every request, e.g. one built by
	// LoadCookieJar. The configured client is shallow-copied, never mutated.
	CookieJar http.CookieJar
}

const (
	defaultTimeout        = 30 * time.Second
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 3 * time.Second
)

var retryStatusCodes = []int{
	http.StatusTooManyRequests,
	http.StatusInternalServerError,
	http.StatusBadGateway,
	http.StatusServiceUnavailable,
	http.StatusGatewayTimeout,
}

type httpFetcher struct {
	client         *http.Client
	userAgent      string
	timeout        time.Duration
	maxRetries     int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	limiter        *rate.Limiter
}

// NewHTTPFetcher builds the production Fetcher.
func NewHTTPFetcher(opts Options) Fetcher {
	client := opts.Client
	if client == nil {
		client = http.DefaultClient
	}
	if opts.CookieJar != nil {
		withJar := *client
		withJar.Jar = opts.CookieJar
		client = &withJar
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	initialBackoff := opts.InitialBackoff
	if initialBackoff <= 0 {
		initialBackoff = defaultInitialBackoff
	}
	maxBackoff := opts.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = defaultMaxBackoff
	}
	var limiter *rate.Limiter
	if opts.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}
	return &httpFetcher{
		client:         client,
		userAgent:      userAgent,
		timeout:        timeout,
		maxRetries:     maxInt(opts.MaxRetries, 0),
		initialBackoff: initialBackoff,
		maxBackoff:     maxBackoff,
		limiter:        limiter,
	}
}

func (f *httpFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, _, err := f.fetchRange(ctx, url, "")
	return body, err
}

// FetchAll issues the fetches concurrently and joins; results keep the input
// order. The calls have no data dependency on each other, so parallelism is
// safe.
func (f *httpFetcher) FetchAll(ctx context.Context, urls []string) ([][]byte, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	bodies := make([][]byte, len(urls))
	errs := make([]error, len(urls))
	var wg sync.WaitGroup
	for i, url := range urls {
		wg.Add(1)
		go func(i int, url string) {
			defer wg.Done()
			body, err := f.Fetch(ctx, url)
			bodies[i] = body
			errs[i] = err
			if err != nil {
				cancel()
			}
		}(i, url)
	}
	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return bodies, nil
}

// FetchRange fetches the byte range [start, end] of url.
func (f *httpFetcher) FetchRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	body, _, err := f.fetchRange(ctx, url, fmt.Sprintf("bytes=%d-%d", start, end))
	return body, err
}

// ProbeLength determines the total content length of url with a zero-byte
// ranged request, falling back to Content-Length when ranges are ignored.
func (f *httpFetcher) ProbeLength(ctx context.Context, url string) (int64, error) {
	_, header, err := f.fetchRange(ctx, url, "bytes=0-0")
	if err != nil {
		return 0, err
	}
	if contentRange := header.Get("Content-Range"); contentRange != "" {
		if idx := strings.LastIndexByte(contentRange, '/'); idx >= 0 {
			if total, err := strconv.ParseInt(contentRange[idx+1:], 10, 64); err == nil {
				return total, nil
			}
		}
	}
	if length := header.Get("Content-Length"); length != "" {
		if total, err := strconv.ParseInt(length, 10, 64); err == nil {
			return total, nil
		}
	}
	return 0, &Error{URL: url, Err: errors.New("length not reported")}
}

func (f *httpFetcher) fetchRange(ctx context.Context, url, rangeHeader string) ([]byte, http.Header, error) {
	var lastErr error
	for attempt := 0; attempt <= f.maxRetries; attempt++ {
		body, header, err := f.fetchOnce(ctx, url, rangeHeader)
		if err == nil {
			return body, header, nil
		}
		lastErr = err
		if !isRetryable(err) || attempt == f.maxRetries {
			break
		}
		if err := waitBackoff(ctx, f.backoffFor(attempt)); err != nil {
			return nil, nil, &Error{URL: url, Err: err}
		}
	}
	return nil, nil, lastErr
}

func (f *httpFetcher) fetchOnce(ctx context.Context, url, rangeHeader string) ([]byte, http.Header, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, nil, &Error{URL: url, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, &Error{URL: url, Err: err}
	}
	req.Header.Set("User-Agent", f.userAgent)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, nil, &Error{URL: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return nil, nil, &Error{URL: url, StatusCode: resp.StatusCode}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, &Error{URL: url, Err: err}
	}
	return body, resp.Header, nil
}

func (f *httpFetcher) backoffFor(attempt int) time.Duration {
	backoff := f.initialBackoff
	for i := 0; i < attempt; i++ {
		backoff *= 2
		if backoff > f.maxBackoff {
			return f.maxBackoff
		}
	}
	return backoff
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var fetchErr *Error
	if errors.As(err, &fetchErr) && fetchErr.StatusCode != 0 {
		for _, code := range retryStatusCodes {
			if fetchErr.StatusCode == code {
				return true
			}
		}
		return false
	}
	return true
}

func waitBackoff(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
