package client

import (
	"net/http"
	"time"

	"github.com/famomatic/tubetap/internal/fetch"
	"github.com/famomatic/tubetap/internal/playerjs"
)

// Config holds session construction settings. The zero value is usable.
type Config struct {
	// Fetcher overrides the transport collaborator. If nil, an HTTP fetcher
	// is built from HTTPClient/UserAgent/RequestTimeout.
	Fetcher fetch.Fetcher

	// HTTPClient is used by the default fetcher. If nil, http.DefaultClient.
	HTTPClient *http.Client

	// UserAgent overrides the default fetch User-Agent.
	UserAgent string

	// RequestTimeout bounds each transport request. Zero means the fetch
	// package default.
	RequestTimeout time.Duration

	// CookieJar attaches session cookies to the default fetcher's requests.
	CookieJar http.CookieJar

	// ChunkSize is the ranged-download chunk size in bytes. Zero means the
	// package default (9MB).
	ChunkSize int64

	// TransformCache shares derived signature transforms across sessions
	// keyed by script URL. If nil, every session derives its own.
	TransformCache playerjs.Cache

	// Logger receives non-fatal warnings. If nil, warnings are dropped.
	Logger Logger

	// OnProgress and OnComplete preregister download callbacks; both can also
	// be registered after construction via the session.
	OnProgress OnProgressFunc
	OnComplete OnCompleteFunc
}

func (c Config) fetcher() fetch.Fetcher {
	if c.Fetcher != nil {
		return c.Fetcher
	}
	return fetch.NewHTTPFetcher(fetch.Options{
		Client:    c.HTTPClient,
		UserAgent: c.UserAgent,
		Timeout:   c.RequestTimeout,
		CookieJar: c.CookieJar,
	})
}

func (c Config) logger() Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return nopLogger{}
}
