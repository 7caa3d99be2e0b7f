package client

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/famomatic/tubetap/internal/descramble"
	"github.com/famomatic/tubetap/internal/fetch"
	"github.com/famomatic/tubetap/internal/watchpage"
)

const testVideoID = "dQw4w9WgXcQ"

// fakeFetcher serves canned bodies keyed by exact URL and records calls.
type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string][]byte
	errs      map[string]error
	calls     []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		responses: make(map[string][]byte),
		errs:      make(map[string]error),
	}
}

func (f *fakeFetcher) put(url string, body string) {
	f.responses[url] = []byte(body)
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	f.calls = append(f.calls, url)
	f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	body, ok := f.responses[url]
	if !ok {
		return nil, &fetch.Error{URL: url, StatusCode: 404}
	}
	return body, nil
}

func (f *fakeFetcher) FetchAll(ctx context.Context, urls []string) ([][]byte, error) {
	bodies := make([][]byte, len(urls))
	for i, url := range urls {
		body, err := f.Fetch(ctx, url)
		if err != nil {
			return nil, err
		}
		bodies[i] = body
	}
	return bodies, nil
}

// fakeRangeFetcher adds ranged reads over a single blob for download tests.
type fakeRangeFetcher struct {
	*fakeFetcher
	blob    []byte
	blobURL string
	probes  int
}

func (f *fakeRangeFetcher) FetchRange(ctx context.Context, url string, start, end int64) ([]byte, error) {
	if url != f.blobURL {
		return nil, &fetch.Error{URL: url, StatusCode: 404}
	}
	if start < 0 || start >= int64(len(f.blob)) {
		return nil, &fetch.Error{URL: url, StatusCode: 416}
	}
	if end >= int64(len(f.blob)) {
		end = int64(len(f.blob)) - 1
	}
	return f.blob[start : end+1], nil
}

func (f *fakeRangeFetcher) ProbeLength(ctx context.Context, url string) (int64, error) {
	f.probes++
	if url != f.blobURL {
		return 0, &fetch.Error{URL: url, StatusCode: 404}
	}
	return int64(len(f.blob)), nil
}

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join("testdata", name)
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", p, err)
	}
	return string(b)
}

// buildWatchHTML renders a watch page embedding a player config with the
// given manifests. Manifest encoding goes through descramble.Encode so the
// fixtures cannot drift from the decoder.
func buildWatchHTML(t *testing.T, progressive, adaptive []descramble.Entry, playerResponse, jsPath string) string {
	t.Helper()
	args := map[string]any{"video_id": testVideoID}
	if len(progressive) > 0 {
		args["url_encoded_fmt_stream_map"] = descramble.Encode(progressive)
	}
	if len(adaptive) > 0 {
		args["adaptive_fmts"] = descramble.Encode(adaptive)
	}
	if playerResponse != "" {
		args["player_response"] = playerResponse
	}
	cfg := map[string]any{
		"args":   args,
		"assets": map[string]any{"js": jsPath},
	}
	raw, err := json.Marshal(cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	return fmt.Sprintf(
		`<html><head><title>clip</title></head><body><script>var setup={"sts":17900};</script><script>var ytplayer=ytplayer||{};ytplayer.config = %s;ytplayer.load();</script></body></html>`,
		raw)
}

// primeSession wires a fake transport with a complete artifact set and
// returns the ready-to-init session.
func primeSession(t *testing.T, f *fakeFetcher, html, script string) *Session {
	t.Helper()
	watchURL := WatchURL(testVideoID)
	f.put(watchURL, html)

	aux, err := watchpage.DeriveAuxiliaryURLs(testVideoID, watchURL, html)
	if err == nil {
		f.put(aux.ScriptURL, script)
		f.put(aux.MetadataURL, "status=ok&title=Metadata+Title")
	}

	s, err := NewSession(testVideoID, Config{Fetcher: fetcherOf(f)})
	if err != nil {
		t.Fatalf("NewSession() error = %v", err)
	}
	return s
}

// fetcherOf keeps the concrete fake types satisfying fetch.Fetcher.
func fetcherOf(f *fakeFetcher) fetch.Fetcher { return f }
