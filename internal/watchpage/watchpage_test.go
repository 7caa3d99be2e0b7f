package watchpage

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join("testdata", name)
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", p, err)
	}
	return string(b)
}

func TestExtractConfig(t *testing.T) {
	markup := loadFixture(t, "watch.html")

	cfg, err := ExtractConfig(markup)
	if err != nil {
		t.Fatalf("ExtractConfig() error = %v", err)
	}

	videoID, err := cfg.Args.String("video_id")
	if err != nil {
		t.Fatalf("Args.String(video_id) error = %v", err)
	}
	if videoID != "dQw4w9WgXcQ" {
		t.Fatalf("video_id = %q", videoID)
	}

	progressive, err := cfg.Args.String("url_encoded_fmt_stream_map")
	if err != nil {
		t.Fatalf("Args.String(url_encoded_fmt_stream_map) error = %v", err)
	}
	if !strings.Contains(progressive, "itag=18") {
		t.Fatalf("progressive manifest missing itag=18: %q", progressive)
	}

	if cfg.Assets.JS != "//www.youtube.com/yts/jsbin/player-vflx/en_US/base.js" {
		t.Fatalf("assets.js = %q", cfg.Assets.JS)
	}
}

func TestExtractConfig_MarkerAbsent(t *testing.T) {
	markup := loadFixture(t, "watch_no_config.html")

	_, err := ExtractConfig(markup)
	var extractionErr *ExtractionError
	if !errors.As(err, &extractionErr) {
		t.Fatalf("ExtractConfig() error = %v, want *ExtractionError", err)
	}
}

func TestExtractConfig_ToleratesSurroundingScript(t *testing.T) {
	// Trailing statements after the assignment must not leak into the JSON.
	markup := `<html><body><script>if(x){y()};ytplayer.config = {"args":{"a":"b"},"assets":{"js":"/base.js"}};ytplayer.load();</script></body></html>`
	cfg, err := ExtractConfig(markup)
	if err != nil {
		t.Fatalf("ExtractConfig() error = %v", err)
	}
	v, err := cfg.Args.String("a")
	if err != nil || v != "b" {
		t.Fatalf("Args.String(a) = %q, %v", v, err)
	}
}

func TestArgs_Accessors(t *testing.T) {
	args := Args{"title": "clip", "count": float64(3)}

	if _, err := args.String("missing"); err == nil {
		t.Fatal("String(missing) did not fail")
	}
	if _, err := args.String("count"); err == nil {
		t.Fatal("String(count) did not fail for non-string value")
	}
	v, err := args.StringDefault("missing", "fallback")
	if err != nil || v != "fallback" {
		t.Fatalf("StringDefault(missing) = %q, %v", v, err)
	}
	v, err = args.StringDefault("title", "fallback")
	if err != nil || v != "clip" {
		t.Fatalf("StringDefault(title) = %q, %v", v, err)
	}
}

func TestDeriveAuxiliaryURLs(t *testing.T) {
	markup := loadFixture(t, "watch.html")
	watchURL := "https://www.youtube.com/watch?v=dQw4w9WgXcQ"

	aux, err := DeriveAuxiliaryURLs("dQw4w9WgXcQ", watchURL, markup)
	if err != nil {
		t.Fatalf("DeriveAuxiliaryURLs() error = %v", err)
	}

	if aux.ScriptURL != "https://www.youtube.com/yts/jsbin/player-vflx/en_US/base.js" {
		t.Fatalf("ScriptURL = %q", aux.ScriptURL)
	}

	u, err := url.Parse(aux.MetadataURL)
	if err != nil {
		t.Fatalf("MetadataURL parse error = %v", err)
	}
	q := u.Query()
	if q.Get("video_id") != "dQw4w9WgXcQ" {
		t.Fatalf("video_id param = %q", q.Get("video_id"))
	}
	if q.Get("eurl") != watchURL {
		t.Fatalf("eurl param = %q", q.Get("eurl"))
	}
	if q.Get("sts") != "17900" {
		t.Fatalf("sts param = %q", q.Get("sts"))
	}
}

func TestParsePlayerResponse(t *testing.T) {
	resp, err := ParsePlayerResponse(`{"videoDetails":{"videoId":"abc","title":"T","author":"A","lengthSeconds":"42"}}`)
	if err != nil {
		t.Fatalf("ParsePlayerResponse() error = %v", err)
	}
	if resp.VideoDetails.Title != "T" || resp.VideoDetails.LengthSeconds != "42" {
		t.Fatalf("unexpected details: %+v", resp.VideoDetails)
	}

	if _, err := ParsePlayerResponse("{not json"); err == nil {
		t.Fatal("ParsePlayerResponse() did not fail on malformed payload")
	}
}
