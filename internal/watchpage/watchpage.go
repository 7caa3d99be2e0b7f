// Package watchpage locates and parses the player configuration embedded in
// watch-page markup, and derives the auxiliary request URLs the pipeline
// needs (metadata payload, player bootstrap script).
package watchpage

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// configMarkerRegexp anchors on the stable variable-assignment prefix rather
// than positional offsets; surrounding markup is free to drift.
var configMarkerRegexp = regexp.MustCompile(`;?ytplayer\.config\s*=\s*`)

var stsRegexp = regexp.MustCompile(`"sts"\s*:\s*(\d+)`)

// ExtractionError reports that the expected embedded structure is absent or
// has an unexpected shape. This is the primary signal that the upstream page
// format changed; it is not retryable.
type ExtractionError struct {
	Missing string
	Reason  string
}

func (e *ExtractionError) Error() string {
	msg := "watchpage: config extraction failed: " + e.Reason
	if e.Missing != "" {
		msg += " (missing " + e.Missing + ")"
	}
	return msg
}

// Config is the embedded player configuration. Args carries the loosely typed
// manifest and metadata fields; Assets points at the bootstrap script.
type Config struct {
	Args   Args `json:"args"`
	Assets struct {
		JS string `json:"js"`
	} `json:"assets"`
}

// Args wraps the untyped args mapping with accessors that fail with a typed
// error instead of surfacing raw type assertions to callers.
type Args map[string]any

// String returns the named args value. A missing key is an error; use
// StringDefault where absence is expected.
func (a Args) String(key string) (string, error) {
	v, ok := a[key]
	if !ok {
		return "", &ExtractionError{Missing: "args." + key, Reason: "expected key absent"}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ExtractionError{Missing: "args." + key, Reason: "value is not a string"}
	}
	return s, nil
}

// StringDefault returns the named args value, or fallback when the key is
// absent. A present non-string value is still an error.
func (a Args) StringDefault(key, fallback string) (string, error) {
	v, ok := a[key]
	if !ok {
		return fallback, nil
	}
	s, ok := v.(string)
	if !ok {
		return "", &ExtractionError{Missing: "args." + key, Reason: "value is not a string"}
	}
	return s, nil
}

// ExtractConfig scans the markup's script elements for the player config
// assignment, brace-matches the object literal and decodes it.
func ExtractConfig(markup string) (*Config, error) {
	raw, err := rawConfigJSON(markup)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, &ExtractionError{Reason: "config object is not valid JSON: " + err.Error()}
	}
	if cfg.Args == nil {
		return nil, &ExtractionError{Missing: "args", Reason: "config object has no args"}
	}
	return &cfg, nil
}

func rawConfigJSON(markup string) (string, error) {
	for _, script := range scriptTexts(markup) {
		loc := configMarkerRegexp.FindStringIndex(script)
		if loc == nil {
			continue
		}
		rest := script[loc[1]:]
		open := strings.IndexByte(rest, '{')
		if open != 0 {
			continue
		}
		end, ok := matchObjectEnd(rest)
		if !ok {
			return "", &ExtractionError{Reason: "config object literal is unterminated"}
		}
		return rest[:end], nil
	}
	return "", &ExtractionError{Missing: "ytplayer.config", Reason: "assignment marker not found in any script element"}
}

// scriptTexts returns the text content of every <script> element. When the
// markup does not parse as HTML at all, the raw input is scanned as one blob
// so fixture fragments and stripped pages still work.
func scriptTexts(markup string) []string {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return []string{markup}
	}
	var texts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			var sb strings.Builder
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
				}
			}
			if sb.Len() > 0 {
				texts = append(texts, sb.String())
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(doc)
	return texts
}

// matchObjectEnd scans a JSON object literal starting at s[0]=='{' and
// returns the index one past its closing brace.
func matchObjectEnd(s string) (int, bool) {
	depth := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return 0, false
}

// AuxURLs are the two per-session request targets derived from the page.
type AuxURLs struct {
	MetadataURL string
	ScriptURL   string
}

// DeriveAuxiliaryURLs builds the metadata-request URL for the video and
// resolves the bootstrap script URL referenced by the embedded config.
func DeriveAuxiliaryURLs(videoID, watchURL, markup string) (AuxURLs, error) {
	cfg, err := ExtractConfig(markup)
	if err != nil {
		return AuxURLs{}, err
	}
	return deriveAuxiliaryURLs(videoID, watchURL, markup, cfg)
}

func deriveAuxiliaryURLs(videoID, watchURL, markup string, cfg *Config) (AuxURLs, error) {
	if cfg.Assets.JS == "" {
		return AuxURLs{}, &ExtractionError{Missing: "assets.js", Reason: "config does not reference a bootstrap script"}
	}

	params := url.Values{}
	params.Set("video_id", videoID)
	params.Set("el", "$el")
	params.Set("ps", "default")
	params.Set("eurl", watchURL)
	params.Set("hl", "en_US")
	if m := stsRegexp.FindStringSubmatch(markup); len(m) > 1 {
		params.Set("sts", m[1])
	}

	return AuxURLs{
		MetadataURL: "https://youtube.com/get_video_info?" + params.Encode(),
		ScriptURL:   absoluteScriptURL(cfg.Assets.JS),
	}, nil
}

// DeriveAuxiliaryURLsFromConfig is DeriveAuxiliaryURLs for callers that
// already extracted the config, avoiding a second marker scan.
func DeriveAuxiliaryURLsFromConfig(videoID, watchURL, markup string, cfg *Config) (AuxURLs, error) {
	return deriveAuxiliaryURLs(videoID, watchURL, markup, cfg)
}

func absoluteScriptURL(js string) string {
	switch {
	case strings.HasPrefix(js, "//"):
		return "https:" + js
	case strings.HasPrefix(js, "/"):
		return "https://www.youtube.com" + js
	default:
		return js
	}
}
