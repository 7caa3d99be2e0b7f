package client

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/famomatic/tubetap/internal/descramble"
	"github.com/famomatic/tubetap/internal/fetch"
	"github.com/famomatic/tubetap/internal/playerjs"
	"github.com/famomatic/tubetap/internal/watchpage"
)

// manifest keys, shared between the metadata payload and the config args.
const (
	progressiveManifestKey = "url_encoded_fmt_stream_map"
	adaptiveManifestKey    = "adaptive_fmts"
)

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateFetched
	stateDescrambled
	stateReady
)

// Session is one resolution attempt for one video identifier. It drives the
// prefetch -> extract -> descramble -> sign -> build pipeline and owns all
// session-scoped intermediate state. Sessions are not safe for concurrent
// mutation; drive Prefetch/Init from one goroutine.
type Session struct {
	VideoID  string
	WatchURL string

	fetcher        fetch.Fetcher
	logger         Logger
	transformCache playerjs.Cache
	chunkSize      int64
	callbacks      *callbackCell

	// raw artifacts, populated by Prefetch
	watchHTML       string
	scriptText      string
	metadataPayload string
	scriptURL       string
	metadataURL     string

	// derived state, populated by Init
	config   *watchpage.Config
	metadata map[string]string
	details  *watchpage.VideoDetails
	// metadata-derived manifests: descrambled and signed for completeness,
	// but reserved; only config-derived manifests feed stream construction.
	metaProgressive []descramble.Entry
	metaAdaptive    []descramble.Entry
	fmtStreams      []*Stream

	state sessionState

	streamsMu   sync.Mutex
	streamsMemo *StreamQuery
}

// NewSession constructs a session without touching the network. Use Fetch for
// the eager default behavior.
func NewSession(input string, cfg Config) (*Session, error) {
	videoID, err := ExtractVideoID(input)
	if err != nil {
		return nil, err
	}
	s := &Session{
		VideoID:        videoID,
		WatchURL:       WatchURL(videoID),
		fetcher:        cfg.fetcher(),
		logger:         cfg.logger(),
		transformCache: cfg.TransformCache,
		chunkSize:      cfg.ChunkSize,
		callbacks:      &callbackCell{},
	}
	if cfg.OnProgress != nil {
		s.callbacks.setOnProgress(cfg.OnProgress)
	}
	if cfg.OnComplete != nil {
		s.callbacks.setOnComplete(cfg.OnComplete)
	}
	return s, nil
}

// Fetch constructs a session and eagerly runs the whole pipeline.
func Fetch(ctx context.Context, input string, cfg Config) (*Session, error) {
	s, err := NewSession(input, cfg)
	if err != nil {
		return nil, err
	}
	if err := s.PrefetchInit(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Prefetch downloads the session's raw artifacts: watch-page markup, then the
// bootstrap script and metadata payload in one concurrent batch. Calling it
// again re-fetches and overwrites; content may legitimately change between
// calls, so Prefetch is deliberately not idempotent.
func (s *Session) Prefetch(ctx context.Context) error {
	page, err := s.fetcher.Fetch(ctx, s.WatchURL)
	if err != nil {
		return err
	}
	if len(page) == 0 {
		return &fetch.Error{URL: s.WatchURL, Err: ErrEmptyPayload}
	}
	watchHTML := string(page)

	var scriptText, metadataPayload, scriptURL, metadataURL string
	aux, err := watchpage.DeriveAuxiliaryURLs(s.VideoID, s.WatchURL, watchHTML)
	if err != nil {
		// Auxiliary URLs come from the embedded config; when the page shape
		// changed the extraction failure belongs to Init, not Prefetch.
		s.logger.Warnf("auxiliary url derivation failed for video=%s: %v", s.VideoID, err)
	} else {
		bodies, err := s.fetcher.FetchAll(ctx, []string{aux.ScriptURL, aux.MetadataURL})
		if err != nil {
			return err
		}
		if len(bodies[0]) == 0 {
			return &fetch.Error{URL: aux.ScriptURL, Err: ErrEmptyPayload}
		}
		if len(bodies[1]) == 0 {
			return &fetch.Error{URL: aux.MetadataURL, Err: ErrEmptyPayload}
		}
		scriptText, metadataPayload = string(bodies[0]), string(bodies[1])
		scriptURL, metadataURL = aux.ScriptURL, aux.MetadataURL
	}

	s.watchHTML = watchHTML
	s.scriptText = scriptText
	s.metadataPayload = metadataPayload
	s.scriptURL = scriptURL
	s.metadataURL = metadataURL
	s.state = stateFetched
	return nil
}

// Init turns the fetched artifacts into the session's stream collection:
// extract config, descramble both manifest pairs, derive and apply the
// signature transform, build streams. Each stage either fully completes or
// fully fails; on failure no streams are constructed. Calling Init again
// without re-fetching re-derives an identical collection from the same
// inputs.
func (s *Session) Init() error {
	if s.state < stateFetched {
		return ErrNotFetched
	}

	metadata, err := parseMetadataPayload(s.metadataPayload)
	if err != nil {
		return err
	}

	config, err := watchpage.ExtractConfig(s.watchHTML)
	if err != nil {
		return err
	}

	metaProgressive, err := descrambleField(metadata[progressiveManifestKey])
	if err != nil {
		return err
	}
	metaAdaptive, err := descrambleField(metadata[adaptiveManifestKey])
	if err != nil {
		return err
	}
	cfgProgressiveRaw, err := config.Args.StringDefault(progressiveManifestKey, "")
	if err != nil {
		return err
	}
	cfgAdaptiveRaw, err := config.Args.StringDefault(adaptiveManifestKey, "")
	if err != nil {
		return err
	}
	cfgProgressive, err := descrambleField(cfgProgressiveRaw)
	if err != nil {
		return err
	}
	cfgAdaptive, err := descrambleField(cfgAdaptiveRaw)
	if err != nil {
		return err
	}
	s.state = stateDescrambled

	transform, err := s.deriveTransform()
	if err != nil {
		return err
	}

	if metaProgressive, err = resolveEntries(metaProgressive, transform); err != nil {
		return err
	}
	if metaAdaptive, err = resolveEntries(metaAdaptive, transform); err != nil {
		return err
	}
	if cfgProgressive, err = resolveEntries(cfgProgressive, transform); err != nil {
		return err
	}
	if cfgAdaptive, err = resolveEntries(cfgAdaptive, transform); err != nil {
		return err
	}

	var details *watchpage.VideoDetails
	if raw, err := config.Args.StringDefault("player_response", ""); err != nil {
		return err
	} else if raw != "" {
		resp, err := watchpage.ParsePlayerResponse(raw)
		if err != nil {
			return err
		}
		details = &resp.VideoDetails
	}

	// Config-derived manifests are authoritative for construction,
	// progressive variants first.
	streams := make([]*Stream, 0, len(cfgProgressive)+len(cfgAdaptive))
	for _, entry := range cfgProgressive {
		stream, err := newStream(entry, s)
		if err != nil {
			return err
		}
		streams = append(streams, stream)
	}
	for _, entry := range cfgAdaptive {
		stream, err := newStream(entry, s)
		if err != nil {
			return err
		}
		streams = append(streams, stream)
	}

	if len(s.metadataPayload) > 0 && len(metaProgressive)+len(metaAdaptive) > 0 && len(streams) == 0 {
		s.logger.Warnf("metadata manifests carry %d variants but config manifests are empty for video=%s",
			len(metaProgressive)+len(metaAdaptive), s.VideoID)
	}

	s.config = config
	s.metadata = metadata
	s.details = details
	s.metaProgressive = metaProgressive
	s.metaAdaptive = metaAdaptive
	s.fmtStreams = streams
	s.state = stateReady

	s.streamsMu.Lock()
	s.streamsMemo = nil
	s.streamsMu.Unlock()
	return nil
}

// PrefetchInit composes Prefetch and Init.
func (s *Session) PrefetchInit(ctx context.Context) error {
	if err := s.Prefetch(ctx); err != nil {
		return err
	}
	return s.Init()
}

// Streams returns the queryable stream collection. Computed on first access
// and cached; re-Init replaces the cache.
func (s *Session) Streams() *StreamQuery {
	s.streamsMu.Lock()
	defer s.streamsMu.Unlock()
	if s.streamsMemo == nil {
		s.streamsMemo = newStreamQuery(s.fmtStreams)
	}
	return s.streamsMemo
}

// OnProgress registers a download progress callback. Registration is visible
// to every stream already built for this session.
func (s *Session) OnProgress(fn OnProgressFunc) {
	s.callbacks.setOnProgress(fn)
}

// OnComplete registers a download completion callback.
func (s *Session) OnComplete(fn OnCompleteFunc) {
	s.callbacks.setOnComplete(fn)
}

// Title returns the video title when known.
func (s *Session) Title() string {
	if s.details != nil && s.details.Title != "" {
		return s.details.Title
	}
	if s.metadata != nil {
		return s.metadata["title"]
	}
	return ""
}

// Author returns the channel name when known.
func (s *Session) Author() string {
	if s.details != nil {
		return s.details.Author
	}
	return ""
}

// LengthSeconds returns the declared duration, 0 when unknown.
func (s *Session) LengthSeconds() int {
	if s.details == nil {
		return 0
	}
	n, err := strconv.Atoi(s.details.LengthSeconds)
	if err != nil {
		return 0
	}
	return n
}

func (s *Session) deriveTransform() (*playerjs.Transform, error) {
	if s.transformCache != nil && s.scriptURL != "" {
		if t, ok := s.transformCache.Get(s.scriptURL); ok {
			return t, nil
		}
	}
	t, err := playerjs.DeriveTransform(s.scriptText)
	if err != nil {
		return nil, err
	}
	if s.transformCache != nil && s.scriptURL != "" {
		s.transformCache.Set(s.scriptURL, t)
	}
	return t, nil
}

func parseMetadataPayload(payload string) (map[string]string, error) {
	if strings.TrimSpace(payload) == "" {
		return map[string]string{}, nil
	}
	values, err := url.ParseQuery(payload)
	if err != nil {
		return nil, fmt.Errorf("parse metadata payload: %w", err)
	}
	flat := make(map[string]string, len(values))
	for k, v := range values {
		if len(v) > 0 {
			flat[k] = v[0]
		}
	}
	return flat, nil
}

func descrambleField(manifest string) ([]descramble.Entry, error) {
	return descramble.Decode(manifest)
}

// resolveEntries applies the signature transform to every entry's access
// token and threads new entries forward; the input entries are not mutated.
func resolveEntries(entries []descramble.Entry, transform *playerjs.Transform) ([]descramble.Entry, error) {
	if len(entries) == 0 {
		return entries, nil
	}
	out := make([]descramble.Entry, 0, len(entries))
	for _, entry := range entries {
		resolved := make(descramble.Entry, len(entry))
		for k, v := range entry {
			resolved[k] = v
		}
		token, hasToken := resolved["s"]
		streamURL := resolved["url"]
		if hasToken && streamURL != "" && !strings.Contains(streamURL, "signature=") {
			sig, err := transform.Apply(token)
			if err != nil {
				return nil, &playerjs.ResolutionError{Reason: "transform application failed: " + err.Error()}
			}
			resolved["url"] = appendQueryParam(streamURL, "signature", sig)
		}
		out = append(out, resolved)
	}
	return out, nil
}

func appendQueryParam(rawURL, key, value string) string {
	sep := "?"
	if strings.ContainsRune(rawURL, '?') {
		sep = "&"
	}
	return rawURL + sep + key + "=" + url.QueryEscape(value)
}
