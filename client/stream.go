package client

import (
	"context"
	"fmt"
	"io"
	"mime"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/famomatic/tubetap/internal/descramble"
	"github.com/famomatic/tubetap/internal/fetch"
	"github.com/famomatic/tubetap/internal/itags"
)

const defaultChunkSize int64 = 9 * 1024 * 1024

// Stream is one playable variant with a resolved, fetchable URL. It is
// immutable after construction except for the lazily measured filesize,
// which is computed at most once.
type Stream struct {
	Itag         int
	URL          string
	MimeType     string
	Codecs       []string
	Quality      string
	Resolution   string
	ABR          string
	FPS          int
	Progressive  bool
	AudioTrack   bool
	VideoTrack   bool
	DeclaredSize int64 // from the manifest's clen field, 0 when absent

	session *Session

	sizeMu       sync.Mutex
	sizeMeasured bool
	size         int64
}

func newStream(entry descramble.Entry, s *Session) (*Stream, error) {
	rawItag := entry["itag"]
	itag, err := strconv.Atoi(rawItag)
	if err != nil {
		return nil, &descramble.ParseError{Fragment: "itag=" + rawItag, Reason: "itag is not an integer"}
	}

	mimeType, codecs := parseStreamType(entry["type"])

	st := &Stream{
		Itag:     itag,
		URL:      entry["url"],
		MimeType: mimeType,
		Codecs:   codecs,
		Quality:  entry["quality"],
		session:  s,
	}

	if clen := entry["clen"]; clen != "" {
		if n, err := strconv.ParseInt(clen, 10, 64); err == nil {
			st.DeclaredSize = n
		}
	}
	if fps := entry["fps"]; fps != "" {
		if n, err := strconv.Atoi(fps); err == nil {
			st.FPS = n
		}
	}

	if profile, ok := itags.Lookup(itag); ok {
		st.Resolution = profile.Resolution
		st.ABR = profile.ABR
		st.Progressive = profile.Progressive
	} else {
		// Unknown itag: a progressive variant muxes both tracks, which shows
		// up as two codecs on one mime type.
		st.Progressive = strings.HasPrefix(mimeType, "video/") && len(codecs) > 1
	}

	st.VideoTrack = st.Progressive || strings.HasPrefix(mimeType, "video/")
	st.AudioTrack = st.Progressive || strings.HasPrefix(mimeType, "audio/")
	return st, nil
}

// parseStreamType splits a manifest type field such as
// `video/mp4; codecs="avc1.42001E, mp4a.40.2"` into mime type and codecs.
func parseStreamType(raw string) (string, []string) {
	if raw == "" {
		return "", nil
	}
	mediaType, params, err := mime.ParseMediaType(raw)
	if err != nil {
		return raw, nil
	}
	var codecs []string
	for _, c := range strings.Split(params["codecs"], ",") {
		if trimmed := strings.TrimSpace(c); trimmed != "" {
			codecs = append(codecs, trimmed)
		}
	}
	return mediaType, codecs
}

// Adaptive reports whether the stream carries a single track.
func (st *Stream) Adaptive() bool { return !st.Progressive }

// Subtype returns the container part of the mime type ("mp4", "webm").
func (st *Stream) Subtype() string {
	if _, subtype, ok := strings.Cut(st.MimeType, "/"); ok {
		return subtype
	}
	return ""
}

// Filesize measures the stream's size in bytes. The manifest's declared size
// is preferred; otherwise the transport probes the URL. The measurement is
// memoized: the first successful caller stores it and later calls never
// re-measure.
func (st *Stream) Filesize(ctx context.Context) (int64, error) {
	st.sizeMu.Lock()
	defer st.sizeMu.Unlock()
	if st.sizeMeasured {
		return st.size, nil
	}
	if st.DeclaredSize > 0 {
		st.size = st.DeclaredSize
		st.sizeMeasured = true
		return st.size, nil
	}
	prober, ok := st.session.fetcher.(fetch.RangeFetcher)
	if !ok {
		return 0, fmt.Errorf("stream %d: transport does not support length probing", st.Itag)
	}
	size, err := prober.ProbeLength(ctx, st.URL)
	if err != nil {
		return 0, err
	}
	st.size = size
	st.sizeMeasured = true
	return st.size, nil
}

// Download writes the stream to w in ranged chunks, emitting the session's
// progress callback per chunk and the completion callback at the end.
func (st *Stream) Download(ctx context.Context, w io.Writer) (int64, error) {
	written, err := st.download(ctx, w)
	if err != nil {
		return written, err
	}
	st.session.callbacks.emitComplete(st, "")
	return written, nil
}

// DownloadTo writes the stream into dir under DefaultFilename and returns the
// file path.
func (st *Stream) DownloadTo(ctx context.Context, dir string) (string, error) {
	path := filepath.Join(dir, st.DefaultFilename())
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	if _, err := st.download(ctx, f); err != nil {
		f.Close()
		os.Remove(path)
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	st.session.callbacks.emitComplete(st, path)
	return path, nil
}

func (st *Stream) download(ctx context.Context, w io.Writer) (int64, error) {
	ranger, ok := st.session.fetcher.(fetch.RangeFetcher)
	if !ok {
		body, err := st.session.fetcher.Fetch(ctx, st.URL)
		if err != nil {
			return 0, err
		}
		n, err := w.Write(body)
		if err != nil {
			return int64(n), err
		}
		st.session.callbacks.emitProgress(st, body, 0)
		return int64(n), nil
	}

	total, err := st.Filesize(ctx)
	if err != nil {
		return 0, err
	}
	chunkSize := st.session.chunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}

	var written int64
	for start := int64(0); start < total; start += chunkSize {
		end := start + chunkSize - 1
		if end >= total {
			end = total - 1
		}
		chunk, err := ranger.FetchRange(ctx, st.URL, start, end)
		if err != nil {
			return written, err
		}
		n, err := w.Write(chunk)
		written += int64(n)
		if err != nil {
			return written, err
		}
		st.session.callbacks.emitProgress(st, chunk, total-written)
	}
	return written, nil
}

var unsafeFilenameChars = regexp.MustCompile(`[^\w\- ]+`)

// DefaultFilename derives a filesystem-safe name from the video title and the
// stream container.
func (st *Stream) DefaultFilename() string {
	title := st.session.Title()
	if title == "" {
		title = st.session.VideoID
	}
	name := unsafeFilenameChars.ReplaceAllString(title, "")
	name = strings.TrimSpace(name)
	if name == "" {
		name = st.session.VideoID
	}
	ext := st.Subtype()
	if ext == "" {
		ext = "bin"
	}
	return name + "." + ext
}

func (st *Stream) String() string {
	parts := []string{fmt.Sprintf("itag=%d", st.Itag), "mime=" + st.MimeType}
	if st.Resolution != "" {
		parts = append(parts, "res="+st.Resolution)
	}
	if st.ABR != "" {
		parts = append(parts, "abr="+st.ABR)
	}
	if st.FPS > 0 {
		parts = append(parts, fmt.Sprintf("fps=%d", st.FPS))
	}
	return "<Stream " + strings.Join(parts, " ") + ">"
}
