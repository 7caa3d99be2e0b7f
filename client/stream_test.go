package client

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/famomatic/tubetap/internal/descramble"
	"github.com/famomatic/tubetap/internal/watchpage"
)

// blobSession wires a range-capable fake transport around a single media blob
// and returns a stream pointing at it.
func blobSession(t *testing.T, blob []byte, chunkSize int64, declaredSize int64) (*Session, *Stream, *fakeRangeFetcher) {
	t.Helper()
	const blobURL = "http://media.example/blob"
	f := &fakeRangeFetcher{
		fakeFetcher: newFakeFetcher(),
		blob:        blob,
		blobURL:     blobURL,
	}
	s := &Session{
		VideoID:   testVideoID,
		WatchURL:  WatchURL(testVideoID),
		fetcher:   f,
		logger:    nopLogger{},
		chunkSize: chunkSize,
		callbacks: &callbackCell{},
		details:   &watchpage.VideoDetails{Title: "Blob: The Movie?"},
	}
	st := &Stream{
		Itag:         22,
		URL:          blobURL,
		MimeType:     "video/mp4",
		Progressive:  true,
		DeclaredSize: declaredSize,
		session:      s,
	}
	s.fmtStreams = []*Stream{st}
	return s, st, f
}

func TestNewStream_ParsesEntry(t *testing.T) {
	s := &Session{callbacks: &callbackCell{}}
	entry := descramble.Entry{
		"itag":    "22",
		"url":     "http://media.example/v22?signature=abc",
		"quality": "hd720",
		"fps":     "30",
		"type":    `video/mp4; codecs="avc1.64001F, mp4a.40.2"`,
	}
	st, err := newStream(entry, s)
	if err != nil {
		t.Fatalf("newStream() error = %v", err)
	}
	if st.Itag != 22 || st.Quality != "hd720" || st.FPS != 30 {
		t.Fatalf("parsed fields = itag=%d quality=%q fps=%d", st.Itag, st.Quality, st.FPS)
	}
	if st.MimeType != "video/mp4" {
		t.Fatalf("MimeType = %q", st.MimeType)
	}
	if want := []string{"avc1.64001F", "mp4a.40.2"}; !reflect.DeepEqual(st.Codecs, want) {
		t.Fatalf("Codecs = %v, want %v", st.Codecs, want)
	}
	// itag 22 is a known progressive profile.
	if !st.Progressive || st.Resolution != "720p" {
		t.Fatalf("profile = progressive=%v res=%q", st.Progressive, st.Resolution)
	}
	if !st.AudioTrack || !st.VideoTrack {
		t.Fatalf("tracks = audio=%v video=%v", st.AudioTrack, st.VideoTrack)
	}
	if st.Subtype() != "mp4" {
		t.Fatalf("Subtype() = %q", st.Subtype())
	}
}

func TestNewStream_BadItag(t *testing.T) {
	s := &Session{callbacks: &callbackCell{}}
	_, err := newStream(descramble.Entry{"itag": "not-a-number"}, s)
	var parseErr *descramble.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("newStream() error = %v, want *descramble.ParseError", err)
	}
}

func TestFilesize_Memoized(t *testing.T) {
	blob := bytes.Repeat([]byte{0xAB}, 100)
	_, st, f := blobSession(t, blob, 0, 0)

	ctx := context.Background()
	size, err := st.Filesize(ctx)
	if err != nil {
		t.Fatalf("Filesize() error = %v", err)
	}
	if size != 100 {
		t.Fatalf("Filesize() = %d, want 100", size)
	}
	if _, err := st.Filesize(ctx); err != nil {
		t.Fatalf("second Filesize() error = %v", err)
	}
	if f.probes != 1 {
		t.Fatalf("probe count = %d, want 1 (measurement must be memoized)", f.probes)
	}
}

func TestFilesize_PrefersDeclaredSize(t *testing.T) {
	_, st, f := blobSession(t, bytes.Repeat([]byte{1}, 50), 0, 4096)

	size, err := st.Filesize(context.Background())
	if err != nil {
		t.Fatalf("Filesize() error = %v", err)
	}
	if size != 4096 {
		t.Fatalf("Filesize() = %d, want declared 4096", size)
	}
	if f.probes != 0 {
		t.Fatalf("probe count = %d, want 0", f.probes)
	}
}

func TestDownload_ChunkedWithProgress(t *testing.T) {
	blob := []byte("0123456789abcdefghij") // 20 bytes
	s, st, _ := blobSession(t, blob, 8, 0)

	// Callback registration after stream construction must be observed.
	var remaining []int64
	var chunkSizes []int
	s.OnProgress(func(_ *Stream, chunk []byte, bytesRemaining int64) {
		chunkSizes = append(chunkSizes, len(chunk))
		remaining = append(remaining, bytesRemaining)
	})
	completed := false
	s.OnComplete(func(_ *Stream, path string) {
		if path != "" {
			t.Errorf("writer download reported path %q", path)
		}
		completed = true
	})

	var buf bytes.Buffer
	n, err := st.Download(context.Background(), &buf)
	if err != nil {
		t.Fatalf("Download() error = %v", err)
	}
	if n != 20 || !bytes.Equal(buf.Bytes(), blob) {
		t.Fatalf("Download() wrote %d bytes, content match=%v", n, bytes.Equal(buf.Bytes(), blob))
	}
	if want := []int{8, 8, 4}; !reflect.DeepEqual(chunkSizes, want) {
		t.Fatalf("chunk sizes = %v, want %v", chunkSizes, want)
	}
	if want := []int64{12, 4, 0}; !reflect.DeepEqual(remaining, want) {
		t.Fatalf("bytes remaining = %v, want %v", remaining, want)
	}
	if !completed {
		t.Fatal("completion callback not emitted")
	}
}

func TestDownloadTo_WritesFileAndReportsPath(t *testing.T) {
	blob := []byte("media payload")
	s, st, _ := blobSession(t, blob, 0, 0)

	var gotPath string
	s.OnComplete(func(_ *Stream, path string) { gotPath = path })

	dir := t.TempDir()
	path, err := st.DownloadTo(context.Background(), dir)
	if err != nil {
		t.Fatalf("DownloadTo() error = %v", err)
	}
	if gotPath != path {
		t.Fatalf("completion path = %q, want %q", gotPath, path)
	}
	if filepath.Dir(path) != dir {
		t.Fatalf("path %q not under %q", path, dir)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read downloaded file: %v", err)
	}
	if !bytes.Equal(data, blob) {
		t.Fatalf("file content = %q, want %q", data, blob)
	}
}

func TestDefaultFilename_Sanitized(t *testing.T) {
	s, st, _ := blobSession(t, nil, 0, 0)
	if got, want := st.DefaultFilename(), "Blob The Movie.mp4"; got != want {
		t.Fatalf("DefaultFilename() = %q, want %q", got, want)
	}
	s.details = nil
	if got, want := st.DefaultFilename(), testVideoID+".mp4"; got != want {
		t.Fatalf("DefaultFilename() without title = %q, want %q", got, want)
	}
}

func TestStream_String(t *testing.T) {
	_, st, _ := blobSession(t, nil, 0, 0)
	st.Resolution = "720p"
	st.FPS = 30
	got := st.String()
	for _, want := range []string{"itag=22", "mime=video/mp4", "res=720p", "fps=30"} {
		if !bytes.Contains([]byte(got), []byte(want)) {
			t.Fatalf("String() = %q, missing %q", got, want)
		}
	}
}
