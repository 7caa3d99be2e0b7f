package client

import "testing"

func queryFixture() *StreamQuery {
	return newStreamQuery([]*Stream{
		{Itag: 18, MimeType: "video/mp4", Resolution: "360p", Progressive: true, AudioTrack: true, VideoTrack: true},
		{Itag: 22, MimeType: "video/mp4", Resolution: "720p", FPS: 30, Progressive: true, AudioTrack: true, VideoTrack: true},
		{Itag: 140, MimeType: "audio/mp4", ABR: "128kbps", AudioTrack: true},
		{Itag: 251, MimeType: "audio/webm", ABR: "160kbps", AudioTrack: true},
		{Itag: 248, MimeType: "video/webm", Resolution: "1080p", FPS: 30, VideoTrack: true},
	})
}

func itagsOf(q *StreamQuery) []int {
	out := make([]int, 0, q.Count())
	for _, st := range q.All() {
		out = append(out, st.Itag)
	}
	return out
}

func equalItags(a []int, b ...int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestFilter_Progressive(t *testing.T) {
	q := queryFixture().Filter(FilterOptions{Progressive: true})
	if got := itagsOf(q); !equalItags(got, 18, 22) {
		t.Fatalf("progressive itags = %v", got)
	}
}

func TestFilter_OnlyAudio(t *testing.T) {
	q := queryFixture().Filter(FilterOptions{OnlyAudio: true})
	if got := itagsOf(q); !equalItags(got, 140, 251) {
		t.Fatalf("audio itags = %v", got)
	}
}

func TestFilter_SubtypeAndResolution(t *testing.T) {
	q := queryFixture().Filter(FilterOptions{Subtype: "webm", OnlyVideo: true})
	if got := itagsOf(q); !equalItags(got, 248) {
		t.Fatalf("webm video itags = %v", got)
	}
	q = queryFixture().Filter(FilterOptions{Resolution: "720p"})
	if got := itagsOf(q); !equalItags(got, 22) {
		t.Fatalf("720p itags = %v", got)
	}
}

func TestFilter_Custom(t *testing.T) {
	q := queryFixture().Filter(FilterOptions{
		Custom: func(st *Stream) bool { return st.FPS == 30 },
	})
	if got := itagsOf(q); !equalItags(got, 22, 248) {
		t.Fatalf("fps=30 itags = %v", got)
	}
}

func TestFilter_DoesNotMutateSource(t *testing.T) {
	src := queryFixture()
	src.Filter(FilterOptions{OnlyAudio: true})
	if src.Count() != 5 {
		t.Fatalf("source query mutated: count = %d", src.Count())
	}
}

func TestOrderBy_Resolution(t *testing.T) {
	q := queryFixture().Filter(FilterOptions{OnlyVideo: true}).OrderBy(OrderByResolution)
	if got := itagsOf(q); !equalItags(got, 248) {
		t.Fatalf("video-only itags = %v", got)
	}

	q = queryFixture().Filter(FilterOptions{Progressive: true}).OrderBy(OrderByResolution).Desc()
	if got := itagsOf(q); !equalItags(got, 22, 18) {
		t.Fatalf("descending resolution itags = %v", got)
	}
}

func TestOrderBy_ABRStable(t *testing.T) {
	q := queryFixture().Filter(FilterOptions{OnlyAudio: true}).OrderBy(OrderByABR)
	if got := itagsOf(q); !equalItags(got, 140, 251) {
		t.Fatalf("ascending abr itags = %v", got)
	}
}

func TestHighestLowest(t *testing.T) {
	q := queryFixture()
	if st := q.Highest(OrderByResolution); st == nil || st.Itag != 248 {
		t.Fatalf("Highest(resolution) = %v", st)
	}
	if st := q.Filter(FilterOptions{OnlyAudio: true}).Lowest(OrderByABR); st == nil || st.Itag != 140 {
		t.Fatalf("Lowest(abr) = %v", st)
	}
}

func TestGetByItag(t *testing.T) {
	q := queryFixture()
	if st := q.GetByItag(140); st == nil || st.MimeType != "audio/mp4" {
		t.Fatalf("GetByItag(140) = %v", st)
	}
	if st := q.GetByItag(9999); st != nil {
		t.Fatalf("GetByItag(9999) = %v, want nil", st)
	}
}

func TestEmptyQuery(t *testing.T) {
	q := newStreamQuery(nil)
	if q.Count() != 0 || q.First() != nil || q.Last() != nil {
		t.Fatal("empty query must report no streams")
	}
	if q.Highest(OrderByResolution) != nil {
		t.Fatal("Highest on empty query must be nil")
	}
}
