package client

import (
	"sort"
	"strconv"
	"strings"
)

// StreamQuery is a read-only ordered view over a session's streams. Query
// operations never mutate or recompute the underlying collection; derived
// queries wrap a filtered copy.
type StreamQuery struct {
	streams []*Stream
}

func newStreamQuery(streams []*Stream) *StreamQuery {
	return &StreamQuery{streams: append([]*Stream(nil), streams...)}
}

// NewStreamQuery wraps an explicit stream slice, for callers composing their
// own collections outside a session.
func NewStreamQuery(streams []*Stream) *StreamQuery {
	return newStreamQuery(streams)
}

// FilterOptions narrows a query. Zero fields are ignored.
type FilterOptions struct {
	Progressive bool
	Adaptive    bool
	OnlyAudio   bool
	OnlyVideo   bool
	Subtype     string // container, e.g. "mp4"
	Resolution  string // e.g. "720p"
	FPS         int
	Custom      func(*Stream) bool
}

// Filter returns a new query holding the streams matching every set option.
func (q *StreamQuery) Filter(opts FilterOptions) *StreamQuery {
	out := make([]*Stream, 0, len(q.streams))
	for _, st := range q.streams {
		if opts.Progressive && !st.Progressive {
			continue
		}
		if opts.Adaptive && st.Progressive {
			continue
		}
		if opts.OnlyAudio && (!st.AudioTrack || st.VideoTrack) {
			continue
		}
		if opts.OnlyVideo && (!st.VideoTrack || st.AudioTrack) {
			continue
		}
		if opts.Subtype != "" && !strings.EqualFold(st.Subtype(), opts.Subtype) {
			continue
		}
		if opts.Resolution != "" && st.Resolution != opts.Resolution {
			continue
		}
		if opts.FPS > 0 && st.FPS != opts.FPS {
			continue
		}
		if opts.Custom != nil && !opts.Custom(st) {
			continue
		}
		out = append(out, st)
	}
	return &StreamQuery{streams: out}
}

// OrderAttr names a sortable stream attribute.
type OrderAttr string

const (
	OrderByResolution OrderAttr = "resolution"
	OrderByABR        OrderAttr = "abr"
	OrderByItag       OrderAttr = "itag"
	OrderByFPS        OrderAttr = "fps"
)

// OrderBy returns a new query sorted ascending by the attribute. Streams
// without the attribute sort first.
func (q *StreamQuery) OrderBy(attr OrderAttr) *StreamQuery {
	out := append([]*Stream(nil), q.streams...)
	sort.SliceStable(out, func(i, j int) bool {
		return attrRank(out[i], attr) < attrRank(out[j], attr)
	})
	return &StreamQuery{streams: out}
}

// Desc returns a new query with the order reversed.
func (q *StreamQuery) Desc() *StreamQuery {
	out := make([]*Stream, len(q.streams))
	for i, st := range q.streams {
		out[len(out)-1-i] = st
	}
	return &StreamQuery{streams: out}
}

// Asc returns the query itself; it exists to pair with Desc for readability.
func (q *StreamQuery) Asc() *StreamQuery { return q }

func attrRank(st *Stream, attr OrderAttr) int {
	switch attr {
	case OrderByResolution:
		return leadingInt(st.Resolution)
	case OrderByABR:
		return leadingInt(st.ABR)
	case OrderByFPS:
		return st.FPS
	default:
		return st.Itag
	}
}

func leadingInt(s string) int {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return 0
	}
	n, _ := strconv.Atoi(s[:end])
	return n
}

// GetByItag returns the stream with the given itag, or nil.
func (q *StreamQuery) GetByItag(itag int) *Stream {
	for _, st := range q.streams {
		if st.Itag == itag {
			return st
		}
	}
	return nil
}

// Highest returns the last stream after ordering ascending by attr: the
// highest-resolution or highest-bitrate variant.
func (q *StreamQuery) Highest(attr OrderAttr) *Stream {
	return q.OrderBy(attr).Last()
}

// Lowest returns the first stream after ordering ascending by attr.
func (q *StreamQuery) Lowest(attr OrderAttr) *Stream {
	return q.OrderBy(attr).First()
}

// First returns the first stream in order, or nil when empty.
func (q *StreamQuery) First() *Stream {
	if len(q.streams) == 0 {
		return nil
	}
	return q.streams[0]
}

// Last returns the final stream in order, or nil when empty.
func (q *StreamQuery) Last() *Stream {
	if len(q.streams) == 0 {
		return nil
	}
	return q.streams[len(q.streams)-1]
}

// All returns the streams in order. The returned slice is a copy.
func (q *StreamQuery) All() []*Stream {
	return append([]*Stream(nil), q.streams...)
}

// Count returns the number of streams in the query.
func (q *StreamQuery) Count() int { return len(q.streams) }
