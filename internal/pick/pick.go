// Package pick parses stream-selection expressions of the form
// "bestvideo[ext=mp4]/best": alternatives separated by "/", each a base
// keyword plus bracketed attribute filters, evaluated left to right until one
// matches a candidate.
package pick

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Candidate is the attribute view a selection expression is evaluated
// against. Height and Bitrate are zero when the variant does not declare
// them.
type Candidate struct {
	Itag        int
	Height      int // vertical resolution
	FPS         int
	Bitrate     int // audio bitrate in kbps
	Ext         string
	Audio       bool
	Video       bool
	Progressive bool
}

// Selection is a parsed expression: an ordered list of alternatives.
type Selection struct {
	alternatives []alternative
}

type alternative struct {
	rank    rankMode
	track   trackKind
	filters []filter
}

type rankMode int

const (
	rankBest rankMode = iota
	rankWorst
)

type trackKind int

const (
	trackAny trackKind = iota
	trackVideo
	trackAudio
	trackProgressive
)

type filter struct {
	attr  string // ext, res, fps, itag
	op    string // =, !=, <, <=, >, >=
	value string
}

// Parse parses a selection expression. An empty expression is an error; use
// an explicit "best" for the default.
func Parse(expr string) (*Selection, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("pick: empty expression")
	}
	if strings.Contains(expr, "+") {
		return nil, fmt.Errorf("pick: merging variants with + is not supported")
	}

	sel := &Selection{}
	for _, raw := range strings.Split(expr, "/") {
		alt, err := parseAlternative(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		sel.alternatives = append(sel.alternatives, alt)
	}
	return sel, nil
}

var modifierRegexp = regexp.MustCompile(`\[([^\]]+)\]`)

func parseAlternative(raw string) (alternative, error) {
	base := raw
	var mods string
	if idx := strings.IndexByte(raw, '['); idx >= 0 {
		base, mods = raw[:idx], raw[idx:]
	}

	alt, err := parseBase(strings.ToLower(strings.TrimSpace(base)))
	if err != nil {
		return alternative{}, err
	}
	for _, m := range modifierRegexp.FindAllStringSubmatch(mods, -1) {
		f, err := parseFilter(m[1])
		if err != nil {
			return alternative{}, err
		}
		alt.filters = append(alt.filters, f)
	}
	return alt, nil
}

func parseBase(base string) (alternative, error) {
	switch base {
	case "best", "":
		return alternative{rank: rankBest, track: trackProgressive}, nil
	case "worst":
		return alternative{rank: rankWorst, track: trackProgressive}, nil
	case "bestvideo", "bv":
		return alternative{rank: rankBest, track: trackVideo}, nil
	case "worstvideo", "wv":
		return alternative{rank: rankWorst, track: trackVideo}, nil
	case "bestaudio", "ba":
		return alternative{rank: rankBest, track: trackAudio}, nil
	case "worstaudio", "wa":
		return alternative{rank: rankWorst, track: trackAudio}, nil
	case "mp4", "webm", "m4a":
		return alternative{rank: rankBest, filters: []filter{{attr: "ext", op: "=", value: base}}}, nil
	}
	// A bare filter works as a base too: "itag=22", "res<=720".
	if f, err := parseFilter(base); err == nil {
		return alternative{rank: rankBest, filters: []filter{f}}, nil
	}
	return alternative{}, fmt.Errorf("pick: unknown selector %q", base)
}

// filterOps is ordered so two-character operators match before their
// one-character prefixes.
var filterOps = []string{"<=", ">=", "!=", "=", "<", ">", ":"}

func parseFilter(raw string) (filter, error) {
	for _, op := range filterOps {
		idx := strings.Index(raw, op)
		if idx < 0 {
			continue
		}
		attr := strings.TrimSpace(raw[:idx])
		value := strings.TrimSpace(raw[idx+len(op):])
		if op == ":" {
			op = "="
		}
		switch attr {
		case "ext":
			return filter{attr: "ext", op: op, value: value}, nil
		case "res", "height":
			return filter{attr: "res", op: op, value: strings.TrimSuffix(value, "p")}, nil
		case "fps":
			return filter{attr: "fps", op: op, value: value}, nil
		case "itag":
			return filter{attr: "itag", op: op, value: value}, nil
		}
		return filter{}, fmt.Errorf("pick: unknown filter attribute %q", attr)
	}
	return filter{}, fmt.Errorf("pick: malformed filter %q", raw)
}

// Choose evaluates the expression against the candidates and returns the
// index of the chosen one, or -1 when no alternative matches.
func (s *Selection) Choose(candidates []Candidate) int {
	for _, alt := range s.alternatives {
		if idx := alt.choose(candidates); idx >= 0 {
			return idx
		}
	}
	return -1
}

func (a alternative) choose(candidates []Candidate) int {
	chosen := -1
	for i, c := range candidates {
		if !a.admits(c) {
			continue
		}
		if chosen < 0 {
			chosen = i
			continue
		}
		better := rankValue(c) > rankValue(candidates[chosen])
		if (a.rank == rankBest) == better {
			chosen = i
		}
	}
	return chosen
}

func (a alternative) admits(c Candidate) bool {
	switch a.track {
	case trackVideo:
		if !c.Video || c.Audio {
			return false
		}
	case trackAudio:
		if !c.Audio || c.Video {
			return false
		}
	case trackProgressive:
		if !c.Progressive {
			return false
		}
	}
	for _, f := range a.filters {
		if !f.admits(c) {
			return false
		}
	}
	return true
}

func (f filter) admits(c Candidate) bool {
	switch f.attr {
	case "ext":
		if f.op == "!=" {
			return !strings.EqualFold(c.Ext, f.value)
		}
		return strings.EqualFold(c.Ext, f.value)
	case "res":
		return compareInt(c.Height, f.op, f.value)
	case "fps":
		return compareInt(c.FPS, f.op, f.value)
	case "itag":
		return compareInt(c.Itag, f.op, f.value)
	}
	return false
}

func compareInt(have int, op, rawWant string) bool {
	want, err := strconv.Atoi(rawWant)
	if err != nil {
		return false
	}
	switch op {
	case "=":
		return have == want
	case "!=":
		return have != want
	case "<":
		return have < want
	case "<=":
		return have <= want
	case ">":
		return have > want
	case ">=":
		return have >= want
	}
	return false
}

// rankValue orders candidates for best/worst: resolution dominates, audio
// bitrate breaks ties for audio-only variants.
func rankValue(c Candidate) int {
	return c.Height*10000 + c.FPS*100 + c.Bitrate
}
