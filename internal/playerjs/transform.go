// Package playerjs derives the per-session signature transform from player
// bootstrap script text. The transform is a short sequence of elementary
// string operations (reverse, splice, swap) whose order and parameters are
// only discoverable by inspecting the script at runtime.
package playerjs

import "sync"

type opKind int

const (
	opReverse opKind = iota
	opSplice
	opSwap
)

// op is one elementary instruction of the derived transform.
type op struct {
	kind opKind
	arg  int
}

// ResolutionError reports that no transform could be derived from the script
// text: the entry point or operation table was not found. This is distinct
// from an absent manifest, which is a legitimate empty result; a resolution
// failure means the script shape changed and the pipeline is broken.
type ResolutionError struct {
	Reason string
}

func (e *ResolutionError) Error() string {
	return "playerjs: signature transform resolution failed: " + e.Reason
}

// Transform applies the script-derived operation sequence to a scrambled
// access token. It is safe for concurrent use and never mutates its input:
// the same token always yields the same output.
type Transform struct {
	ops []op

	// runtime fallback when static parsing fails
	mu sync.Mutex
	fn func(string) (string, error)
}

// Apply resolves one scrambled token. The static instruction list operates on
// a private copy of the token; the runtime fallback is serialized because the
// underlying JS runtime is single-threaded.
func (t *Transform) Apply(token string) (string, error) {
	if len(t.ops) > 0 {
		bs := []byte(token)
		for _, o := range t.ops {
			bs = o.exec(bs)
		}
		return string(bs), nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fn(token)
}

func (o op) exec(bs []byte) []byte {
	switch o.kind {
	case opReverse:
		for l, r := 0, len(bs)-1; l < r; l, r = l+1, r-1 {
			bs[l], bs[r] = bs[r], bs[l]
		}
	case opSplice:
		if o.arg >= 0 && o.arg <= len(bs) {
			bs = bs[o.arg:]
		}
	case opSwap:
		if len(bs) > 0 {
			pos := o.arg % len(bs)
			bs[0], bs[pos] = bs[pos], bs[0]
		}
	}
	return bs
}
