package playerjs

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/dop251/goja"
)

// entryPointRegexps locate the name of the signature function the player
// config references. Ordered from most to least specific; the naming
// convention drifts across script versions.
var entryPointRegexps = []*regexp.Regexp{
	regexp.MustCompile(`\b[cs]\s*&&\s*[adf]\.set\([^,]+\s*,\s*encodeURIComponent\s*\(\s*([a-zA-Z0-9$]+)\(`),
	regexp.MustCompile(`\b[a-zA-Z0-9]+\s*&&\s*[a-zA-Z0-9]+\.set\([^,]+\s*,\s*encodeURIComponent\s*\(\s*([a-zA-Z0-9$]+)\(`),
	regexp.MustCompile(`(?:"|')signature(?:"|')\s*,\s*([a-zA-Z0-9$]+)\(`),
	regexp.MustCompile(`\.sig\|\|([a-zA-Z0-9$]+)\(`),
	regexp.MustCompile(`\.set\((?:"|')signature(?:"|')\s*,\s*([a-zA-Z0-9$]+)\(`),
}

var helperObjRegexp = regexp.MustCompile(`(?:;|,|\{|^|\s)([a-zA-Z_$][a-zA-Z_0-9$]*)(?:\.[a-zA-Z_$][a-zA-Z_0-9$]*|\[(?:"[^"]+"|'[^']+')\])\(a,\d+\)`)

// buildRuntimeTransform evaluates the entry-point function and its helper
// object inside an embedded JS runtime. Used when the static op parser cannot
// follow the script shape.
func buildRuntimeTransform(script string) (func(string) (string, error), error) {
	body := []byte(script)

	name := findEntryPointName(body)
	if name == "" {
		return nil, errors.New("entry-point function name not found")
	}
	fnSrc, err := extractFunction(body, name)
	if err != nil {
		return nil, err
	}

	src := fnSrc
	if helper := helperObjRegexp.FindSubmatch([]byte(fnSrc)); len(helper) > 1 {
		helperSrc, err := extractObject(body, string(helper[1]))
		if err != nil {
			return nil, err
		}
		src = helperSrc + ";" + fnSrc
	}

	const exportName = "__tubetap_sig"
	vm := goja.New()
	if _, err := vm.RunString(src + ";" + exportName + "=" + name + ";"); err != nil {
		return nil, fmt.Errorf("runtime evaluation failed: %w", err)
	}
	var sig func(string) string
	if err := vm.ExportTo(vm.Get(exportName), &sig); err != nil {
		return nil, fmt.Errorf("entry point is not callable: %w", err)
	}

	return func(token string) (string, error) {
		return sig(token), nil
	}, nil
}

func findEntryPointName(body []byte) string {
	for _, re := range entryPointRegexps {
		if m := re.FindSubmatch(body); len(m) > 1 {
			return string(m[1])
		}
	}
	// Last resort: a function matching the split/op/join shape carries the
	// name in its own definition.
	if m := regexp.MustCompile(`([a-zA-Z_$][a-zA-Z_0-9$]*)\s*=\s*function\(a\)\{a=a\.split\(`).FindSubmatch(body); len(m) > 1 {
		return string(m[1])
	}
	return ""
}

// extractFunction returns "<name>=function(...){...}" with a brace-matched
// body, tolerating string literals containing braces.
func extractFunction(body []byte, name string) (string, error) {
	name = strings.TrimSpace(name)
	defPatterns := [][]byte{
		[]byte(name + "=function("),
		[]byte(name + " = function("),
		[]byte("function " + name + "("),
	}
	start := -1
	for _, def := range defPatterns {
		start = bytes.Index(body, def)
		if start >= 0 {
			break
		}
	}
	if start < 0 {
		return "", fmt.Errorf("function %q not found", name)
	}

	open := bytes.IndexByte(body[start:], '{')
	if open < 0 {
		return "", fmt.Errorf("function %q has no body", name)
	}
	end, err := matchBraces(body, start+open)
	if err != nil {
		return "", fmt.Errorf("function %q: %w", name, err)
	}
	src := string(body[start:end])
	if bytes.HasPrefix(body[start:], []byte("function ")) {
		return src, nil
	}
	// Normalize assignment-style definitions to a plain declaration target.
	return "var " + src, nil
}

// extractObject returns "var <name>={...}" for the helper object holding the
// elementary operations.
func extractObject(body []byte, name string) (string, error) {
	re, err := regexp.Compile(`(?:var|let|const)?\s*` + regexp.QuoteMeta(name) + `\s*=\s*\{`)
	if err != nil {
		return "", err
	}
	loc := re.FindIndex(body)
	if loc == nil {
		return "", fmt.Errorf("helper object %q not found", name)
	}
	open := bytes.IndexByte(body[loc[0]:], '{')
	end, err := matchBraces(body, loc[0]+open)
	if err != nil {
		return "", fmt.Errorf("helper object %q: %w", name, err)
	}
	return "var " + name + "=" + string(body[loc[0]+open:end]), nil
}

// matchBraces scans from the opening brace at pos to its matching close,
// skipping braces inside string literals. Returns the index one past the
// closing brace.
func matchBraces(body []byte, pos int) (int, error) {
	if pos < 0 || pos >= len(body) || body[pos] != '{' {
		return 0, errors.New("no opening brace")
	}
	var strChar byte
	for brackets, i := 1, pos+1; ; i++ {
		if i >= len(body) {
			return 0, errors.New("unterminated body")
		}
		switch b := body[i]; b {
		case '{':
			if strChar == 0 {
				brackets++
			}
		case '}':
			if strChar == 0 {
				brackets--
				if brackets == 0 {
					return i + 1, nil
				}
			}
		case '`', '"', '\'':
			if i > 1 && body[i-1] == '\\' && body[i-2] != '\\' {
				continue
			}
			if strChar == 0 {
				strChar = b
			} else if strChar == b {
				strChar = 0
			}
		}
	}
}
