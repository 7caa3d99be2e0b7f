package playerjs

import (
	"fmt"
	"regexp"
	"strconv"
)

// DeriveTransform parses the script text and returns the signature transform.
// Static regex parsing into the internal instruction list is preferred; when
// the script shape defeats it, the entry-point function is evaluated inside an
// embedded JS runtime instead. Derivation is deterministic: the same script
// text always yields a transform with identical behavior.
func DeriveTransform(script string) (*Transform, error) {
	body := []byte(script)

	ops, staticErr := parseOps(body)
	if staticErr == nil {
		return &Transform{ops: ops}, nil
	}

	fn, runtimeErr := buildRuntimeTransform(script)
	if runtimeErr == nil {
		return &Transform{fn: fn}, nil
	}

	return nil, &ResolutionError{
		Reason: fmt.Sprintf("static parse: %v; runtime: %v", staticErr, runtimeErr),
	}
}

const (
	jsVarStr   = "[a-zA-Z_\\$][a-zA-Z_0-9]*"
	reverseStr = ":function\\(a\\)\\{" +
		"(?:return )?a\\.reverse\\(\\)" +
		"\\}"
	spliceStr = ":function\\(a,b\\)\\{" +
		"a\\.splice\\(0,b\\)" +
		"\\}"
	swapStr = ":function\\(a,b\\)\\{" +
		"var c=a\\[0\\];a\\[0\\]=a\\[b(?:%a\\.length)?\\];a\\[b(?:%a\\.length)?\\]=c(?:;return a)?" +
		"\\}"
)

var (
	actionsObjRegexp = regexp.MustCompile(fmt.Sprintf(
		"(?:var|let|const)\\s+(%s)=\\{((?:(?:%s%s|%s%s|%s%s),?\\n?)+)\\}\\s*;?",
		jsVarStr, jsVarStr, swapStr, jsVarStr, spliceStr, jsVarStr, reverseStr))
	reverseRegexp      = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVarStr, reverseStr))
	spliceRegexp       = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVarStr, spliceStr))
	swapRegexp         = regexp.MustCompile(fmt.Sprintf("(?m)(?:^|,)(%s)%s", jsVarStr, swapStr))
	actionsFuncRegexps = []*regexp.Regexp{
		// function XX(a){...}
		regexp.MustCompile(fmt.Sprintf(
			"function(?:\\s+%s)?\\(a\\)\\{"+
				"a=a\\.split\\([^\\)]*\\);\\s*"+
				"((?:(?:a=)?%s(?:\\.%s|\\[[^\\]]+\\])\\(a,\\d+\\);?\\s*)+)"+
				"return a\\.join\\([^\\)]*\\)"+
				"\\}", jsVarStr, jsVarStr, jsVarStr)),
		// XX=function(a){...}
		regexp.MustCompile(fmt.Sprintf(
			"%s\\s*=\\s*function\\(a\\)\\{"+
				"a=a\\.split\\([^\\)]*\\);\\s*"+
				"((?:(?:a=)?%s(?:\\.%s|\\[[^\\]]+\\])\\(a,\\d+\\);?\\s*)+)"+
				"return a\\.join\\([^\\)]*\\)"+
				"\\}", jsVarStr, jsVarStr, jsVarStr)),
	}
)

// parseOps locates the actions object and the entry-point function body, then
// lowers every call in the body to an instruction.
func parseOps(body []byte) ([]op, error) {
	objResult := actionsObjRegexp.FindSubmatch(body)
	funcBody := findActionsFuncBody(body)
	if len(objResult) < 3 || len(funcBody) == 0 {
		return nil, fmt.Errorf("signature tokens not found (#obj=%d, #func=%d)", len(objResult), len(funcBody))
	}

	obj := objResult[1]
	objBody := objResult[2]

	var reverseKey, spliceKey, swapKey string
	if result := reverseRegexp.FindSubmatch(objBody); len(result) > 1 {
		reverseKey = string(result[1])
	}
	if result := spliceRegexp.FindSubmatch(objBody); len(result) > 1 {
		spliceKey = string(result[1])
	}
	if result := swapRegexp.FindSubmatch(objBody); len(result) > 1 {
		swapKey = string(result[1])
	}

	callRegexp, err := regexp.Compile(fmt.Sprintf(
		"(?:a=)?%s(?:\\.(%s|%s|%s)|\\[(?:\"(%s|%s|%s)\"|'(%s|%s|%s)')\\])\\(a,(\\d+)\\)",
		regexp.QuoteMeta(string(obj)),
		regexp.QuoteMeta(reverseKey),
		regexp.QuoteMeta(spliceKey),
		regexp.QuoteMeta(swapKey),
		regexp.QuoteMeta(reverseKey),
		regexp.QuoteMeta(spliceKey),
		regexp.QuoteMeta(swapKey),
		regexp.QuoteMeta(reverseKey),
		regexp.QuoteMeta(spliceKey),
		regexp.QuoteMeta(swapKey),
	))
	if err != nil {
		return nil, err
	}

	var ops []op
	for _, s := range callRegexp.FindAllSubmatch(funcBody, -1) {
		if len(s) < 5 {
			continue
		}
		key := firstNonEmptySubmatch(s[1], s[2], s[3])
		arg, _ := strconv.Atoi(string(s[4]))
		switch key {
		case reverseKey:
			ops = append(ops, op{kind: opReverse})
		case swapKey:
			ops = append(ops, op{kind: opSwap, arg: arg})
		case spliceKey:
			ops = append(ops, op{kind: opSplice, arg: arg})
		}
	}
	if len(ops) == 0 {
		return nil, fmt.Errorf("empty operation list")
	}
	return ops, nil
}

func findActionsFuncBody(body []byte) []byte {
	for _, re := range actionsFuncRegexps {
		if m := re.FindSubmatch(body); len(m) > 1 {
			return m[1]
		}
	}
	return nil
}

func firstNonEmptySubmatch(groups ...[]byte) string {
	for _, g := range groups {
		if len(g) > 0 {
			return string(g)
		}
	}
	return ""
}
