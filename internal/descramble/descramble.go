// Package descramble decodes the delimiter-encoded stream manifests embedded
// in watch-page metadata into ordered key-value entries.
package descramble

import (
	"net/url"
	"sort"
	"strings"
)

// Entry is one stream variant before signature resolution: a flat mapping of
// manifest field names to percent-decoded values.
type Entry map[string]string

const (
	variantDelimiter = ";"
	fieldDelimiter   = "&"
)

// ParseError reports a manifest string whose delimiter structure is malformed.
type ParseError struct {
	Fragment string
	Reason   string
}

func (e *ParseError) Error() string {
	return "descramble: malformed manifest fragment " + quoteFragment(e.Fragment) + ": " + e.Reason
}

func quoteFragment(s string) string {
	const max = 48
	if len(s) > max {
		s = s[:max] + "..."
	}
	return "\"" + s + "\""
}

// Decode splits a manifest string into its ordered variant entries. Variants
// are separated by ";" and fields within a variant by "&", with values
// percent-encoded. An empty manifest yields an empty result: absence of one
// manifest category is expected for some content types and is not an error.
func Decode(manifest string) ([]Entry, error) {
	if strings.TrimSpace(manifest) == "" {
		return nil, nil
	}

	variants := strings.Split(manifest, variantDelimiter)
	entries := make([]Entry, 0, len(variants))
	for _, variant := range variants {
		if variant == "" {
			return nil, &ParseError{Fragment: manifest, Reason: "empty variant"}
		}
		entry := make(Entry)
		for _, field := range strings.Split(variant, fieldDelimiter) {
			key, rawValue, ok := strings.Cut(field, "=")
			if !ok || key == "" {
				return nil, &ParseError{Fragment: field, Reason: "field is not key=value"}
			}
			value, err := url.QueryUnescape(rawValue)
			if err != nil {
				return nil, &ParseError{Fragment: field, Reason: "undecodable value"}
			}
			entry[key] = value
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Encode is the inverse of Decode. Fields within a variant are emitted in
// sorted key order so output is deterministic.
func Encode(entries []Entry) string {
	variants := make([]string, 0, len(entries))
	for _, entry := range entries {
		keys := make([]string, 0, len(entry))
		for k := range entry {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fields := make([]string, 0, len(keys))
		for _, k := range keys {
			fields = append(fields, k+"="+url.QueryEscape(entry[k]))
		}
		variants = append(variants, strings.Join(fields, fieldDelimiter))
	}
	return strings.Join(variants, variantDelimiter)
}
