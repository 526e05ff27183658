package llm

import (
	"regexp"
	"strings"
)

var trailingCommaRe = regexp.MustCompile(`,\s*([}\]])`)

// Salvage extracts the outermost {...} substring from an almost-JSON reply
// and repairs the two failure modes chat models actually produce: trailing
// commas before closing brackets and raw control characters inside the blob.
// It returns false when the reply contains no object at all.
func Salvage(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end <= start {
		return "", false
	}

	blob := raw[start : end+1]
	blob = stripControlChars(blob)
	blob = trailingCommaRe.ReplaceAllString(blob, "$1")
	return blob, true
}

// stripControlChars removes raw control characters. Models sometimes embed
// unescaped newlines inside string values, which is illegal JSON; between
// tokens whitespace is insignificant anyway, so dropping all of them is safe.
func stripControlChars(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 {
			return -1
		}
		return r
	}, s)
}
