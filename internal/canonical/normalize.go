package canonical

import (
	"regexp"
	"strings"
)

var (
	degreeTokenPattern = regexp.MustCompile(`\b(msc|ms|ma|meng|beng|phd|mres|programme|program)\b`)
	punctuationPattern = regexp.MustCompile(`[()\[\]{}:;/\-]`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// Normalize cleans a programme name for comparison: lower-cases it, strips
// degree and qualifier tokens, replaces bracket/punctuation characters with
// spaces, and collapses whitespace. Empty input yields an empty string.
func Normalize(name string) string {
	if strings.TrimSpace(name) == "" {
		return ""
	}

	normalized := strings.ToLower(name)
	normalized = degreeTokenPattern.ReplaceAllString(normalized, "")
	normalized = punctuationPattern.ReplaceAllString(normalized, " ")
	normalized = whitespacePattern.ReplaceAllString(normalized, " ")
	return strings.TrimSpace(normalized)
}
