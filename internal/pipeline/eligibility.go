package pipeline

import "strings"

// Organizational terms that mark a short label as an administrative record
// (a faculty or degree-type row) rather than a programme name.
var invalidNameTerms = []string{
	"faculty", "school", "college", "department", "research masters",
	"pg research", "masters", "phd", "doctorate", "degree",
}

var administrativePrefixes = []string{
	"faculty of", "school of", "college of", "department of",
}

// EligibleName reports whether a raw programme name should reach the matcher.
// Empty names, administrative-unit prefixes, and short labels made of
// organizational terms are filtered before any matching work.
func EligibleName(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return false
	}
	if hasAdministrativePrefix(trimmed) {
		return false
	}
	return !isShortAdministrativeLabel(trimmed)
}

func hasAdministrativePrefix(name string) bool {
	lower := strings.ToLower(name)
	for _, prefix := range administrativePrefixes {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// isShortAdministrativeLabel flags names of at most three tokens that contain
// an organizational term. Longer names pass even when a term is present.
func isShortAdministrativeLabel(name string) bool {
	if len(strings.Fields(name)) > 3 {
		return false
	}
	lower := strings.ToLower(name)
	for _, term := range invalidNameTerms {
		if strings.Contains(lower, term) {
			return true
		}
	}
	return false
}
