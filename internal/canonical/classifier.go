package canonical

import "strings"

// CategoryOther is returned when no category keyword list matches.
const CategoryOther = "other"

// Classify assigns a subject category to a programme by scoring its name and
// admission requirements text against every category keyword list. The
// strictly highest overlap wins; ties keep the earlier-registered category.
// A blank haystack or an all-zero score returns CategoryOther.
//
// Classification is independent of canonical matching: it is attempted for
// every primary record whether or not a canonical id was found.
func Classify(programName, requirements string) string {
	return classifyWith(programName+" "+requirements, Categories)
}

func classifyWith(haystack string, categories []Category) string {
	haystack = strings.ToLower(haystack)
	if strings.TrimSpace(haystack) == "" {
		return CategoryOther
	}

	best := CategoryOther
	bestScore := 0.0
	for _, category := range categories {
		score := KeywordOverlap(haystack, category.Keywords)
		if score > bestScore {
			bestScore = score
			best = category.Label
		}
	}
	return best
}
