package canonical

import (
	"math"
	"strings"

	"github.com/agnivade/levenshtein"
)

// PartialRatio scores string similarity on a 0-100 scale, case-insensitive.
// The shorter string is slid across every equal-length window of the longer
// one and the best window similarity wins, so a name embedded in a longer
// variant still scores high. Either input being empty scores 0.
func PartialRatio(a, b string) int {
	a = strings.ToLower(a)
	b = strings.ToLower(b)
	if a == "" || b == "" {
		return 0
	}
	if a == b {
		return 100
	}

	shorter := []rune(a)
	longer := []rune(b)
	if len(shorter) > len(longer) {
		shorter, longer = longer, shorter
	}

	best := 0
	window := len(shorter)
	for start := 0; start+window <= len(longer); start++ {
		distance := levenshtein.ComputeDistance(string(shorter), string(longer[start:start+window]))
		score := int(math.Round(100 * float64(window-distance) / float64(window)))
		if score > best {
			best = score
		}
		if best == 100 {
			break
		}
	}
	return best
}
