package canonical

import (
	"strings"
	"testing"
)

func TestPartialRatio_Identical(t *testing.T) {
	t.Parallel()

	if got := PartialRatio("computer science", "Computer Science"); got != 100 {
		t.Fatalf("expected 100 for case-insensitive identical strings, got %d", got)
	}
}

func TestPartialRatio_Empty(t *testing.T) {
	t.Parallel()

	if got := PartialRatio("", "computer science"); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
	if got := PartialRatio("computer science", ""); got != 0 {
		t.Fatalf("expected 0 for empty input, got %d", got)
	}
}

func TestPartialRatio_SubstringScoresFull(t *testing.T) {
	t.Parallel()

	if got := PartialRatio("data science", "advanced data science and analytics"); got != 100 {
		t.Fatalf("expected 100 for embedded substring, got %d", got)
	}
}

func TestPartialRatio_ThresholdBoundary(t *testing.T) {
	t.Parallel()

	// 20 characters with 3 substitutions scores exactly 85.
	at := strings.Repeat("a", 17) + "bbb"
	if got := PartialRatio(strings.Repeat("a", 20), at); got != 85 {
		t.Fatalf("expected score of exactly 85, got %d", got)
	}

	// 25 characters with 4 substitutions scores exactly 84.
	below := strings.Repeat("a", 21) + "bbbb"
	if got := PartialRatio(strings.Repeat("a", 25), below); got != 84 {
		t.Fatalf("expected score of exactly 84, got %d", got)
	}
}
