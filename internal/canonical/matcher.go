package canonical

import (
	"context"
	"strings"

	"github.com/rs/zerolog"
)

const (
	// DefaultFuzzyThreshold accepts partial-ratio scores at or above this value.
	DefaultFuzzyThreshold = 85
	// DefaultKeywordThreshold accepts keyword overlap fractions at or above this value.
	DefaultKeywordThreshold = 0.30
)

// Entry is one catalog row the matcher resolves against. The catalog is
// loaded fresh for every run and its order is significant: within each stage
// the first entry satisfying the stage's predicate wins.
type Entry struct {
	ID       int64
	Name     string
	Keywords []string
}

// Matcher resolves a raw programme name to a canonical catalog entry by
// cascading through exact, fuzzy, keyword and semantic stages in that fixed
// order. The first stage that accepts any entry decides the result; no stage
// ranks candidates by score.
type Matcher struct {
	oracle           Oracle
	logger           zerolog.Logger
	fuzzyThreshold   int
	keywordThreshold float64
}

// NewMatcher builds a matcher with the default thresholds. A nil oracle
// disables the semantic stage.
func NewMatcher(oracle Oracle, logger zerolog.Logger) *Matcher {
	return &Matcher{
		oracle:           oracle,
		logger:           logger,
		fuzzyThreshold:   DefaultFuzzyThreshold,
		keywordThreshold: DefaultKeywordThreshold,
	}
}

// Match returns the canonical id for rawName, or false when no stage accepts
// any catalog entry. Oracle failures and malformed replies count as
// non-matches and never surface as errors.
func (m *Matcher) Match(ctx context.Context, rawName string, catalog []Entry) (int64, bool) {
	if m == nil || strings.TrimSpace(rawName) == "" || len(catalog) == 0 {
		return 0, false
	}

	norm := Normalize(rawName)

	for _, entry := range catalog {
		if Normalize(entry.Name) == norm {
			m.logger.Debug().
				Str("raw_name", rawName).
				Str("canonical_name", entry.Name).
				Str("stage", "exact").
				Msg("canonical match")
			return entry.ID, true
		}
	}

	for _, entry := range catalog {
		score := PartialRatio(norm, Normalize(entry.Name))
		if score >= m.fuzzyThreshold {
			m.logger.Debug().
				Str("raw_name", rawName).
				Str("canonical_name", entry.Name).
				Str("stage", "fuzzy").
				Int("score", score).
				Msg("canonical match")
			return entry.ID, true
		}
	}

	for _, entry := range catalog {
		if len(entry.Keywords) == 0 {
			continue
		}
		overlap := KeywordOverlap(norm, entry.Keywords)
		if overlap >= m.keywordThreshold {
			m.logger.Debug().
				Str("raw_name", rawName).
				Str("canonical_name", entry.Name).
				Str("stage", "keyword").
				Float64("overlap", overlap).
				Msg("canonical match")
			return entry.ID, true
		}
	}

	if m.oracle != nil {
		for _, entry := range catalog {
			same, err := m.oracle.SameProgramme(ctx, rawName, entry.Name)
			if err != nil {
				m.logger.Debug().
					Err(err).
					Str("raw_name", rawName).
					Str("canonical_name", entry.Name).
					Msg("oracle call failed, treating as non-match")
				continue
			}
			if same {
				m.logger.Debug().
					Str("raw_name", rawName).
					Str("canonical_name", entry.Name).
					Str("stage", "semantic").
					Msg("canonical match")
				return entry.ID, true
			}
		}
	}

	m.logger.Debug().Str("raw_name", rawName).Msg("no canonical match")
	return 0, false
}
