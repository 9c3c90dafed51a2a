package db

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"horse.fit/campus/internal/canonical"
)

// LoadCatalog reads the full canonical catalog in insertion order. Keyword
// payloads that fail to parse degrade to an entry without keywords rather
// than failing the load.
func (p *Pool) LoadCatalog(ctx context.Context) ([]canonical.Entry, error) {
	const query = `
SELECT cp.id, cp.canonical_name_en, COALESCE(cp.keywords, 'null'::jsonb)
FROM campus.canonical_programs cp
ORDER BY cp.id`

	rows, err := p.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query canonical programs: %w", err)
	}
	defer rows.Close()

	var entries []canonical.Entry
	for rows.Next() {
		var (
			entry      canonical.Entry
			rawKeyword []byte
		)
		if err := rows.Scan(&entry.ID, &entry.Name, &rawKeyword); err != nil {
			return nil, fmt.Errorf("scan canonical program: %w", err)
		}
		entry.Keywords = parseKeywords(rawKeyword)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate canonical programs: %w", err)
	}
	return entries, nil
}

// UpsertCanonicalProgram inserts a catalog entry or refreshes the keywords of
// an existing one, matched by canonical name. Returns the entry id.
func (p *Pool) UpsertCanonicalProgram(ctx context.Context, name string, keywords []string) (int64, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return 0, fmt.Errorf("canonical name is required")
	}
	payload, err := json.Marshal(keywords)
	if err != nil {
		return 0, fmt.Errorf("marshal keywords: %w", err)
	}

	const query = `
INSERT INTO campus.canonical_programs (canonical_name_en, keywords, created_at, updated_at)
VALUES (?, ?::jsonb, now(), now())
ON CONFLICT (canonical_name_en) DO UPDATE
SET keywords = EXCLUDED.keywords,
    updated_at = now()
RETURNING id`

	var id int64
	if err := p.QueryRow(ctx, query, trimmed, string(payload)).Scan(&id); err != nil {
		return 0, fmt.Errorf("upsert canonical program: %w", err)
	}
	return id, nil
}

func parseKeywords(raw []byte) []string {
	if len(raw) == 0 {
		return nil
	}
	var keywords []string
	if err := json.Unmarshal(raw, &keywords); err != nil {
		return nil
	}
	return keywords
}
