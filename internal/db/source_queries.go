package db

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"horse.fit/campus/internal/pipeline"
)

// sourceTable describes how one source kind maps onto its table. Identifiers
// come from this fixed table only and are never caller-supplied.
type sourceTable struct {
	table       string
	nameColumn  string
	hasCategory bool
	hasReqs     bool
	softDelete  bool
}

var sourceTables = map[pipeline.Kind]sourceTable{
	pipeline.KindPrograms: {
		table:       "campus.programs",
		nameColumn:  "program_en_name",
		hasCategory: true,
		hasReqs:     true,
		softDelete:  true,
	},
	pipeline.KindProgramStats: {
		table:      "campus.program_stats",
		nameColumn: "program_name",
	},
	pipeline.KindCases: {
		table:      "campus.admission_cases",
		nameColumn: "applied_program",
	},
}

func tableFor(kind pipeline.Kind) (sourceTable, error) {
	spec, ok := sourceTables[kind]
	if !ok {
		return sourceTable{}, fmt.Errorf("unknown source kind %q", kind)
	}
	return spec, nil
}

// List returns source records of one kind in ascending id order, optionally
// restricted to unresolved records or to ids after a resume point.
func (p *Pool) List(ctx context.Context, kind pipeline.Kind, opts pipeline.ListOptions) ([]pipeline.Record, error) {
	spec, err := tableFor(kind)
	if err != nil {
		return nil, err
	}

	reqsColumn := "''"
	if spec.hasReqs {
		reqsColumn = "COALESCE(requirements, '')"
	}

	var (
		clauses []string
		args    []any
	)
	if spec.softDelete {
		clauses = append(clauses, "deleted_at IS NULL")
	}
	if opts.UnmatchedOnly {
		clauses = append(clauses, "canonical_program_id IS NULL")
	}
	if opts.AfterID != nil {
		clauses = append(clauses, "id > ?")
		args = append(args, *opts.AfterID)
	}
	where := ""
	if len(clauses) > 0 {
		where = "WHERE " + strings.Join(clauses, " AND ")
	}

	query := fmt.Sprintf(`
SELECT id, COALESCE(%s, ''), %s
FROM %s
%s
ORDER BY id`, spec.nameColumn, reqsColumn, spec.table, where)

	rows, err := p.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", spec.table, err)
	}
	defer rows.Close()

	var records []pipeline.Record
	for rows.Next() {
		var record pipeline.Record
		if err := rows.Scan(&record.ID, &record.RawName, &record.Requirements); err != nil {
			return nil, fmt.Errorf("scan %s row: %w", spec.table, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", spec.table, err)
	}
	return records, nil
}

// Update writes the resolution outcome for one record. Nil fields are left
// untouched; a category on a kind without a category column is an error.
func (p *Pool) Update(ctx context.Context, kind pipeline.Kind, id int64, update pipeline.Update) error {
	spec, err := tableFor(kind)
	if err != nil {
		return err
	}
	if update.CanonicalID == nil && update.Category == nil {
		return fmt.Errorf("update for %s id %d has no fields", kind, id)
	}
	if update.Category != nil && !spec.hasCategory {
		return fmt.Errorf("source kind %q has no category column", kind)
	}

	sets := []string{"updated_at = now()"}
	var args []any
	if update.CanonicalID != nil {
		sets = append(sets, "canonical_program_id = ?")
		args = append(args, *update.CanonicalID)
	}
	if update.Category != nil {
		sets = append(sets, "category = ?")
		args = append(args, *update.Category)
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE id = ?", spec.table, strings.Join(sets, ", "))
	tag, err := p.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update %s id %d: %w", spec.table, id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("update %s id %d: %w", spec.table, id, ErrNoRows)
	}
	return nil
}

// ClearCanonicalIDs nulls every resolved pointer for one kind, forcing the
// next run to re-resolve from scratch.
func (p *Pool) ClearCanonicalIDs(ctx context.Context, kind pipeline.Kind) error {
	spec, err := tableFor(kind)
	if err != nil {
		return err
	}
	query := fmt.Sprintf(`
UPDATE %s
SET canonical_program_id = NULL,
    updated_at = now()
WHERE canonical_program_id IS NOT NULL`, spec.table)
	if _, err := p.Exec(ctx, query); err != nil {
		return fmt.Errorf("clear canonical ids on %s: %w", spec.table, err)
	}
	return nil
}

// LastMatchedID returns the highest resolved id for one kind, or nil when
// nothing is resolved yet.
func (p *Pool) LastMatchedID(ctx context.Context, kind pipeline.Kind) (*int64, error) {
	spec, err := tableFor(kind)
	if err != nil {
		return nil, err
	}
	query := fmt.Sprintf(`
SELECT MAX(id)
FROM %s
WHERE canonical_program_id IS NOT NULL`, spec.table)

	var last sql.NullInt64
	if err := p.QueryRow(ctx, query).Scan(&last); err != nil {
		if IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("last matched id on %s: %w", spec.table, err)
	}
	if !last.Valid {
		return nil, nil
	}
	id := last.Int64
	return &id, nil
}
