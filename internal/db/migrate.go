package db

import (
	"context"
	_ "embed"
	"fmt"
	"strings"
)

// Schema objects gorm cannot express (the campus schema itself, the lookup
// indexes on canonical_program_id and category) live in raw SQL executed
// around AutoMigrate.

//go:embed sql/pre_automigrate.sql
var preAutoMigrateSQL string

//go:embed sql/post_automigrate.sql
var postAutoMigrateSQL string

func (p *Pool) autoMigrate(ctx context.Context) error {
	if p == nil || p.gdb == nil {
		return fmt.Errorf("database pool is not initialized")
	}

	if err := p.execSchemaSQL(ctx, "pre-auto-migrate", preAutoMigrateSQL); err != nil {
		return err
	}
	if err := p.gdb.WithContext(ctx).AutoMigrate(autoMigrateModels()...); err != nil {
		return fmt.Errorf("gorm auto-migrate models: %w", err)
	}
	return p.execSchemaSQL(ctx, "post-auto-migrate", postAutoMigrateSQL)
}

func (p *Pool) execSchemaSQL(ctx context.Context, label, sqlText string) error {
	sqlText = strings.TrimSpace(sqlText)
	if sqlText == "" {
		return nil
	}
	if err := p.gdb.WithContext(ctx).Exec(sqlText).Error; err != nil {
		return fmt.Errorf("execute %s SQL: %w", label, err)
	}
	return nil
}
