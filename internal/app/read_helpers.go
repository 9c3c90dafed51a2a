package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog"

	"horse.fit/campus/internal/canonical"
	"horse.fit/campus/internal/cli"
	"horse.fit/campus/internal/config"
	"horse.fit/campus/internal/db"
	"horse.fit/campus/internal/langdetect"
	"horse.fit/campus/internal/logging"
	"horse.fit/campus/internal/pipeline"
)

const (
	outputFormatTable = "table"
	outputFormatJSON  = "json"
)

func parseOutputFormat(raw, defaultFormat string) (string, error) {
	format := strings.TrimSpace(strings.ToLower(raw))
	if format == "" {
		format = strings.TrimSpace(strings.ToLower(defaultFormat))
	}
	switch format {
	case outputFormatTable, outputFormatJSON:
		return format, nil
	default:
		return "", fmt.Errorf("--format must be table or json")
	}
}

func printJSON(value any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(value)
}

func writeTable(headers []string, rows [][]string) error {
	writer := tabwriter.NewWriter(os.Stdout, 0, 8, 2, ' ', 0)
	if _, err := fmt.Fprintln(writer, strings.Join(headers, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(writer, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return writer.Flush()
}

func formatIDPtr(value *int64) string {
	if value == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *value)
}

// connectPool loads env + config and opens the database pool. The returned
// context carries the command timeout.
func connectPool(timeout time.Duration, envLoader *cli.EnvLoader) (context.Context, context.CancelFunc, *config.Config, *db.Pool, error) {
	if envLoader != nil {
		if _, err := envLoader.Load(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
	}

	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		cancel()
		return nil, nil, nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return ctx, cancel, cfg, pool, nil
}

// buildRunner wires the matcher, semantic oracle, and language detector onto
// the shared pool.
func buildRunner(cfg *config.Config, pool *db.Pool, logger zerolog.Logger) *pipeline.Runner {
	var oracle canonical.Oracle
	if cfg.OracleEnabled() {
		oracle = canonical.NewChatOracle(cfg.OracleEndpoint, cfg.OracleModel, cfg.OracleAPIKey, cfg.OracleTimeout)
	}
	matcher := canonical.NewMatcher(oracle, logger)
	return pipeline.NewRunner(pool, pool, matcher, logger).
		WithLanguageDetector(langdetect.DetectISO6391)
}

func newLogger(cfg *config.Config) (zerolog.Logger, error) {
	return logging.New(cfg.Environment, cfg.LogLevel)
}
