package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/campus/internal/cli"
	"horse.fit/campus/internal/pipeline"
)

func runResolve(args []string) int {
	fs := flag.NewFlagSet("resolve", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Minute, "Command timeout")
	clearExisting := fs.Bool("clear", false, "Null existing canonical ids before resolving")
	includeMatched := fs.Bool("include-matched", false, "Re-resolve records that already have a canonical id")
	resumeKind := fs.String("resume-kind", "", "Source kind to resume from (programs, program_stats, cases)")
	resumeID := fs.Int64("resume-id", 0, "Record id to resume after (requires --resume-kind)")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "resolve does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	opts := pipeline.DefaultOptions()
	opts.ClearExisting = *clearExisting
	opts.OnlyUnmatched = !*includeMatched

	if strings.TrimSpace(*resumeKind) != "" {
		kind, err := pipeline.ParseKind(*resumeKind)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --resume-kind: %v\n", err)
			return 2
		}
		if *resumeID <= 0 {
			fmt.Fprintln(os.Stderr, "--resume-id must be > 0 when --resume-kind is set")
			return 2
		}
		opts.ResumeFromKind = kind
		opts.ResumeFromID = resumeID
	} else if *resumeID > 0 {
		fmt.Fprintln(os.Stderr, "--resume-id requires --resume-kind")
		return 2
	}

	ctx, cancel, cfg, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		return 1
	}

	runner := buildRunner(cfg, pool, logger)
	result, err := runner.Run(ctx, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Pipeline run failed: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(result); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := [][]string{
		{"status", result.Status},
		{"programs_updated", fmt.Sprintf("%d", result.ProgramsUpdated)},
		{"stats_updated", fmt.Sprintf("%d", result.StatsUpdated)},
		{"cases_updated", fmt.Sprintf("%d", result.CasesUpdated)},
	}
	if result.LastProcessedID != nil {
		rows = append(rows, []string{"last_processed", fmt.Sprintf("%s/%d", result.LastProcessedKind, *result.LastProcessedID)})
	}
	for code, count := range result.UnmatchedByLanguage {
		rows = append(rows, []string{"unmatched_" + code, fmt.Sprintf("%d", count)})
	}
	if err := writeTable([]string{"metric", "value"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
