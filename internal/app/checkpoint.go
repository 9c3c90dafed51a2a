package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"horse.fit/campus/internal/cli"
	"horse.fit/campus/internal/pipeline"
)

func runCheckpoint(args []string) int {
	fs := flag.NewFlagSet("checkpoint", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	format := fs.String("format", outputFormatTable, "Output format: table or json")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "checkpoint does not accept positional arguments")
		return 2
	}

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
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
	view, err := runner.Checkpoint(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to compute checkpoint: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(view); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	kindRows := func(kind pipeline.Kind, checkpoint pipeline.KindCheckpoint) []string {
		return []string{
			string(kind),
			fmt.Sprintf("%d", checkpoint.Total),
			fmt.Sprintf("%d", checkpoint.Matched),
			fmt.Sprintf("%d", checkpoint.Unmatched),
			formatIDPtr(checkpoint.FirstUnmatchedID),
			formatIDPtr(checkpoint.LastMatchedID),
		}
	}
	rows := [][]string{
		kindRows(pipeline.KindPrograms, view.Programs),
		kindRows(pipeline.KindProgramStats, view.ProgramStats),
		kindRows(pipeline.KindCases, view.Cases),
	}
	if err := writeTable([]string{"kind", "total", "matched", "unmatched", "first_unmatched", "last_matched"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}

	if view.Resume != nil {
		fmt.Println()
		fmt.Printf("resume: %s after id %s\n", view.Resume.Kind, formatIDPtr(view.Resume.ResumeFromID))
	}
	return 0
}
