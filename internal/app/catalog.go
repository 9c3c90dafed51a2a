package app

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"horse.fit/campus/internal/cli"
)

func runCatalog(args []string) int {
	if len(args) == 0 {
		printCatalogUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "-h", "--help":
		printCatalogUsage()
		return 0
	case "add":
		return runCatalogAdd(args[1:])
	case "list":
		return runCatalogList(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown catalog action: %s\n\n", args[0])
		printCatalogUsage()
		return 2
	}
}

func printCatalogUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  campus catalog add --name <canonical name> [--keywords a,b,c]")
	fmt.Fprintln(os.Stderr, "  campus catalog list [--format table|json]")
}

func runCatalogAdd(args []string) int {
	fs := flag.NewFlagSet("catalog add", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	name := fs.String("name", "", "Canonical programme name (required)")
	keywordsFlag := fs.String("keywords", "", "Comma-separated keyword list")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if strings.TrimSpace(*name) == "" {
		fmt.Fprintln(os.Stderr, "--name is required")
		return 2
	}

	var keywords []string
	for _, keyword := range strings.Split(*keywordsFlag, ",") {
		trimmed := strings.ToLower(strings.TrimSpace(keyword))
		if trimmed != "" {
			keywords = append(keywords, trimmed)
		}
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	id, err := pool.UpsertCanonicalProgram(ctx, *name, keywords)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to upsert catalog entry: %v\n", err)
		return 1
	}

	fmt.Printf("catalog entry %d: %s\n", id, strings.TrimSpace(*name))
	return 0
}

func runCatalogList(args []string) int {
	fs := flag.NewFlagSet("catalog list", flag.ContinueOnError)
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

	outputFormat, err := parseOutputFormat(*format, outputFormatTable)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid format: %v\n", err)
		return 2
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	entries, err := pool.LoadCatalog(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load catalog: %v\n", err)
		return 1
	}

	if outputFormat == outputFormatJSON {
		if err := printJSON(entries); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to encode JSON: %v\n", err)
			return 1
		}
		return 0
	}

	rows := make([][]string, 0, len(entries))
	for _, entry := range entries {
		rows = append(rows, []string{
			fmt.Sprintf("%d", entry.ID),
			entry.Name,
			strings.Join(entry.Keywords, ","),
		})
	}
	if err := writeTable([]string{"id", "name", "keywords"}, rows); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to render table: %v\n", err)
		return 1
	}
	return 0
}
