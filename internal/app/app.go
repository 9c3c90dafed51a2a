package app

import (
	"fmt"
	"os"
	"strings"
)

// Run executes the CLI command and returns a process exit code.
func Run(args []string) int {
	if len(args) == 0 {
		printUsage()
		return 2
	}

	switch strings.ToLower(strings.TrimSpace(args[0])) {
	case "help", "--help", "-h":
		printUsage()
		return 0
	case "health":
		return runHealth(args[1:])
	case "resolve":
		return runResolve(args[1:])
	case "checkpoint":
		return runCheckpoint(args[1:])
	case "clear":
		return runClear(args[1:])
	case "catalog":
		return runCatalog(args[1:])
	case "serve":
		return runServe(args[1:])
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n\n", args[0])
		printUsage()
		return 2
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "campus CLI")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  campus <command> [flags]")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Commands:")
	fmt.Fprintln(os.Stderr, "  health      Verify database connectivity")
	fmt.Fprintln(os.Stderr, "  resolve     Run the canonical name resolution pipeline once")
	fmt.Fprintln(os.Stderr, "  checkpoint  Show per-source resolution progress")
	fmt.Fprintln(os.Stderr, "  clear       Null canonical ids so the next run starts fresh")
	fmt.Fprintln(os.Stderr, "  catalog     Manage canonical catalog entries")
	fmt.Fprintln(os.Stderr, "  serve       Start the pipeline control API server")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "Use \"campus <command> -h\" for command-specific flags.")
}
