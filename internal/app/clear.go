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

func runClear(args []string) int {
	fs := flag.NewFlagSet("clear", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)

	envLoader := cli.AddEnvFlag(fs, ".env", "Path to the .env file")
	timeout := fs.Duration("timeout", 30*time.Second, "Command timeout")
	kindFlag := fs.String("kind", "", "Clear only one source kind (programs, program_stats, cases)")

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(os.Stderr, "clear does not accept positional arguments")
		return 2
	}

	kinds := pipeline.KindOrder()
	if strings.TrimSpace(*kindFlag) != "" {
		kind, err := pipeline.ParseKind(*kindFlag)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid --kind: %v\n", err)
			return 2
		}
		kinds = []pipeline.Kind{kind}
	}

	ctx, cancel, _, pool, err := connectPool(*timeout, envLoader)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	defer cancel()
	defer pool.Close()

	for _, kind := range kinds {
		if err := pool.ClearCanonicalIDs(ctx, kind); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to clear %s: %v\n", kind, err)
			return 1
		}
		fmt.Printf("cleared canonical ids: %s\n", kind)
	}
	return 0
}
