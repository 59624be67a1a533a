package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/chazu/bfi/history"
	"github.com/chazu/bfi/runner"
)

// handleHistoryCommand processes the `bfi history` subcommand.
// Usage:
//
//	bfi history [list] [-n N] [-source SHA256]   List recent runs
//	bfi history show <id>                        Show one run
//	bfi history stats                            Count runs per outcome
func handleHistoryCommand(args []string, stdout, stderr io.Writer) int {
	sub := "list"
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		sub, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("bfi history "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to bfi.toml")
	limit := fs.Int("n", 20, "Number of runs to list")
	sum := fs.String("source", "", "Only list runs of the source with this SHA-256")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}
	if *limit < 1 {
		fmt.Fprintf(stderr, "Error: -n must be at least 1, got %d\n", *limit)
		return exitUsage
	}

	m, err := loadManifest(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading config: %v\n", err)
		return exitUsage
	}
	store, err := history.Open(m.HistoryPath())
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	defer store.Close()

	ctx := context.Background()
	switch sub {
	case "list":
		err = historyList(ctx, store, *limit, *sum, stdout)
	case "show":
		if fs.NArg() != 1 {
			fmt.Fprintln(stderr, "Usage: bfi history show <id>")
			return exitUsage
		}
		err = historyShow(ctx, store, fs.Arg(0), stdout)
	case "stats":
		err = historyStats(ctx, store, stdout)
	default:
		fmt.Fprintf(stderr, "Unknown history subcommand: %s\n", sub)
		fmt.Fprintln(stderr, "Usage: bfi history [list|show|stats] ...")
		return exitUsage
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitFailure
	}
	return exitOK
}

func historyList(ctx context.Context, store *history.Store, limit int, sum string, stdout io.Writer) error {
	var runs []history.Run
	var err error
	if sum != "" {
		runs, err = store.ForSource(ctx, sum)
		if len(runs) > limit {
			runs = runs[:limit]
		}
	} else {
		runs, err = store.Recent(ctx, limit)
	}
	if err != nil {
		return err
	}
	for _, run := range runs {
		fmt.Fprintf(stdout, "%s  %s  %-22s %10d  %.12s\n",
			run.ID, run.CreatedAt.Format(time.DateTime), run.Report.Outcome, run.Report.Steps, run.Report.SourceSum)
	}
	return nil
}

func historyShow(ctx context.Context, store *history.Store, id string, stdout io.Writer) error {
	run, err := store.Get(ctx, id)
	if err != nil {
		return err
	}
	r := run.Report
	fmt.Fprintf(stdout, "id:       %s\n", run.ID)
	fmt.Fprintf(stdout, "time:     %s\n", run.CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(stdout, "source:   %q\n", run.Source)
	fmt.Fprintf(stdout, "sha256:   %s\n", r.SourceSum)
	fmt.Fprintf(stdout, "outcome:  %s\n", r.Outcome)
	if r.Outcome != runner.OutcomeOK {
		fmt.Fprintf(stdout, "message:  %s\n", r.Message)
	}
	fmt.Fprintf(stdout, "ip:       %d\n", r.IP)
	fmt.Fprintf(stdout, "mp:       %d\n", r.MP)
	fmt.Fprintf(stdout, "steps:    %d\n", r.Steps)
	fmt.Fprintf(stdout, "elapsed:  %s\n", r.Elapsed)
	fmt.Fprintf(stdout, "output:   %q\n", r.Output)
	return nil
}

func historyStats(ctx context.Context, store *history.Store, stdout io.Writer) error {
	counts, err := store.Outcomes(ctx)
	if err != nil {
		return err
	}
	outcomes := make([]string, 0, len(counts))
	for o := range counts {
		outcomes = append(outcomes, o)
	}
	sort.Strings(outcomes)
	for _, o := range outcomes {
		fmt.Fprintf(stdout, "%-22s %d\n", o, counts[o])
	}
	return nil
}
