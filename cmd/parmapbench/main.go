// Command parmapbench compares parmap throughput across worker counts and
// queue kinds on a CPU-bound workload, verifying every run.
//
// Usage:
//
//	parmapbench -workers 1,2,4,8 -queues channel,ring -items 10000
//	parmapbench -config bench.toml -ci
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/charmbracelet/log"
	"github.com/fatih/color"
	"golang.org/x/sync/errgroup"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	cfg, err := parseConfig(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return 0
	}
	if err != nil {
		_, _ = red.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	if cfg.CI {
		color.NoColor = true
	}
	logger := newLogger(stderr, cfg.Verbose)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runs := combos(cfg)
	printConfiguration(stdout, cfg, len(runs))

	want := expectedChecksum(cfg.Items, cfg.Work)
	results, err := runAll(ctx, cfg, runs, want, stderr, logger)

	rank(results)
	printResults(stdout, results)
	return summarize(stdout, stderr, results, len(runs), err)
}

// summarize prints the closing line and returns the exit code. An
// interrupt is reported as such, not as a verification failure.
func summarize(stdout, stderr io.Writer, results []RunResult, total int, err error) int {
	if errors.Is(err, context.Canceled) {
		_, _ = red.Fprintf(stderr, "\nInterrupted after %d of %d runs.\n", completed(results), total)
		return 1
	}
	if err != nil {
		_, _ = red.Fprintf(stderr, "\nVerification failed: %v\n", err)
		return 1
	}
	_, _ = green.Fprintf(stdout, "\nAll %d runs verified.\n", len(results))
	return 0
}

// runAll executes combos one at a time so timings do not interfere. The
// first failure stops the remaining runs; its error is returned along with
// every result gathered so far.
func runAll(ctx context.Context, cfg Config, runs []Combo, want uint64, progress io.Writer, logger *slog.Logger) ([]RunResult, error) {
	bar := makeProgressBar(progress, len(runs), cfg.CI)
	defer func() { _ = bar.Finish() }()

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(1)

	results := make([]RunResult, 0, len(runs))
	for _, c := range runs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			bar.Describe(fmt.Sprintf("Running: %s", c))
			r := runCombo(ctx, cfg, c, logger)
			if err := verify(r, cfg.Items, want); err != nil {
				r.Err = err
			}
			results = append(results, r)
			_ = bar.Add(1)

			logger.Debug("run finished", "combo", c.String(), "elapsed", r.Elapsed, "err", r.Err)
			return r.Err
		})
	}

	return results, g.Wait()
}

// completed counts runs that finished without error.
func completed(results []RunResult) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// newLogger returns a slog.Logger backed by charmbracelet/log.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}

	handler := log.NewWithOptions(w, log.Options{
		Level:           level,
		ReportTimestamp: true,
		Prefix:          "parmapbench",
	})
	return slog.New(handler)
}
