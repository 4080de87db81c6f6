package main

import (
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/schollz/progressbar/v3"
)

var (
	bold  = color.New(color.Bold)
	red   = color.New(color.FgRed)
	green = color.New(color.FgGreen)
)

func printConfiguration(w io.Writer, cfg Config, runs int) {
	_, _ = bold.Fprintln(w, "Configuration:")
	fmt.Fprintf(w, "  Items:       %s per run\n", formatNumber(cfg.Items))
	fmt.Fprintf(w, "  Work:        %s xorshift rounds per item\n", formatNumber(cfg.Work))
	fmt.Fprintf(w, "  Workers:     %s (%d CPU cores)\n", joinInts(cfg.Workers), runtime.NumCPU())
	fmt.Fprintf(w, "  Queues:      %v\n", cfg.Queues)
	if cfg.Capacity > 0 {
		fmt.Fprintf(w, "  Capacity:    %d\n", cfg.Capacity)
	} else {
		fmt.Fprintf(w, "  Capacity:    worker count\n")
	}
	fmt.Fprintf(w, "  Runs:        %d\n", runs)
	fmt.Fprintln(w)
}

func makeProgressBar(w io.Writer, runs int, ci bool) *progressbar.ProgressBar {
	if ci {
		return progressbar.NewOptions(runs, progressbar.OptionSetWriter(io.Discard))
	}

	return progressbar.NewOptions(runs,
		progressbar.OptionSetDescription("Running"),
		progressbar.OptionSetWidth(50),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWriter(w),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionClearOnFinish(),
	)
}

// printResults renders ranked results. results must already be ranked.
func printResults(w io.Writer, results []RunResult) {
	fmt.Fprintln(w)
	_, _ = bold.Fprintln(w, "Results")
	fmt.Fprintln(w)

	if len(results) == 0 {
		return
	}
	fastest := results[0].Elapsed

	table := tablewriter.NewWriter(w)
	table.Header("Rank", "Queue", "Workers", "Time", "Items/sec", "vs Fastest", "Status")

	for _, r := range results {
		vs := "baseline"
		if r.Rank != 1 && fastest > 0 {
			vs = fmt.Sprintf("%.2fx", float64(r.Elapsed)/float64(fastest))
		}

		status := green.Sprint("ok")
		if r.Err != nil {
			status = red.Sprint("FAILED")
			vs = "-"
		}

		_ = table.Append(
			fmt.Sprintf("%d", r.Rank),
			r.Combo.Queue.String(),
			fmt.Sprintf("%d", r.Combo.Workers),
			r.Elapsed.Round(time.Microsecond).String(),
			formatNumber(int(r.ItemsPerSec())),
			vs,
			status,
		)
	}

	_ = table.Render()
}

// formatNumber inserts thousands separators.
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}

	out := make([]byte, 0, len(s)+len(s)/3)
	lead := len(s) % 3
	if lead > 0 {
		out = append(out, s[:lead]...)
	}
	for i := lead; i < len(s); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, s[i:i+3]...)
	}
	return string(out)
}
