package main

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/utkarsh5026/parmap/parmap"
	"github.com/utkarsh5026/parmap/pool"
)

// Combo is one (workers, queue) configuration under test.
type Combo struct {
	Workers int
	Queue   pool.QueueKind
}

func (c Combo) String() string {
	return fmt.Sprintf("%s/%d", c.Queue, c.Workers)
}

// RunResult holds the outcome of one combo.
type RunResult struct {
	Combo    Combo
	Elapsed  time.Duration
	Count    int
	Checksum uint64
	Err      error
	Rank     int
}

// ItemsPerSec is the throughput of the run.
func (r RunResult) ItemsPerSec() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return float64(r.Count) / r.Elapsed.Seconds()
}

// crunch runs rounds of xorshift seeded by item and returns the final state.
func crunch(item, rounds int) uint64 {
	state := uint64(item)*0x9E3779B97F4A7C15 + 1
	for range rounds {
		state ^= state << 13
		state ^= state >> 17
		state ^= state << 5
	}
	return state
}

// expectedChecksum is the sequential sum of crunch over 0..items-1.
func expectedChecksum(items, rounds int) uint64 {
	var sum uint64
	for i := range items {
		sum += crunch(i, rounds)
	}
	return sum
}

// combos expands the config into every (workers, queue) pair.
func combos(cfg Config) []Combo {
	var out []Combo
	for _, q := range cfg.queueKinds() {
		for _, w := range cfg.Workers {
			out = append(out, Combo{Workers: w, Queue: q})
		}
	}
	return out
}

// runCombo maps 0..items-1 through crunch with one parmap call. The sum is
// order-independent, so it can be compared against the sequential value.
func runCombo(ctx context.Context, cfg Config, c Combo, logger *slog.Logger) RunResult {
	poolOpts := []pool.Option{pool.WithQueue(c.Queue)}
	if cfg.Capacity > 0 {
		poolOpts = append(poolOpts, pool.WithQueueCapacity(cfg.Capacity))
	}

	items := make([]int, cfg.Items)
	for i := range items {
		items[i] = i
	}

	res := RunResult{Combo: c}
	start := time.Now()

	it, err := parmap.MapContext(ctx, slices.Values(items),
		func(_ context.Context, item int) (uint64, error) {
			return crunch(item, cfg.Work), nil
		},
		parmap.WithWorkers(c.Workers),
		parmap.WithPoolOptions(poolOpts...),
		parmap.WithLogger(logger),
	)
	if err != nil {
		res.Err = err
		return res
	}

	for r := range it.All() {
		if r.Err != nil {
			res.Err = fmt.Errorf("item %d: %w", r.Index, r.Err)
			continue
		}
		res.Count++
		res.Checksum += r.Value
	}
	res.Elapsed = time.Since(start)
	return res
}

// verify checks a run against the expected count and checksum.
func verify(r RunResult, items int, want uint64) error {
	if r.Err != nil {
		return r.Err
	}
	if r.Count != items {
		return fmt.Errorf("%s: expected %d results, got %d", r.Combo, items, r.Count)
	}
	if r.Checksum != want {
		return fmt.Errorf("%s: checksum mismatch: expected %d, got %d", r.Combo, want, r.Checksum)
	}
	return nil
}

// rank sorts results fastest first and assigns ranks. Failed runs go last.
func rank(results []RunResult) {
	slices.SortStableFunc(results, func(a, b RunResult) int {
		switch {
		case (a.Err == nil) != (b.Err == nil):
			if a.Err == nil {
				return -1
			}
			return 1
		case a.Elapsed < b.Elapsed:
			return -1
		case a.Elapsed > b.Elapsed:
			return 1
		}
		return 0
	})
	for i := range results {
		results[i].Rank = i + 1
	}
}
