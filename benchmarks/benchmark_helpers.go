// Package benchmarks holds throughput and latency benchmarks for parmap
// across worker counts, queue kinds and workload shapes.
package benchmarks

import (
	"context"
	"math"
	"slices"
	"testing"
	"time"

	"github.com/utkarsh5026/parmap/parmap"
	"github.com/utkarsh5026/parmap/pool"
)

// queueConfig defines a benchmark configuration for one queue kind
type queueConfig struct {
	name string
	opts []parmap.Option
}

// getAllQueues returns every queue kind with workerCount workers
func getAllQueues(workerCount int) []queueConfig {
	return getAllQueuesWithCapacity(workerCount, 0)
}

// getAllQueuesWithCapacity returns every queue kind; capacity of zero keeps
// the pool default
func getAllQueuesWithCapacity(workerCount, capacity int) []queueConfig {
	kinds := []pool.QueueKind{pool.QueueChannel, pool.QueueRing, pool.QueueUnbounded}

	configs := make([]queueConfig, 0, len(kinds))
	for _, kind := range kinds {
		poolOpts := []pool.Option{pool.WithQueue(kind)}
		if capacity > 0 {
			poolOpts = append(poolOpts, pool.WithQueueCapacity(capacity))
		}
		configs = append(configs, queueConfig{
			name: kind.String(),
			opts: []parmap.Option{
				parmap.WithWorkers(workerCount),
				parmap.WithPoolOptions(poolOpts...),
			},
		})
	}
	return configs
}

// runQueueBenchmark runs a benchmark function for all queue configs
func runQueueBenchmark(b *testing.B, queues []queueConfig, benchFunc func(b *testing.B, q queueConfig)) {
	for _, q := range queues {
		b.Run(q.name, func(b *testing.B) {
			benchFunc(b, q)
		})
	}
}

// mapAll runs one full Map over tasks and fails b on any element error.
func mapAll(b *testing.B, tasks []int, fn parmap.ProcessFunc[int, int], opts ...parmap.Option) []int {
	b.Helper()

	it, err := parmap.MapContext(context.Background(), slices.Values(tasks), fn, opts...)
	if err != nil {
		b.Fatal(err)
	}
	values, err := parmap.Collect(it)
	if err != nil {
		b.Fatal(err)
	}
	return values
}

func makeTasks(n int) []int {
	tasks := make([]int, n)
	for i := range tasks {
		tasks[i] = i
	}
	return tasks
}

// reportThroughput records tasks/sec for taskCount tasks per op
func reportThroughput(b *testing.B, taskCount, workers int) {
	nsPerOp := float64(b.Elapsed().Nanoseconds()) / float64(b.N)
	tasksPerSec := (float64(taskCount) / nsPerOp) * 1e9

	b.ReportMetric(tasksPerSec, "tasks/sec")
	if workers > 0 {
		b.ReportMetric(tasksPerSec/float64(workers), "tasks/sec/worker")
	}
}

// =============================================================================
// Benchmark Workload Generators
// =============================================================================

// cpuBoundWork simulates a CPU-intensive operation
func cpuBoundWork(iterations int) parmap.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		result := 0
		for i := range iterations {
			result += i * task
		}
		return result, nil
	}
}

// ioBoundWork simulates an I/O operation with a delay
func ioBoundWork(delay time.Duration) parmap.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		timer := time.NewTimer(delay)
		defer timer.Stop()

		select {
		case <-timer.C:
			return task * 2, nil
		case <-ctx.Done():
			return 0, ctx.Err()
		}
	}
}

// mixedWork simulates a workload with variable processing time
func mixedWork() parmap.ProcessFunc[int, int] {
	return func(ctx context.Context, task int) (int, error) {
		// 0-4ms
		time.Sleep(time.Duration(task%5) * time.Millisecond)

		result := 0
		for i := range 1000 {
			result += i
		}
		return result + task, nil
	}
}

// percentile returns the nearest-rank p-quantile of latencies.
func percentile(latencies []time.Duration, p float64) time.Duration {
	if len(latencies) == 0 {
		return 0
	}

	sorted := slices.Clone(latencies)
	slices.Sort(sorted)

	index := max(int(math.Round(p*float64(len(sorted)-1))), 0)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}
	return sorted[index]
}
