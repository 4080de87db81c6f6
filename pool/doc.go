// Package pool provides a fixed-size pool of worker goroutines that run
// fire-and-forget tasks from a shared queue.
//
// A Pool is created with a worker count that never changes for its
// lifetime. Tasks are zero-argument closures; the pool returns nothing to
// the submitter, so a task that produces a value must deliver it through a
// channel it owns.
//
// # Basic Usage
//
//	p, err := pool.New(8)
//	if err != nil {
//	    return err
//	}
//	results := make(chan int, len(items))
//	for _, it := range items {
//	    _ = p.Execute(func() { results <- process(it) })
//	}
//	_ = p.Shutdown(0) // waits for every queued task
//
// # Queues
//
// The shared queue is selected with WithQueue:
//
//   - QueueChannel: bounded buffered channel (default)
//   - QueueRing: bounded lock-free multi-producer multi-consumer ring
//   - QueueUnbounded: growable list; Execute never waits
//
// With a bounded queue Execute blocks while the queue is full, giving the
// submitter backpressure. ExecuteContext bounds that wait with a context.
//
// # Failures
//
// A panicking task is recovered and counted; the worker moves on to the
// next task. Use WithPanicHandler to observe recovered panics.
//
// # Shutdown
//
// Shutdown stops new submissions and lets workers drain everything already
// queued before they exit. No accepted task is dropped.
package pool
