// Package parmap runs a transformation over every element of a sequence in
// parallel on a fixed-size worker pool and hands back the results as a lazy
// iterator.
//
// The yield order of the iterator is undefined and depends on the
// scheduling of the underlying parallel computations. Each Result carries
// the Index of the source element it came from.
//
// # Basic Usage
//
//	it, err := parmap.Map(slices.Values([]int{1, 2, 3, 4, 5}), func(x int) int {
//	    return x * x
//	})
//	if err != nil {
//	    return err
//	}
//	for r, ok := it.Next(); ok; r, ok = it.Next() {
//	    fmt.Println(r.Index, r.Value)
//	}
//
// # How it works
//
// Map drains the source when it is called. Every element becomes one task
// on the pool, and every task sends exactly one Result on a channel sized
// to the element count. The iterator knows it is finished purely by
// counting: after as many receives as there were elements it reports
// exhaustion, permanently.
//
// Because a failing element still sends a Result (with Err set, or a
// *PanicError when the mapper panicked) the count always adds up and the
// iterator never blocks forever on a lost value.
//
// # Pools
//
// By default each call creates its own pool of DefaultWorkers workers and
// shuts it down after the last element is submitted. Pass WithPool to run
// on a long-lived pool instead; the caller then owns its lifecycle.
//
//	p, _ := pool.New(16, pool.WithQueue(pool.QueueRing))
//	defer p.Shutdown(0)
//	it, _ := parmap.Map(src, fn, parmap.WithPool(p))
//
// # Errors and Retries
//
// MapContext accepts a ProcessFunc that may fail. Failed elements can be
// retried with WithRetryPolicy; delays follow the strategy chosen with
// WithBackoff. Panics are never retried.
package parmap
