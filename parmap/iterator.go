package parmap

import (
	"errors"
	"iter"
)

// Iterator yields the results of a Map call as they arrive.
//
// The yield order of this Iterator is undefined. An Iterator is not safe
// for concurrent use. Abandoning it before exhaustion is fine: outstanding
// work still runs and its results are discarded with the Iterator.
type Iterator[R any] struct {
	remaining int
	from      <-chan Result[R]
}

func newIterator[R any](n int, from <-chan Result[R]) *Iterator[R] {
	return &Iterator[R]{remaining: n, from: from}
}

// Next blocks until the next result is available and returns it with
// true. Once every result has been returned it reports false, and keeps
// doing so on every later call.
func (it *Iterator[R]) Next() (Result[R], bool) {
	if it.remaining == 0 {
		var zero Result[R]
		return zero, false
	}

	it.remaining--
	return <-it.from, true
}

// Remaining returns how many results have not been returned yet.
func (it *Iterator[R]) Remaining() int {
	return it.remaining
}

// All returns a sequence over the results still to come.
//
//	for r := range it.All() {
//	    if r.Err != nil {
//	        continue
//	    }
//	    use(r.Value)
//	}
func (it *Iterator[R]) All() iter.Seq[Result[R]] {
	return func(yield func(Result[R]) bool) {
		for {
			r, ok := it.Next()
			if !ok || !yield(r) {
				return
			}
		}
	}
}

// Collect drains it. It returns the successful values in arrival order and
// the failures joined with errors.Join, or nil if every element succeeded.
func Collect[R any](it *Iterator[R]) ([]R, error) {
	values := make([]R, 0, it.Remaining())
	var errs []error

	for r := range it.All() {
		if r.Err != nil {
			errs = append(errs, r.Err)
			continue
		}
		values = append(values, r.Value)
	}

	return values, errors.Join(errs...)
}
