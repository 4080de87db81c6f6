package parmap

import (
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/panics"
)

var (
	// ErrNilMapper is returned when the mapper or ProcessFunc is nil.
	ErrNilMapper = errors.New("parmap: nil mapper")
	// ErrNilSource is returned when the source sequence is nil.
	ErrNilSource = errors.New("parmap: nil source")
	// ErrPanic matches every *PanicError via errors.Is.
	ErrPanic = errors.New("parmap: mapper panicked")
)

// Result is the outcome of mapping one source element.
//
// Fields:
//   - Value: the mapped value (meaningful only if Err is nil)
//   - Err: why the element failed, or nil
//   - Index: position of the element in the source sequence
type Result[R any] struct {
	Value R
	Err   error
	Index int
}

// PanicError reports a mapper that panicked while processing one element.
type PanicError struct {
	Index     int
	Recovered *panics.Recovered
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("parmap: item %d: worker panic: %v\nstack trace:\n%s",
		e.Index, e.Recovered.Value, e.Recovered.Stack)
}

// Is reports whether target is ErrPanic.
func (e *PanicError) Is(target error) bool {
	return target == ErrPanic
}

// Unwrap returns the panic value when it was itself an error.
func (e *PanicError) Unwrap() error {
	if err, ok := e.Recovered.Value.(error); ok {
		return err
	}
	return nil
}
