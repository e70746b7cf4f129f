// Package parallel runs index-addressable work across a fixed number of goroutines,
// one per contiguous chunk of the index range.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"

	"golang.org/x/sync/errgroup"
)

// DefaultWorkers is the worker count used when none is configured.
const DefaultWorkers = 20

// ErrInvalidWorkers is returned when the executor is configured with fewer than one worker.
var ErrInvalidWorkers = errors.New("worker count must be at least 1")

// Range is the half-open index interval [Begin, End) assigned to chunk Index.
type Range struct {
	Index int
	Begin int
	End   int
}

// Len returns the number of indices in the range.
func (r Range) Len() int { return r.End - r.Begin }

// PanicError wraps a panic raised inside a worker.
type PanicError struct {
	Range Range
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("worker [%d,%d) panicked: %v", e.Range.Begin, e.Range.End, e.Value)
}

// Chunks partitions [0,max) into n contiguous ranges. Every chunk but the last
// holds max/n indices; the last absorbs the remainder.
func Chunks(max, n int) ([]Range, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidWorkers, n)
	}
	if max < 0 {
		return nil, fmt.Errorf("range upper bound must be non-negative: got %d", max)
	}
	size := max / n
	out := make([]Range, n)
	for i := 0; i < n; i++ {
		begin := i * size
		end := (i + 1) * size
		if i == n-1 {
			end = max
		}
		out[i] = Range{Index: i, Begin: begin, End: end}
	}
	return out, nil
}

// Executor distributes range work over a fixed number of workers.
type Executor struct {
	Workers int
}

// New returns an executor with the given worker count; workers <= 0 selects DefaultWorkers.
func New(workers int) *Executor {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	return &Executor{Workers: workers}
}

// Run calls fn once per chunk of [0,max), each on its own goroutine, and blocks
// until every worker has returned. The first error (or recovered panic) is
// returned and cancels the context passed to the remaining workers.
func (e *Executor) Run(ctx context.Context, max int, fn func(ctx context.Context, r Range) error) error {
	chunks, err := Chunks(max, e.Workers)
	if err != nil {
		return err
	}
	g, gctx := errgroup.WithContext(ctx)
	for _, r := range chunks {
		g.Go(func() (err error) {
			defer func() {
				if v := recover(); v != nil {
					err = &PanicError{Range: r, Value: v, Stack: debug.Stack()}
				}
			}()
			return fn(gctx, r)
		})
	}
	return g.Wait()
}

// Fill sets dst[i] = fn(i) for every index, partitioned across e's workers.
// fn must only depend on i. dst is written only when every call succeeded;
// on error dst is left untouched.
func Fill[T any](ctx context.Context, e *Executor, dst []T, fn func(i int) (T, error)) error {
	scratch := make([]T, len(dst))
	err := e.Run(ctx, len(dst), func(ctx context.Context, r Range) error {
		for i := r.Begin; i < r.End; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			v, err := fn(i)
			if err != nil {
				return fmt.Errorf("index %d: %w", i, err)
			}
			scratch[i] = v
		}
		return nil
	})
	if err != nil {
		return err
	}
	copy(dst, scratch)
	return nil
}
