// Package pool provides the bounded worker pools used by the extraction
// pipeline. Each unit of work is expected to shell out to an isolated
// external process, so workers share no mutable state beyond the dispatch
// and result channels.
package pool

import (
	"context"
	"runtime"
	"sync"
)

// Size is an explicit pool-sizing policy. The zero value is the platform
// default; there is no implicit sentinel at use sites.
type Size struct {
	n int
}

// Fixed bounds the pool at exactly n workers.
func Fixed(n int) Size { return Size{n: n} }

// PlatformDefault sizes the pool from the machine's parallel execution
// units.
func PlatformDefault() Size { return Size{} }

// Resolve turns the policy into a concrete positive worker count:
// cpus/2 - 1, falling back to the full CPU count when that is below 1.
func (s Size) Resolve() int {
	if s.n > 0 {
		return s.n
	}
	n := runtime.NumCPU()/2 - 1
	if n < 1 {
		n = runtime.NumCPU()
	}
	return n
}

// Map runs fn over inputs on a bounded pool and returns the results in
// input order. It blocks until every dispatched unit of work has finished;
// the join is the stage barrier. The first error wins and is returned after
// the join, so a failure never leaves workers running against a closed
// channel.
func Map[In, Out any](ctx context.Context, size Size, inputs []In, fn func(context.Context, In) (Out, error)) ([]Out, error) {
	workers := size.Resolve()
	if workers > len(inputs) {
		workers = len(inputs)
	}
	if len(inputs) == 0 {
		return nil, nil
	}

	type task struct {
		idx int
		in  In
	}

	tasks := make(chan task)
	results := make([]Out, len(inputs))

	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for t := range tasks {
				out, err := fn(ctx, t.in)
				if err != nil {
					errOnce.Do(func() { firstErr = err })
					continue
				}
				results[t.idx] = out
			}
		}()
	}

	for i, in := range inputs {
		tasks <- task{idx: i, in: in}
	}
	close(tasks)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	return results, nil
}
