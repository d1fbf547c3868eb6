// Package batch runs a bounded number of workers over a slice of items.
package batch

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tartampluch/go-rota/internal/config"
	"golang.org/x/sync/errgroup"
)

// Result is the settled outcome of one item.
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes worker for every item with at most limit workers in flight.
// Items start in input order; results[i] always belongs to items[i] whatever
// the completion order. A failing item never aborts the others. Items not yet
// started when ctx ends settle with ctx.Err() without invoking worker.
// A limit below 1 is treated as 1.
func Run[T, R any](ctx context.Context, items []T, limit int, worker func(ctx context.Context, item T, index int) (R, error)) []Result[R] {
	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}
	if limit < 1 {
		limit = 1
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i] = Result[R]{Err: err}
				return nil
			}
			results[i] = call(ctx, worker, item, i)
			return nil
		})
	}
	_ = g.Wait()

	slog.Debug(config.MsgBatchDone,
		config.LogKeyComponent, config.CompBatch,
		config.LogKeyCount, len(items),
		config.LogKeyFailed, len(items)-Succeeded(results),
	)
	return results
}

// call shields the batch from a panicking worker.
func call[T, R any](ctx context.Context, worker func(context.Context, T, int) (R, error), item T, i int) (res Result[R]) {
	defer func() {
		if r := recover(); r != nil {
			res = Result[R]{Err: fmt.Errorf("%s: %v", config.ErrWorkerPanic, r)}
		}
	}()
	v, err := worker(ctx, item, i)
	return Result[R]{Value: v, Err: err}
}

// Succeeded counts results without an error.
func Succeeded[R any](results []Result[R]) int {
	n := 0
	for _, r := range results {
		if r.Err == nil {
			n++
		}
	}
	return n
}

// Values returns the result values in input order, zero values for failures.
func Values[R any](results []Result[R]) []R {
	out := make([]R, len(results))
	for i, r := range results {
		out[i] = r.Value
	}
	return out
}
