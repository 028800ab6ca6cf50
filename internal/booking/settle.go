package booking

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result is the outcome of one item of a Settle batch.
type Result[T any] struct {
	Value T
	Err   error
}

// Settle runs fn for every item concurrently, at most limit at a time
// (limit <= 0 means unbounded), and waits for all of them. It never stops
// early: a failing item only marks its own Result. Results are in input
// order.
func Settle[In, Out any](ctx context.Context, items []In, limit int, fn func(context.Context, In) (Out, error)) []Result[Out] {
	out := make([]Result[Out], len(items))
	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, item := range items {
		g.Go(func() error {
			v, err := fn(ctx, item)
			out[i] = Result[Out]{Value: v, Err: err}
			return nil
		})
	}
	_ = g.Wait()
	return out
}
