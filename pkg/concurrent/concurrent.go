package concurrent

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// ForEach runs action for each element in its own goroutine, at most limit at
// a time (limit <= 0 means unbounded). The context passed to action is
// cancelled on the first error, which ForEach returns after every goroutine
// has finished.
func ForEach[T any](ctx context.Context, items []T, limit int, action func(context.Context, T) error) error {
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for _, item := range items {
		g.Go(func() error {
			return action(gctx, item)
		})
	}
	return g.Wait()
}

// Map applies mapFn to each element concurrently, preserving order. On error
// the partial results are discarded.
func Map[T any, R any](ctx context.Context, items []T, limit int, mapFn func(context.Context, T) (R, error)) ([]R, error) {
	out := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}
	for idx, item := range items {
		g.Go(func() error {
			r, err := mapFn(gctx, item)
			if err != nil {
				return err
			}
			out[idx] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
