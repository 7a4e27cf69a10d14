// Package engine runs per-fact work on a bounded pool of goroutines.
package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Task processes the item at index i. Each index is handled exactly once.
type Task func(ctx context.Context, i int) error

// Run calls task for every index in [0,n) using at most workers goroutines
// and waits for all of them. workers < 1 runs on the calling goroutine. The
// first task error cancels the context passed to the remaining tasks and is
// returned.
func Run(ctx context.Context, n, workers int, task Task) error {
	if workers < 2 || n < 2 {
		for i := 0; i < n; i++ {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := task(ctx, i); err != nil {
				return err
			}
		}
		return nil
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < n; i++ {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error { return task(gctx, i) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Collect runs task over [0,n) and stores each result at its index, so the
// output order matches the input order regardless of scheduling.
func Collect[T any](ctx context.Context, n, workers int, task func(ctx context.Context, i int) (T, error)) ([]T, error) {
	out := make([]T, n)
	err := Run(ctx, n, workers, func(ctx context.Context, i int) error {
		v, err := task(ctx, i)
		if err != nil {
			return err
		}
		out[i] = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
