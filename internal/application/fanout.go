package application

import (
	"context"
	"os"
	"runtime"
	"strconv"

	"golang.org/x/sync/errgroup"
)

// defaultConcurrency is the process-wide default fan-out bound:
// MAX_THREADS from the environment, or five workers per CPU. Read once
// at startup and never torn down.
var defaultConcurrency = concurrencyFromEnv()

func concurrencyFromEnv() int {
	if v := os.Getenv("MAX_THREADS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
	}
	return runtime.NumCPU() * 5
}

// fanOut runs fn once per href on a bounded worker pool and returns the
// results in input order regardless of completion order. The first
// error cancels the remaining workers and fails the whole call; no
// partial result is returned. The pool lives for exactly one call.
func fanOut[T any](ctx context.Context, hrefs []string, limit int, fn func(ctx context.Context, href string) (T, error)) ([]T, error) {
	if limit <= 0 {
		limit = defaultConcurrency
	}

	results := make([]T, len(hrefs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, href := range hrefs {
		g.Go(func() error {
			out, err := fn(ctx, href)
			if err != nil {
				return err
			}
			results[i] = out
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
