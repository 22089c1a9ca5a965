package resolver

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Chunk splits ids into consecutive batches of at most size.
func Chunk(ids []string, size int) [][]string {
	if size <= 0 {
		size = len(ids)
	}
	var out [][]string
	for start := 0; start < len(ids); start += size {
		end := min(start+size, len(ids))
		out = append(out, ids[start:end])
	}
	return out
}

// fanOut runs fetch once per batch, at most limit at a time, each under its
// own timeout. Every batch writes only its own slot; a failed batch becomes an
// Unresolved result and never cancels its siblings.
func fanOut[T any](ctx context.Context, source string, batches [][]string, limit int, timeout time.Duration,
	fetch func(ctx context.Context, batch []string) (T, error)) []Result[T] {

	results := make([]Result[T], len(batches))

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for i, batch := range batches {
		g.Go(func() error {
			bctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			v, err := fetch(bctx, batch)
			if err != nil {
				results[i] = Failed[T](source, err)
				return nil
			}
			results[i] = Resolved(v)
			return nil
		})
	}
	_ = g.Wait()

	return results
}
