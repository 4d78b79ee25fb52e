package pipeline

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// chunkSize is the tuning constant balancing per-call overhead against
// lock-contention in the storage backend: splitting a batch's UTxO
// lookups and entity loads into ~100-key chunks keeps each parallel
// point-lookup cheap without serializing the whole batch through one
// snapshot read.
const chunkSize = 100

// parallelChunks runs fn over each of n chunks concurrently, bounded by
// maxWorkers in-flight at once, and returns the first error encountered
// (cancelling the rest). Mirrors the spec's "mostly parallel threads"
// scheduling model: the computation itself is synchronous, only the
// chunk dispatch is concurrent.
func parallelChunks(ctx context.Context, n, maxWorkers int, fn func(i int) error) error {
	if n == 0 {
		return nil
	}
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if gctx.Err() != nil {
				return gctx.Err()
			}
			return fn(i)
		})
	}
	return g.Wait()
}
