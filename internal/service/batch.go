package service

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// runInBatches 每批内并发执行，批与批之间串行，遇到第一个错误即停止
func runInBatches[T any](ctx context.Context, items []T, size int, fn func(context.Context, T) error) (processed, batches int, err error) {
	if size <= 0 {
		size = 1
	}

	for start := 0; start < len(items); start += size {
		chunk := items[start:min(start+size, len(items))]

		g, gctx := errgroup.WithContext(ctx)
		for _, item := range chunk {
			g.Go(func() error {
				return fn(gctx, item)
			})
		}
		batches++

		if err := g.Wait(); err != nil {
			return processed, batches, err
		}
		processed += len(chunk)
	}

	return processed, batches, nil
}
