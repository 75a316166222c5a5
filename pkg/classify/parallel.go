package classify

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// chunksPerWorker controls how finely work is split so slow columns do not
// leave workers idle.
const chunksPerWorker = 4

// Options tunes a classification run.
type Options struct {
	// Workers bounds the number of concurrent goroutines.
	// Zero means runtime.GOMAXPROCS(0).
	Workers int

	// NoData decides what happens when a sampler has no elevation at a
	// column. The zero value is NoDataZero.
	NoData NoDataPolicy
}

func (o Options) workers() int {
	if o.Workers > 0 {
		return o.Workers
	}
	return runtime.GOMAXPROCS(0)
}

// forEach calls fn(idx) for every idx in [0, n) using up to workers
// goroutines. fn must only write to state owned by idx. ctx is checked
// before every call.
func forEach(ctx context.Context, n, workers int, fn func(idx int)) error {
	if n == 0 {
		return ctx.Err()
	}
	chunk := (n + workers*chunksPerWorker - 1) / (workers * chunksPerWorker)
	if chunk < 1 {
		chunk = 1
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.SetLimit(workers)
	for start := 0; start < n; start += chunk {
		if egCtx.Err() != nil {
			break
		}
		end := min(start+chunk, n)
		eg.Go(func() error {
			for idx := start; idx < end; idx++ {
				if err := egCtx.Err(); err != nil {
					return err
				}
				fn(idx)
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
