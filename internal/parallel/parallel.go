// Package parallel provides the bounded worker fan-out used by training and
// evaluation.
package parallel

import (
	"errors"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Config controls parallel execution behavior.
type Config struct {
	Enabled      bool // Whether parallel execution is enabled.
	NumWorkers   int  // Maximum number of concurrent goroutines.
	MinChunkSize int  // Minimum items per goroutine to avoid overhead.
}

// DefaultConfig returns sensible defaults based on CPU count.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 16, // A forward pass is far heavier than a loop step.
	}
}

// For executes f(i) for i in [0, n), splitting the range into contiguous
// chunks run by at most cfg.NumWorkers goroutines. Falls back to sequential
// execution if parallelism is disabled or n is too small.
//
// Every index is visited even if some calls fail; the returned error joins
// all failures in index order.
func For(n int, cfg Config, f func(i int) error) error {
	errs := make([]error, n)

	if !cfg.Enabled || cfg.NumWorkers <= 1 || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			errs[i] = f(i)
		}
		return errors.Join(errs...)
	}

	var g errgroup.Group
	g.SetLimit(cfg.NumWorkers)
	chunkSize := max((n+cfg.NumWorkers-1)/cfg.NumWorkers, cfg.MinChunkSize, 1)

	for start := 0; start < n; start += chunkSize {
		end := min(start+chunkSize, n)
		g.Go(func() error {
			for i := start; i < end; i++ {
				errs[i] = f(i)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Workers runs fn(0) … fn(n-1) on n goroutines, at most limit of them at a
// time (limit <= 0 means unbounded), and waits for all of them. Each worker
// index is meant to own its data exclusively.
//
// The returned error joins every worker failure in index order.
func Workers(n, limit int, fn func(worker int) error) error {
	errs := make([]error, n)

	var g errgroup.Group
	if limit > 0 {
		g.SetLimit(limit)
	}
	for w := 0; w < n; w++ {
		g.Go(func() error {
			errs[w] = fn(w)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
