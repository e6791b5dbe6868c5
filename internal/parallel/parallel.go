// Package parallel provides the worker-pool loop used by data
// preparation. Nothing in the training path itself runs concurrently;
// this package serves the loaders that fill tensors before a step.
package parallel

import (
	"runtime"
	"sync"
)

// Config controls how For splits its work.
type Config struct {
	Enabled      bool // run chunks on worker goroutines
	NumWorkers   int  // goroutines to spread chunks over
	MinChunkSize int  // below this many items the loop stays sequential
}

// DefaultConfig sizes the pool to the machine.
func DefaultConfig() Config {
	n := runtime.NumCPU()
	return Config{
		Enabled:      n > 1,
		NumWorkers:   n,
		MinChunkSize: 64,
	}
}

// For executes f(i) for every i in [0, n), chunked across workers.
// Small jobs and disabled configs fall back to a plain loop. f must
// not touch state shared between indices.
func For(n int, f func(i int), cfg Config) {
	if !cfg.Enabled || n < cfg.MinChunkSize {
		for i := 0; i < n; i++ {
			f(i)
		}
		return
	}

	chunk := (n + cfg.NumWorkers - 1) / cfg.NumWorkers
	if chunk < cfg.MinChunkSize {
		chunk = cfg.MinChunkSize
	}

	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := start + chunk
		if end > n {
			end = n
		}
		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			for i := s; i < e; i++ {
				f(i)
			}
		}(start, end)
	}
	wg.Wait()
}
