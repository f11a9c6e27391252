package suggest

import (
	"context"
	"runtime"
	"sync"

	"github.com/cropseq/genedit/internal/oracle"
)

// window is one guide candidate: its offset in the full sequence and the
// subsequence presented to the oracle.
type window struct {
	offset int
	guide  string
}

type scoreResult struct {
	seq int
	eff oracle.Efficiency
}

// scoreAll scores every window using a pool of workers and returns the
// efficiencies in window order. Oracle calls dominate generation time, so
// windows are scored concurrently; ordering is restored by sequence number
// to keep output deterministic.
func (g *Generator) scoreAll(ctx context.Context, windows []window) []oracle.Efficiency {
	workers := g.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(windows) {
		workers = len(windows)
	}

	items := make(chan int, len(windows))
	results := make(chan scoreResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)
	for range workers {
		go func() {
			defer wg.Done()
			for i := range items {
				results <- scoreResult{seq: i, eff: g.score(ctx, windows[i].guide)}
			}
		}()
	}

	for i := range windows {
		items <- i
	}
	close(items)

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]oracle.Efficiency, len(windows))
	for r := range results {
		out[r.seq] = r.eff
	}
	return out
}
