package overlap

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/pkg/errors"
)

// Build stages reported to a ProgressFunc
const (
	StageHistogram = "histogram"
	StageMatrix    = "matrix"
)

// ProgressFunc receives the number of completed shards of a stage
type ProgressFunc func(stage string, completed, total int)

// DefaultPartialCells bounds the cells held by per-shard partial matrices
// during the second pass, 32 MiB of counters
const DefaultPartialCells = 1 << 22

// options holds the builder configuration
type options struct {
	workers      int
	order        RankOrder
	progress     ProgressFunc
	partialCells int
}

// Option configures Build
type Option func(*options)

// WithWorkers shards both passes over n goroutines. n <= 1 walks sequentially
func WithWorkers(n int) Option {
	return func(o *options) { o.workers = n }
}

// WithRankOrder selects the rank assignment convention. Default EncounterOrder
func WithRankOrder(order RankOrder) Option {
	return func(o *options) { o.order = order }
}

// WithPartialLimit caps the cells allocated for per-shard partial matrices.
// When workers*rows*cols exceeds it, shards add into the shared matrix with
// atomic increments instead
func WithPartialLimit(cells int) Option {
	return func(o *options) { o.partialCells = cells }
}

// WithProgress registers a callback invoked after each completed shard
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) { o.progress = fn }
}

// Build computes the overlap matrix of gt and pred.
//
// Both arrays are walked exactly twice in row-major order: once to count
// labels and fix the ranks, once to fill the matrix. The inputs are never
// modified
func Build(gt, pred Labels, opts ...Option) (*Matrix, error) {
	return BuildContext(context.Background(), gt, pred, opts...)
}

// BuildContext is Build with cancellation checked between passes and shards.
// A cancelled build returns ctx.Err() and no matrix
func BuildContext(ctx context.Context, gt, pred Labels, opts ...Option) (*Matrix, error) {
	o := options{workers: 1, order: EncounterOrder, partialCells: DefaultPartialCells}
	for _, opt := range opts {
		opt(&o)
	}

	w, err := newWalker(gt, pred)
	if err != nil {
		return nil, err
	}
	shards := w.shards(o.workers)

	// Pass 1: histograms, merged in shard order
	gtHists := make([]*histogram, len(shards))
	predHists := make([]*histogram, len(shards))
	err = runShards(ctx, shards, StageHistogram, o.progress, func(s, start, end int) {
		gh, ph := newHistogram(), newHistogram()
		w.walk(start, end, func(g, p uint64) {
			gh.add(g, 1)
			ph.add(p, 1)
		})
		gtHists[s], predHists[s] = gh, ph
	})
	if err != nil {
		return nil, err
	}

	gtHist, predHist := gtHists[0], predHists[0]
	for s := 1; s < len(shards); s++ {
		gtHist.merge(gtHists[s])
		predHist.merge(predHists[s])
	}
	gtLUT := gtHist.finalize(o.order)
	predLUT := predHist.finalize(o.order)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// Pass 2: per-shard partial matrices summed elementwise, or atomic adds into
	// the shared matrix when the partials would exceed the limit
	rows, cols := gtLUT.len(), predLUT.len()
	m := newMatrix(gtLUT, predLUT)
	if rows == 0 || cols == 0 {
		if o.progress != nil {
			o.progress(StageMatrix, len(shards), len(shards))
		}
		return m, nil
	}

	mode := planCells(len(shards), rows*cols, o.partialCells)
	partials := make([][]uint64, len(shards))
	err = runShards(ctx, shards, StageMatrix, o.progress, func(s, start, end int) {
		cells := m.cells
		switch mode {
		case cellsPartial:
			cells = make([]uint64, rows*cols)
			partials[s] = cells
		case cellsAtomic:
			w.walk(start, end, func(g, p uint64) {
				if g == Background || p == Background {
					return
				}
				atomic.AddUint64(&cells[gtLUT.ranks[g]*cols+predLUT.ranks[p]], 1)
			})
			return
		}
		w.walk(start, end, func(g, p uint64) {
			if g == Background || p == Background {
				return
			}
			cells[gtLUT.ranks[g]*cols+predLUT.ranks[p]]++
		})
	})
	if err != nil {
		return nil, err
	}
	for _, part := range partials {
		for k, v := range part {
			m.cells[k] += v
		}
	}
	return m, nil
}

// cellMode selects how second-pass shards write their counts
type cellMode int

const (
	cellsDirect cellMode = iota
	cellsPartial
	cellsAtomic
)

// planCells picks private partial matrices while they fit in limit cells
// and falls back to atomic increments on the shared matrix otherwise
func planCells(shards, cells, limit int) cellMode {
	if shards <= 1 {
		return cellsDirect
	}
	if cells > 0 && limit/cells >= shards {
		return cellsPartial
	}
	return cellsAtomic
}

// runShards runs fn for each shard and returns once all of them finished.
// A single shard runs on the calling goroutine
func runShards(ctx context.Context, shards [][2]int, stage string, progress ProgressFunc, fn func(s, start, end int)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	total := len(shards)
	if total == 1 {
		fn(0, shards[0][0], shards[0][1])
		if progress != nil {
			progress(stage, 1, 1)
		}
	} else {
		var wg sync.WaitGroup
		var mu sync.Mutex
		completed := 0
		for s, r := range shards {
			wg.Add(1)
			go func(s, start, end int) {
				defer wg.Done()
				if ctx.Err() != nil {
					return
				}
				fn(s, start, end)
				if progress != nil {
					mu.Lock()
					completed++
					progress(stage, completed, total)
					mu.Unlock()
				}
			}(s, r[0], r[1])
		}
		wg.Wait()
	}

	if err := ctx.Err(); err != nil {
		return errors.Wrapf(err, "overlap: %s pass abandoned", stage)
	}
	return nil
}
