package overlap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestPlanCells verifies that partial matrices are only used while they fit the limit
func TestPlanCells(t *testing.T) {
	tests := []struct {
		name               string
		shards, cells, lim int
		want               cellMode
	}{
		{"single shard", 1, 4_000_000, 0, cellsDirect},
		{"small matrix", 8, 100, DefaultPartialCells, cellsPartial},
		{"exact fit", 4, 25, 100, cellsPartial},
		{"one over", 4, 26, 100, cellsAtomic},
		{"large matrix", 8, 2000 * 2000, DefaultPartialCells, cellsAtomic},
		{"no budget", 2, 1, 0, cellsAtomic},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, planCells(tt.shards, tt.cells, tt.lim), tt.name)
	}
}

// TestPartialMemoryCap verifies that a many-worker build of a large matrix counts
// into the shared matrix instead of per-shard copies
func TestPartialMemoryCap(t *testing.T) {
	const rows, cols = 2000, 2000
	gtData := make([]uint64, rows*cols)
	predData := make([]uint64, rows*cols)
	for i := range gtData {
		gtData[i] = uint64(i/cols + 1)
		predData[i] = uint64(i%cols + 1)
	}
	gt, pred := flat(gtData), flat(predData)

	mode := planCells(8, rows*cols, DefaultPartialCells)
	assert.Equal(t, cellsAtomic, mode)

	m, err := Build(gt, pred, WithWorkers(8))
	assert.NoError(t, err)
	assert.Equal(t, rows, m.NumberOfGroundTruthLabels())
	assert.Equal(t, cols, m.NumberOfPredictionLabels())
	assert.Equal(t, uint64(1), m.Intersection(rows-1, cols-1))
	assert.Equal(t, uint64(rows*cols), m.Summary().OverlapPixels)
}

// flat is a one-dimensional Indexed label array
type flat []uint64

func (f flat) Shape() []int          { return []int{len(f)} }
func (f flat) At(coord []int) uint64 { return f[coord[0]] }
func (f flat) Len() int              { return len(f) }
func (f flat) AtIndex(i int) uint64  { return f[i] }
