package overlap

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"segoverlap/internal/models"
)

// Matrix is the immutable result of Build. Rows are ground-truth ranks and
// columns are prediction ranks
type Matrix struct {
	gt, pred *lut

	// cells holds rows*cols counts in row-major order
	cells []uint64
}

func newMatrix(gt, pred *lut) *Matrix {
	return &Matrix{
		gt:    gt,
		pred:  pred,
		cells: make([]uint64, gt.len()*pred.len()),
	}
}

// NumberOfGroundTruthLabels returns the number of distinct non-background
// ground-truth labels, i.e. the row count
func (m *Matrix) NumberOfGroundTruthLabels() int { return m.gt.len() }

// NumberOfPredictionLabels returns the column count
func (m *Matrix) NumberOfPredictionLabels() int { return m.pred.len() }

// GroundTruthLabelSize returns the pixel count of the ground-truth label at
// rank. ok is false when rank is outside [0, NumberOfGroundTruthLabels())
func (m *Matrix) GroundTruthLabelSize(rank int) (size uint64, ok bool) {
	return m.gt.size(rank)
}

// PredictionLabelSize returns the pixel count of the prediction label at rank
func (m *Matrix) PredictionLabelSize(rank int) (size uint64, ok bool) {
	return m.pred.size(rank)
}

// GroundTruthLabel returns the label value ranked rank
func (m *Matrix) GroundTruthLabel(rank int) (label uint64, ok bool) {
	return m.gt.label(rank)
}

// PredictionLabel returns the label value ranked rank
func (m *Matrix) PredictionLabel(rank int) (label uint64, ok bool) {
	return m.pred.label(rank)
}

// GroundTruthRank returns the rank of a ground-truth label value
func (m *Matrix) GroundTruthRank(label uint64) (rank int, ok bool) {
	rank, ok = m.gt.ranks[label]
	return rank, ok
}

// PredictionRank returns the rank of a prediction label value
func (m *Matrix) PredictionRank(label uint64) (rank int, ok bool) {
	rank, ok = m.pred.ranks[label]
	return rank, ok
}

// Intersection returns the number of pixels shared by ground-truth rank i and
// prediction rank j. It returns 0 when either label set is empty. Any other
// out-of-range rank is a programming error and panics; use
// IntersectionChecked for untrusted ranks
func (m *Matrix) Intersection(i, j int) uint64 {
	if m.gt.len() == 0 || m.pred.len() == 0 {
		return 0
	}
	if !m.inRange(i, j) {
		panic(fmt.Sprintf("overlap: intersection rank (%d, %d) out of range [%d, %d)", i, j, m.gt.len(), m.pred.len()))
	}
	return m.cells[i*m.pred.len()+j]
}

// IntersectionChecked is Intersection returning ErrRankOutOfRange instead of
// panicking
func (m *Matrix) IntersectionChecked(i, j int) (uint64, error) {
	if m.gt.len() == 0 || m.pred.len() == 0 {
		return 0, nil
	}
	if !m.inRange(i, j) {
		return 0, errors.Wrapf(ErrRankOutOfRange, "(%d, %d) not in [%d, %d)", i, j, m.gt.len(), m.pred.len())
	}
	return m.cells[i*m.pred.len()+j], nil
}

func (m *Matrix) inRange(i, j int) bool {
	return i >= 0 && i < m.gt.len() && j >= 0 && j < m.pred.len()
}

// GroundTruthOverlapTotal returns the sum of row i: the pixels of ground-truth
// rank i that fall on any foreground prediction
func (m *Matrix) GroundTruthOverlapTotal(i int) (uint64, bool) {
	if i < 0 || i >= m.gt.len() {
		return 0, false
	}
	cols := m.pred.len()
	var sum uint64
	for _, v := range m.cells[i*cols : (i+1)*cols] {
		sum += v
	}
	return sum, true
}

// PredictionOverlapTotal returns the sum of column j
func (m *Matrix) PredictionOverlapTotal(j int) (uint64, bool) {
	if j < 0 || j >= m.pred.len() {
		return 0, false
	}
	cols := m.pred.len()
	var sum uint64
	for i := 0; i < m.gt.len(); i++ {
		sum += m.cells[i*cols+j]
	}
	return sum, true
}

// BestPredictionMatch returns the prediction rank sharing the most pixels with
// ground-truth rank i. Ties resolve to the lowest rank. ok is false when i is
// out of range or the row is all zero
func (m *Matrix) BestPredictionMatch(i int) (j int, count uint64, ok bool) {
	if i < 0 || i >= m.gt.len() {
		return 0, 0, false
	}
	cols := m.pred.len()
	for k, v := range m.cells[i*cols : (i+1)*cols] {
		if v > count {
			j, count, ok = k, v, true
		}
	}
	return j, count, ok
}

// Transpose returns the matrix obtained by swapping the roles of ground truth
// and prediction
func (m *Matrix) Transpose() *Matrix {
	rows, cols := m.gt.len(), m.pred.len()
	t := newMatrix(m.pred, m.gt)
	for i := 0; i < rows; i++ {
		for j := 0; j < cols; j++ {
			t.cells[j*rows+i] = m.cells[i*cols+j]
		}
	}
	return t
}

// Dense copies the counts into a gonum matrix for downstream metric code.
// It returns nil when either dimension is zero, which gonum cannot represent
func (m *Matrix) Dense() *mat.Dense {
	rows, cols := m.gt.len(), m.pred.len()
	if rows == 0 || cols == 0 {
		return nil
	}
	data := make([]float64, len(m.cells))
	for k, v := range m.cells {
		data[k] = float64(v)
	}
	return mat.NewDense(rows, cols, data)
}

// Pairs lists every non-zero cell in row-major rank order
func (m *Matrix) Pairs() []models.Pair {
	var pairs []models.Pair
	cols := m.pred.len()
	for k, v := range m.cells {
		if v == 0 {
			continue
		}
		i, j := k/cols, k%cols
		pairs = append(pairs, models.Pair{
			GroundTruthLabel: m.gt.labels[i],
			PredictionLabel:  m.pred.labels[j],
			Overlap:          v,
			GroundTruthSize:  m.gt.sizes[i],
			PredictionSize:   m.pred.sizes[j],
		})
	}
	return pairs
}

// Summary aggregates the matrix into label and pixel totals
func (m *Matrix) Summary() models.Summary {
	s := models.Summary{
		GroundTruthLabels: m.gt.len(),
		PredictionLabels:  m.pred.len(),
	}
	for _, v := range m.gt.sizes {
		s.GroundTruthPixels += v
	}
	for _, v := range m.pred.sizes {
		s.PredictionPixels += v
	}
	for _, v := range m.cells {
		if v > 0 {
			s.OverlapPixels += v
			s.NonZeroCells++
		}
	}
	return s
}
