package models

// Slice describes one 2D label image of a stacked volume
type Slice struct {
	// Index is the position of this slice in the sequence
	Index int

	// Filename is the original filename of the slice
	Filename string

	// Width and Height are the slice dimensions in pixels
	Width, Height int
}

// Axis names a dimension of a stacked label volume stored as (z, y, x)
type Axis int

const (
	AxisZ Axis = iota
	AxisY
	AxisX
)

// Pair is one non-zero cell of an overlap matrix, reported by label value
type Pair struct {
	// GroundTruthLabel and PredictionLabel are the label values of the cell
	GroundTruthLabel uint64 `yaml:"groundTruthLabel"`
	PredictionLabel  uint64 `yaml:"predictionLabel"`

	// Overlap is the number of shared pixels
	Overlap uint64 `yaml:"overlap"`

	// GroundTruthSize and PredictionSize are the full pixel counts of each label
	GroundTruthSize uint64 `yaml:"groundTruthSize"`
	PredictionSize  uint64 `yaml:"predictionSize"`
}

// Summary holds aggregate counts of an overlap matrix
type Summary struct {
	GroundTruthLabels int    `yaml:"groundTruthLabels"`
	PredictionLabels  int    `yaml:"predictionLabels"`
	GroundTruthPixels uint64 `yaml:"groundTruthPixels"`
	PredictionPixels  uint64 `yaml:"predictionPixels"`
	OverlapPixels     uint64 `yaml:"overlapPixels"`
	NonZeroCells      int    `yaml:"nonZeroCells"`
}

// Evaluation is the report written by the command line tool
type Evaluation struct {
	GroundTruth string  `yaml:"groundTruth"`
	Prediction  string  `yaml:"prediction"`
	Shape       []int   `yaml:"shape"`
	RankOrder   string  `yaml:"rankOrder"`
	Workers     int     `yaml:"workers"`
	Summary     Summary `yaml:"summary"`
	TopPairs    []Pair  `yaml:"topPairs,omitempty"`
}
