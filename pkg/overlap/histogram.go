package overlap

import "slices"

// RankOrder selects how dense ranks are assigned to labels
type RankOrder int

const (
	// EncounterOrder ranks labels in the order they are first met during the
	// row-major walk of the first pass
	EncounterOrder RankOrder = iota

	// LabelOrder ranks labels by ascending label value
	LabelOrder
)

// String implements fmt.Stringer
func (o RankOrder) String() string {
	switch o {
	case EncounterOrder:
		return "encounter"
	case LabelOrder:
		return "label"
	default:
		return "unknown"
	}
}

// ParseRankOrder maps the names returned by String back to a RankOrder
func ParseRankOrder(name string) (RankOrder, bool) {
	switch name {
	case "encounter", "":
		return EncounterOrder, true
	case "label":
		return LabelOrder, true
	default:
		return EncounterOrder, false
	}
}

// histogram counts labels while remembering first-encounter order
type histogram struct {
	counts map[uint64]uint64
	order  []uint64
}

func newHistogram() *histogram {
	return &histogram{counts: make(map[uint64]uint64)}
}

func (h *histogram) add(label uint64, n uint64) {
	c, seen := h.counts[label]
	if !seen {
		h.order = append(h.order, label)
	}
	h.counts[label] = c + n
}

// merge folds o into h. Labels new to h are appended in o's order, so merging
// shard histograms in shard order reproduces a sequential walk
func (h *histogram) merge(o *histogram) {
	for _, label := range o.order {
		h.add(label, o.counts[label])
	}
}

// lut is the finalized label/rank mapping of one array, background removed
type lut struct {
	ranks  map[uint64]int
	labels []uint64
	sizes  []uint64
}

func (h *histogram) finalize(order RankOrder) *lut {
	labels := make([]uint64, 0, len(h.order))
	for _, label := range h.order {
		if label != Background {
			labels = append(labels, label)
		}
	}
	if order == LabelOrder {
		slices.Sort(labels)
	}

	l := &lut{
		ranks:  make(map[uint64]int, len(labels)),
		labels: labels,
		sizes:  make([]uint64, len(labels)),
	}
	for rank, label := range labels {
		l.ranks[label] = rank
		l.sizes[rank] = h.counts[label]
	}
	return l
}

func (l *lut) len() int { return len(l.labels) }

func (l *lut) size(rank int) (uint64, bool) {
	if rank < 0 || rank >= len(l.sizes) {
		return 0, false
	}
	return l.sizes[rank], true
}

func (l *lut) label(rank int) (uint64, bool) {
	if rank < 0 || rank >= len(l.labels) {
		return 0, false
	}
	return l.labels[rank], true
}
