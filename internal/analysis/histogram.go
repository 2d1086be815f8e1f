package analysis

import "github.com/san-kum/fraclab/internal/escape"

// Histogram is a dense series of escape value counts.
type Histogram struct {
	Bins   []uint32 `json:"bins"`
	Counts []uint32 `json:"counts"`
}

// Compute counts grid cells per escape value. Bins cover 0..MaxIterations
// inclusive and are emitted even when empty, so the series has a fixed length
// and the counts sum to Rows*Cols.
func Compute(grid *escape.Grid) Histogram {
	n := int(grid.MaxIterations) + 1
	h := Histogram{
		Bins:   make([]uint32, n),
		Counts: make([]uint32, n),
	}
	for i := range h.Bins {
		h.Bins[i] = uint32(i)
	}
	for _, v := range grid.Cells() {
		if int(v) < n {
			h.Counts[v]++
		}
	}
	return h
}

// Total returns the number of counted cells.
func (h Histogram) Total() uint64 {
	var sum uint64
	for _, c := range h.Counts {
		sum += uint64(c)
	}
	return sum
}

// Series returns the counts as float64 for plotting.
func (h Histogram) Series() []float64 {
	out := make([]float64, len(h.Counts))
	for i, c := range h.Counts {
		out[i] = float64(c)
	}
	return out
}

// Trim drops the trailing bin, which holds the bounded (interior) points and
// usually dwarfs every escape band in a plot.
func (h Histogram) Trim() Histogram {
	if len(h.Bins) <= 1 {
		return h
	}
	return Histogram{Bins: h.Bins[:len(h.Bins)-1], Counts: h.Counts[:len(h.Counts)-1]}
}
