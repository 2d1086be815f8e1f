package analysis

// SuggestPositions returns n relative palette positions in [0, 1] that split
// the escaped (non-interior) cells into equal shares, so each colour band
// covers about the same number of pixels. The first position is always 0 and
// the last always 1. It returns nil when n < 2.
func SuggestPositions(h Histogram, n int) []float64 {
	if n < 2 || len(h.Bins) == 0 {
		return nil
	}

	maxIts := float64(h.Bins[len(h.Bins)-1])
	escaped := h.Trim()
	total := escaped.Total()

	positions := make([]float64, n)
	positions[n-1] = 1
	if total == 0 || maxIts == 0 {
		for i := 1; i < n-1; i++ {
			positions[i] = float64(i) / float64(n-1)
		}
		return positions
	}

	var cum uint64
	bin := 0
	for i := 1; i < n-1; i++ {
		target := total * uint64(i) / uint64(n-1)
		for bin < len(escaped.Counts) && cum+uint64(escaped.Counts[bin]) < target {
			cum += uint64(escaped.Counts[bin])
			bin++
		}
		pos := float64(bin) / maxIts
		if pos < positions[i-1] {
			pos = positions[i-1]
		}
		positions[i] = pos
	}
	return positions
}
