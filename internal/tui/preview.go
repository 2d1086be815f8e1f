package tui

import (
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/fraclab/internal/analysis"
	"github.com/san-kum/fraclab/internal/escape"
)

// ramp runs from fast escape to slow escape; bounded cells use inside.
var ramp = []rune(" .:-=+*#%")

const inside = '@'

// Preview downsamples g into h lines of w runes. Each character shows the
// escape value of the cell nearest its center.
func Preview(g *escape.Grid, w, h int) []string {
	if g == nil || w <= 0 || h <= 0 || g.Rows == 0 || g.Cols == 0 {
		return nil
	}
	max := float64(g.MaxIterations)
	lines := make([]string, h)
	for y := 0; y < h; y++ {
		row := (2*y + 1) * g.Rows / (2 * h)
		var sb strings.Builder
		for x := 0; x < w; x++ {
			col := (2*x + 1) * g.Cols / (2 * w)
			v := g.At(row, col)
			if v >= g.MaxIterations {
				sb.WriteRune(inside)
				continue
			}
			idx := int(float64(v) / max * float64(len(ramp)))
			if idx >= len(ramp) {
				idx = len(ramp) - 1
			}
			sb.WriteRune(ramp[idx])
		}
		lines[y] = sb.String()
	}
	return lines
}

// HistogramPlot draws the escape bands of h, leaving out the interior bin.
func HistogramPlot(h analysis.Histogram, width, height int, caption string) string {
	data := h.Trim().Series()
	if len(data) < 2 {
		return ""
	}
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Caption(caption),
	)
}
