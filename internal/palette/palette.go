// Package palette maps escape values to colors through piecewise-linear color stops.
package palette

import (
	_ "embed"
	"image/color"
	"math"
	"sort"
)

// DefaultFilename is the name under which the built-in palette is installed.
const DefaultFilename = "default.palette"

//go:embed default.palette
var defaultSource []byte

// Background is returned for values at or below the first boundary.
var Background = color.RGBA{A: 255}

// Entry is one colour stop.
type Entry struct {
	Position float64 // relative boundary in [0, 1]
	Index    int     // informational ordinal carried by the definition
	Label    string
	Color    color.RGBA
	Boundary uint32 // Position scaled by the current iteration cap
}

// Palette is an ordered set of colour stops. Rescale must run whenever the
// iteration cap changes; boundaries from a previous cap are meaningless.
type Palette struct {
	Name string

	entries       []Entry
	maxIterations uint32
}

// New builds a palette from entries, ordering them by position. Entries with
// equal positions keep their definition order.
func New(name string, entries []Entry) *Palette {
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position < sorted[j].Position
	})
	for i := range sorted {
		sorted[i].Color.A = 255
	}
	return &Palette{Name: name, entries: sorted}
}

// Default returns the built-in palette.
func Default() *Palette {
	p, err := Parse(DefaultFilename, defaultSource)
	if err != nil {
		panic("palette: embedded default is invalid: " + err.Error())
	}
	return p
}

// DefaultSource returns the raw built-in definition.
func DefaultSource() []byte {
	out := make([]byte, len(defaultSource))
	copy(out, defaultSource)
	return out
}

// Rescale derives every entry's absolute boundary for maxIterations.
func (p *Palette) Rescale(maxIterations uint32) {
	p.maxIterations = maxIterations
	for i := range p.entries {
		p.entries[i].Boundary = uint32(math.Round(p.entries[i].Position * float64(maxIterations)))
	}
}

// MaxIterations returns the cap of the last Rescale.
func (p *Palette) MaxIterations() uint32 { return p.maxIterations }

// Len returns the number of entries.
func (p *Palette) Len() int { return len(p.entries) }

// Entries returns a copy of the ordered entries.
func (p *Palette) Entries() []Entry {
	out := make([]Entry, len(p.entries))
	copy(out, p.entries)
	return out
}

// ColorFor interpolates the colour of an escape value between the consecutive
// entries lower, upper with lower.Boundary < v <= upper.Boundary. Values past
// the last boundary take the last colour; values at or below the first
// boundary take Background.
func (p *Palette) ColorFor(v uint32) color.RGBA {
	n := len(p.entries)
	if n == 0 {
		return Background
	}

	i := sort.Search(n, func(i int) bool { return p.entries[i].Boundary >= v })
	switch {
	case i == n:
		return p.entries[n-1].Color
	case i == 0:
		return Background
	}

	lo, hi := p.entries[i-1], p.entries[i]
	t := float64(v-lo.Boundary) / float64(hi.Boundary-lo.Boundary)
	return lerp(lo.Color, hi.Color, t)
}

func lerp(a, b color.RGBA, t float64) color.RGBA {
	return color.RGBA{
		R: lerpChannel(a.R, b.R, t),
		G: lerpChannel(a.G, b.G, t),
		B: lerpChannel(a.B, b.B, t),
		A: 255,
	}
}

func lerpChannel(a, b uint8, t float64) uint8 {
	return uint8(math.Round((1-t)*float64(a) + t*float64(b)))
}
