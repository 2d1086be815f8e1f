package escape

import (
	"math"
	"math/cmplx"
)

// Bailout is the modulus at which an orbit counts as diverged.
const Bailout = 2.0

// Engine evaluates viewports on a bounded pool of row workers.
type Engine struct {
	workers int
}

// NewEngine creates an engine. workers <= 0 uses every available CPU.
func NewEngine(workers int) *Engine {
	return &Engine{workers: workers}
}

// Workers returns the configured pool size (0 means NumCPU).
func (e *Engine) Workers() int { return e.workers }

// Compute evaluates every pixel of v and returns a freshly allocated grid.
// Each worker owns a disjoint row slice so no locking happens per pixel; the
// result is identical for any worker count.
func (e *Engine) Compute(v Viewport) *Grid {
	v.RecomputeLimits()
	grid := NewGrid(int(v.Rows), int(v.Cols), v.MaxIterations)

	ForEachRow(grid.Rows, e.workers, func(row int) {
		computeRow(v, row, grid.Row(row))
	})

	return grid
}

func computeRow(v Viewport, row int, out []uint32) {
	for col := range out {
		out[col] = Smooth(v.PointAt(row, col), v.MaxIterations)
	}
}

// Smooth returns the floored, smoothed escape count of c in [0, maxIterations].
// Orbits that stay bounded for maxIterations steps report maxIterations.
func Smooth(c complex128, maxIterations uint32) uint32 {
	z, n, diverged := Orbit(c, maxIterations)
	if !diverged {
		return maxIterations
	}

	mu := float64(n) + 1.0 - muLog(cmplx.Abs(z))
	switch {
	case mu > float64(maxIterations):
		mu = float64(maxIterations)
	case mu < 0:
		mu = 0
	}
	return uint32(math.Floor(mu))
}

// Orbit iterates z <- z^2 + c from zero until |z| >= Bailout or maxIterations
// steps ran. It returns the last z, the number of steps taken, and whether the
// orbit escaped.
func Orbit(c complex128, maxIterations uint32) (z complex128, n uint32, diverged bool) {
	for n < maxIterations {
		z = z*z + c
		n++
		if cmplx.Abs(z) >= Bailout {
			return z, n, true
		}
	}
	return z, n, false
}

func muLog(modulus float64) float64 {
	if modulus > math.E {
		return math.Log(math.Log(modulus)) / math.Ln2
	}
	return 0
}
