package escape

import "fmt"

// Viewport is the rectangular region of the complex plane sampled on a pixel grid.
type Viewport struct {
	Rows          uint32
	Cols          uint32
	Center        complex128
	Pitch         float64 // complex-plane distance between neighbouring pixels
	MaxIterations uint32

	topLeft complex128
}

// NewViewport builds a viewport and derives its limits.
func NewViewport(rows, cols uint32, center complex128, pitch float64, maxIterations uint32) Viewport {
	v := Viewport{
		Rows:          rows,
		Cols:          cols,
		Center:        center,
		Pitch:         pitch,
		MaxIterations: maxIterations,
	}
	v.RecomputeLimits()
	return v
}

// RecomputeLimits derives the top-left sample from center, pitch and dimensions.
// It must run after any change to Rows, Cols, Center or Pitch. Invalid geometry
// panics: callers validate before reaching the engine.
func (v *Viewport) RecomputeLimits() {
	if err := v.check(); err != nil {
		panic(err)
	}
	re := real(v.Center) - (float64(v.Cols)/2.0)*v.Pitch
	im := imag(v.Center) + (float64(v.Rows)/2.0)*v.Pitch
	v.topLeft = complex(re, im)
}

// Recenter moves the viewport center and refreshes the limits.
func (v *Viewport) Recenter(center complex128) {
	v.Center = center
	v.RecomputeLimits()
}

// TopLeft returns the coordinate of pixel (0, 0).
func (v Viewport) TopLeft() complex128 { return v.topLeft }

// PointAt maps a pixel to its complex coordinate. Imaginary part decreases
// downward, real part increases rightward.
func (v Viewport) PointAt(row, col int) complex128 {
	return complex(
		real(v.topLeft)+float64(col)*v.Pitch,
		imag(v.topLeft)-float64(row)*v.Pitch,
	)
}

// Bounds returns the real and imaginary extent covered by the pixel grid.
func (v Viewport) Bounds() (reMin, reMax, imMin, imMax float64) {
	reMin = real(v.topLeft)
	imMax = imag(v.topLeft)
	reMax = reMin + float64(v.Cols)*v.Pitch
	imMin = imMax - float64(v.Rows)*v.Pitch
	return reMin, reMax, imMin, imMax
}

func (v Viewport) check() error {
	switch {
	case v.Rows == 0 || v.Cols == 0:
		return fmt.Errorf("escape: viewport %dx%d has an empty dimension", v.Cols, v.Rows)
	case !(v.Pitch > 0):
		return fmt.Errorf("escape: viewport pitch %g must be positive", v.Pitch)
	case v.MaxIterations == 0:
		return fmt.Errorf("escape: viewport needs at least one iteration")
	}
	return nil
}
