// Package escape computes escape-time grids for the Mandelbrot set.
//
// The package defines the sampling geometry and the per-pixel kernel:
//
//   - [Viewport]: grid dimensions, center, pixel pitch and iteration cap
//   - [Grid]: dense row-major escape values for one viewport
//   - [Engine]: evaluates a viewport row by row on a bounded worker pool
//
// # Example
//
//	vp := escape.NewViewport(800, 600, complex(-0.5, 0), 0.004, 500)
//	grid := escape.NewEngine(0).Compute(vp)
//	v := grid.At(300, 400)
//
// # Thread Safety
//
// Viewport and Grid values are not synchronized. Compute reads its viewport
// argument by value and every worker writes only its own row slice, so a
// single call needs no locking. Callers sharing a Grid across goroutines
// must guard it themselves.
package escape
