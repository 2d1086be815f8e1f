// Package analysis summarizes escape grids.
//
//   - [Compute]: dense histogram of escape values, one bin per iteration count
//   - [SuggestPositions]: relative palette positions splitting the histogram mass evenly
//
// Histograms are derived on demand from the current grid and are never cached:
//
//	h := analysis.Compute(grid)
//	positions := analysis.SuggestPositions(h, 8)
package analysis
