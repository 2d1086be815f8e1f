package session

import (
	"math"
	"strings"

	"github.com/san-kum/fraclab/internal/errs"
)

// Upper bounds applied to request parameters so a single request cannot
// allocate an unbounded grid.
const (
	MaxDimension     = 1 << 14
	MaxIterationsCap = 1 << 20
)

// GenerateParams carries optional overrides for the viewport. Nil fields keep
// their current value.
type GenerateParams struct {
	Rows          *uint32  `json:"rows,omitempty"`
	Cols          *uint32  `json:"cols,omitempty"`
	CenterRe      *float64 `json:"center_re,omitempty"`
	CenterIm      *float64 `json:"center_im,omitempty"`
	PixelPitch    *float64 `json:"pixel_pitch,omitempty"`
	MaxIterations *uint32  `json:"max_iterations,omitempty"`
	PaletteFile   *string  `json:"palette_file,omitempty"`
}

func (p GenerateParams) Validate() error {
	if err := checkDimension("rows", p.Rows); err != nil {
		return err
	}
	if err := checkDimension("cols", p.Cols); err != nil {
		return err
	}
	if p.CenterRe != nil && !finite(*p.CenterRe) {
		return errs.NewValidationError("center_re", *p.CenterRe, "must be finite")
	}
	if p.CenterIm != nil && !finite(*p.CenterIm) {
		return errs.NewValidationError("center_im", *p.CenterIm, "must be finite")
	}
	if p.PixelPitch != nil && (!finite(*p.PixelPitch) || *p.PixelPitch <= 0) {
		return errs.NewValidationError("pixel_pitch", *p.PixelPitch, "must be positive")
	}
	if p.MaxIterations != nil && (*p.MaxIterations < 1 || *p.MaxIterations > MaxIterationsCap) {
		return errs.NewValidationError("max_iterations", *p.MaxIterations, "must be between 1 and 1048576")
	}
	if p.PaletteFile != nil && strings.TrimSpace(*p.PaletteFile) == "" {
		return errs.NewValidationError("palette_file", *p.PaletteFile, "must not be empty")
	}
	return nil
}

// RecenterParams moves the view to a new center. Row and Col name the pixel
// that was picked; they are accepted as hints and the grid is always fully
// recomputed.
type RecenterParams struct {
	Row *uint32  `json:"center_row,omitempty"`
	Col *uint32  `json:"center_col,omitempty"`
	Re  *float64 `json:"new_center_re"`
	Im  *float64 `json:"new_center_im"`
}

func (p RecenterParams) Validate() error {
	if p.Re == nil {
		return errs.NewValidationError("new_center_re", nil, "is required")
	}
	if p.Im == nil {
		return errs.NewValidationError("new_center_im", nil, "is required")
	}
	if !finite(*p.Re) {
		return errs.NewValidationError("new_center_re", *p.Re, "must be finite")
	}
	if !finite(*p.Im) {
		return errs.NewValidationError("new_center_im", *p.Im, "must be finite")
	}
	return nil
}

// Params echoes the geometry a session currently holds.
type Params struct {
	Rows          uint32  `json:"rows"`
	Cols          uint32  `json:"cols"`
	CenterRe      float64 `json:"center_re"`
	CenterIm      float64 `json:"center_im"`
	PixelPitch    float64 `json:"pixel_pitch"`
	MaxIterations uint32  `json:"max_iterations"`
	PaletteFile   string  `json:"palette_file"`
}

func checkDimension(field string, v *uint32) error {
	if v == nil {
		return nil
	}
	if *v == 0 || *v > MaxDimension {
		return errs.NewValidationError(field, *v, "must be between 1 and 16384")
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Uint32 and Float64 return pointers for building params inline.
func Uint32(v uint32) *uint32 { return &v }

func Float64(v float64) *float64 { return &v }

func String(v string) *string { return &v }
