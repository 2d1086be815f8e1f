// Package render turns escape grids into raster files.
package render

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/san-kum/fraclab/internal/errs"
	"github.com/san-kum/fraclab/internal/escape"
	"github.com/san-kum/fraclab/internal/palette"
)

// maxAttempts bounds the suffix search so a full directory cannot spin forever.
const maxAttempts = 100000

// Renderer writes images into one output directory.
type Renderer struct {
	dir     string
	workers int
}

// New creates a renderer for dir. workers bounds the row pool used to fill
// the pixel buffer (<= 0 means NumCPU).
func New(dir string, workers int) *Renderer {
	return &Renderer{dir: dir, workers: workers}
}

// Dir returns the output directory.
func (r *Renderer) Dir() string { return r.dir }

// Render colours grid through pal and writes it under a fresh
// "<stem>-NNN<ext>" name derived from base. It returns the full path.
// pal must already be rescaled to the grid's iteration cap.
func (r *Renderer) Render(grid *escape.Grid, pal *palette.Palette, base string) (string, error) {
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return "", errs.NewIOError("create output dir", r.dir, err)
	}

	stem, ext := SplitName(filepath.Base(base))
	f, path, err := r.claim(stem, ext)
	if err != nil {
		return "", err
	}

	img := Image(grid, pal, r.workers)
	encErr := encoderFor(ext)(f, img)
	closeErr := f.Close()
	if err := errors.Join(encErr, closeErr); err != nil {
		_ = os.Remove(path)
		return "", errs.NewIOError("write image", path, err)
	}
	return path, nil
}

// claim creates the first "<stem>-NNN<ext>" that does not exist yet. Creation
// is exclusive, so concurrent writers never share a name.
func (r *Renderer) claim(stem, ext string) (*os.File, string, error) {
	for n := 1; n <= maxAttempts; n++ {
		path := filepath.Join(r.dir, fmt.Sprintf("%s-%03d%s", stem, n, ext))
		f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return f, path, nil
		}
		if !errors.Is(err, os.ErrExist) {
			return nil, "", errs.NewIOError("create image", path, err)
		}
	}
	return nil, "", errs.NewIOError("create image", filepath.Join(r.dir, stem+"-*"+ext),
		fmt.Errorf("no free name after %d attempts", maxAttempts))
}

// SplitName splits a file name at its last dot. ext keeps the dot and is
// empty when there is none.
func SplitName(name string) (stem, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i < 0 {
		return name, ""
	}
	return name[:i], name[i:]
}

// Image maps every grid cell through pal into a cols × rows RGBA buffer.
func Image(grid *escape.Grid, pal *palette.Palette, workers int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, grid.Cols, grid.Rows))
	escape.ForEachRow(grid.Rows, workers, func(y int) {
		line := img.Pix[y*img.Stride : y*img.Stride+4*grid.Cols]
		for x, v := range grid.Row(y) {
			c := pal.ColorFor(v)
			px := line[4*x : 4*x+4 : 4*x+4]
			px[0], px[1], px[2], px[3] = c.R, c.G, c.B, c.A
		}
	})
	return img
}
