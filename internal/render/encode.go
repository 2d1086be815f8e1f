package render

import (
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"
	"strings"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
)

type encodeFunc func(io.Writer, image.Image) error

// encoderFor chooses the codec from the file extension; unknown or missing
// extensions are written as PNG.
func encoderFor(ext string) encodeFunc {
	switch strings.ToLower(ext) {
	case ".jpg", ".jpeg":
		return func(w io.Writer, m image.Image) error {
			return jpeg.Encode(w, m, &jpeg.Options{Quality: 95})
		}
	case ".gif":
		return func(w io.Writer, m image.Image) error {
			return gif.Encode(w, m, &gif.Options{NumColors: 256})
		}
	case ".bmp":
		return bmp.Encode
	case ".tif", ".tiff":
		return func(w io.Writer, m image.Image) error {
			return tiff.Encode(w, m, &tiff.Options{Compression: tiff.Deflate})
		}
	default:
		return png.Encode
	}
}

// Formats lists the extensions with a dedicated encoder.
func Formats() []string {
	return []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff"}
}
