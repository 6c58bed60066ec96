// Package video holds the frontend-side frame helpers: integer scaling and
// PNG screenshots.
package video

import (
	"fmt"
	"image"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
)

// Scale enlarges src by an integer factor with nearest-neighbour sampling so
// pixels stay square.
func Scale(src image.Image, factor int) *image.RGBA {
	if factor < 1 {
		factor = 1
	}
	b := src.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, b, draw.Src, nil)
	return dst
}

// Fit returns the largest integer factor at which a w x h frame fits into
// maxW x maxH, never less than 1.
func Fit(w, h, maxW, maxH int) int {
	if w <= 0 || h <= 0 {
		return 1
	}
	factor := min(maxW/w, maxH/h)
	return max(factor, 1)
}

// EncodePNG writes img scaled by factor as PNG.
func EncodePNG(w io.Writer, img image.Image, factor int) error {
	if factor > 1 {
		img = Scale(img, factor)
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encoding png: %w", err)
	}
	return nil
}

// SaveScreenshot encodes img as a PNG and writes it to filename.
func SaveScreenshot(filename string, img image.Image, factor int) (rerr error) {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = err
		}
	}()
	return EncodePNG(f, img, factor)
}
