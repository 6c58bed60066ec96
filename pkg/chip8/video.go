package chip8

import (
	"image"
	"image/color"

	"goemu/pkg/grid"
)

// FramebufferRGBA decodes the display into RGBA8888 bytes, fg for lit
// pixels and bg for the rest. The slice holds Width*Height*4 bytes.
func (e *Emulator) FramebufferRGBA(fg, bg color.RGBA) []byte {
	w, h := e.display.Width(), e.display.Height()
	pixels := make([]byte, w*h*4)
	for i := range w * h {
		c := bg
		if x, y := grid.GetGridCoords(i, w); e.display.Pixel(x, y) {
			c = fg
		}
		pixels[i*4+0] = c.R
		pixels[i*4+1] = c.G
		pixels[i*4+2] = c.B
		pixels[i*4+3] = c.A
	}
	return pixels
}

// Image returns the display as an *image.RGBA.
func (e *Emulator) Image(fg, bg color.RGBA) *image.RGBA {
	w, h := e.display.Width(), e.display.Height()
	return &image.RGBA{
		Pix:    e.FramebufferRGBA(fg, bg),
		Stride: w * 4,
		Rect:   image.Rect(0, 0, w, h),
	}
}
