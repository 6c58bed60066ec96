package bytepusher

import (
	"image"
	"image/color"
)

var palette = buildPalette()

// 6x6x6 colour cube; indices 216-255 are black.
func buildPalette() [256]color.RGBA {
	var p [256]color.RGBA
	for i := range p {
		p[i] = color.RGBA{A: 0xFF}
		if i < 216 {
			p[i].R = uint8(i/36) * 0x33
			p[i].G = uint8((i/6)%6) * 0x33
			p[i].B = uint8(i%6) * 0x33
		}
	}
	return p
}

// Color returns the palette entry for a pixel value.
func Color(index uint8) color.RGBA {
	return palette[index]
}

// FramebufferRGBA renders the display page into an RGBA byte slice.
func (e *Emulator) FramebufferRGBA() []byte {
	pixels := make([]byte, Width*Height*4)

	base, err := e.page(displayAddr, 1)
	if err != nil {
		return pixels
	}
	screen, err := e.memory.Slice(base, Width*Height)
	if err != nil {
		return pixels
	}

	for i, v := range screen {
		c := palette[v]
		off := i * 4
		pixels[off] = c.R
		pixels[off+1] = c.G
		pixels[off+2] = c.B
		pixels[off+3] = c.A
	}
	return pixels
}

// Image returns the current frame.
func (e *Emulator) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    e.FramebufferRGBA(),
		Stride: Width * 4,
		Rect:   image.Rect(0, 0, Width, Height),
	}
}
