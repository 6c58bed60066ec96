// Package display implements a monochrome 1bpp framebuffer with XOR
// plotting and a dirty flag for the renderer.
package display

import (
	"fmt"

	"goemu/pkg/grid"
)

// Display is a packed bit grid. Only CLS and sprite drawing mutate it. The
// changed flag is set by every draw and must only be cleared by the
// renderer after it has consumed a frame.
type Display struct {
	width   int
	height  int
	bits    []byte
	changed bool
}

// New creates a cleared display. The changed flag starts set so that the
// first frame is rendered.
func New(width, height int) (*Display, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid display size %dx%d", width, height)
	}
	return &Display{
		width:   width,
		height:  height,
		bits:    make([]byte, grid.PackedSize(width, height)),
		changed: true,
	}, nil
}

// Width returns the width in pixels.
func (d *Display) Width() int {
	return d.width
}

// Height returns the height in pixels.
func (d *Display) Height() int {
	return d.height
}

// Clear turns every pixel off.
func (d *Display) Clear() {
	clear(d.bits)
}

func (d *Display) inside(x, y int) bool {
	return x >= 0 && y >= 0 && x < d.width && y < d.height
}

// Pixel reports whether the pixel at (x, y) is on. Coordinates outside the
// display read as off.
func (d *Display) Pixel(x, y int) bool {
	if !d.inside(x, y) {
		return false
	}
	offset, bit := grid.BitAddress(x, y, d.width)
	return d.bits[offset]>>bit&1 == 1
}

// SetPixel XORs the pixel at (x, y) when on is true and returns whether the
// pixel was set before, i.e. whether a collision happened. A false source
// bit never changes the display. Coordinates outside the display are
// ignored.
func (d *Display) SetPixel(x, y int, on bool) bool {
	if !on || !d.inside(x, y) {
		return false
	}
	offset, bit := grid.BitAddress(x, y, d.width)
	was := d.bits[offset]>>bit&1 == 1
	d.bits[offset] ^= 1 << bit
	return was
}

// MarkChanged flags the frame as dirty.
func (d *Display) MarkChanged() {
	d.changed = true
}

// Changed reports whether the frame changed since the renderer last called
// ResetChanged.
func (d *Display) Changed() bool {
	return d.changed
}

// ResetChanged is called by the renderer after consuming a frame.
func (d *Display) ResetChanged() {
	d.changed = false
}

// Bits returns the packed framebuffer. It must be treated as read-only.
func (d *Display) Bits() []byte {
	return d.bits
}

// Restore replaces the framebuffer contents and marks the frame changed.
func (d *Display) Restore(bits []byte) error {
	if len(bits) != len(d.bits) {
		return fmt.Errorf("display image is %d bytes, expected %d", len(bits), len(d.bits))
	}
	copy(d.bits, bits)
	d.changed = true
	return nil
}
