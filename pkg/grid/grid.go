// Package grid maps between linear indexes and 2D coordinates for the
// row-major pixel grids used by the displays and renderers.
package grid

// GetGridCoords returns the column and row of a row-major index.
func GetGridCoords(index, cols int) (x, y int) {
	return index % cols, index / cols
}

// Index returns the row-major index of (x, y).
func Index(x, y, cols int) int {
	return y*cols + x
}

// BitAddress returns the byte offset and bit number of pixel (x, y) in a
// packed 1bpp grid. Bit 7 of each byte is the leftmost pixel.
func BitAddress(x, y, cols int) (offset int, bit uint) {
	i := Index(x, y, cols)
	return i / 8, uint(7 - i%8)
}

// PackedSize returns the number of bytes needed for a 1bpp grid.
func PackedSize(cols, rows int) int {
	return (cols*rows + 7) / 8
}
