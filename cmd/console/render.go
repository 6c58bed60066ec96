package main

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
)

const (
	escHome       = "\x1b[H"
	escClear      = "\x1b[2J"
	escHideCursor = "\x1b[?25l"
	escShowCursor = "\x1b[?25h"
	escReset      = "\x1b[0m"

	upperHalf = '▀'
)

// renderHalfBlocks draws two pixel rows per text row: the upper half block
// takes the top pixel as foreground and the bottom pixel as background.
func renderHalfBlocks(buf *bytes.Buffer, img *image.RGBA) {
	b := img.Bounds()
	buf.WriteString(escHome)

	var fg, bg color.RGBA
	first := true
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		for x := b.Min.X; x < b.Max.X; x++ {
			top := img.RGBAAt(x, y)
			bottom := top
			if y+1 < b.Max.Y {
				bottom = img.RGBAAt(x, y+1)
			}

			if first || top != fg {
				fmt.Fprintf(buf, "\x1b[38;2;%d;%d;%dm", top.R, top.G, top.B)
				fg = top
			}
			if first || bottom != bg {
				fmt.Fprintf(buf, "\x1b[48;2;%d;%d;%dm", bottom.R, bottom.G, bottom.B)
				bg = bottom
			}
			first = false
			buf.WriteRune(upperHalf)
		}
		buf.WriteString(escReset)
		buf.WriteString("\r\n")
		first = true
	}
}
