package main

import (
	"fmt"
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
	"golang.org/x/term"
)

// rawTerminal switches stdin to unbuffered, unechoed input and restores it.
type rawTerminal struct {
	fd       uintptr
	original unix.Termios
}

func enableRawMode(f *os.File) (*rawTerminal, error) {
	if !term.IsTerminal(int(f.Fd())) {
		return nil, fmt.Errorf("%s is not a terminal", f.Name())
	}

	rt := &rawTerminal{fd: f.Fd()}
	if err := termios.Tcgetattr(rt.fd, &rt.original); err != nil {
		return nil, fmt.Errorf("reading terminal attributes: %w", err)
	}

	raw := rt.original
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0
	if err := termios.Tcsetattr(rt.fd, termios.TCSANOW, &raw); err != nil {
		return nil, fmt.Errorf("setting raw mode: %w", err)
	}
	return rt, nil
}

func (rt *rawTerminal) restore() error {
	return termios.Tcsetattr(rt.fd, termios.TCSANOW, &rt.original)
}

// terminalFits reports whether the output terminal can show cols x rows
// characters. Non-terminals always fit.
func terminalFits(f *os.File, cols, rows int) bool {
	w, h, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return true
	}
	return w >= cols && h >= rows
}
