package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"strings"
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"

	"goemu/pkg/config"
	"goemu/pkg/machine"
)

func newMachine(t *testing.T) machine.Machine {
	t.Helper()
	m, err := machine.New(config.Default(), machine.WithLogger(log.NewTestLogger(t)))
	assert.NoError(t, err)
	return m
}

func TestRenderHalfBlocks(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 2, 3))
	white := color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}
	black := color.RGBA{0, 0, 0, 0xFF}
	img.SetRGBA(0, 0, white)
	img.SetRGBA(1, 0, white)
	img.SetRGBA(0, 1, black)
	img.SetRGBA(1, 1, black)
	img.SetRGBA(0, 2, black)
	img.SetRGBA(1, 2, white)

	var buf bytes.Buffer
	renderHalfBlocks(&buf, img)
	out := buf.String()

	assert.True(t, strings.HasPrefix(out, escHome))
	lines := strings.Split(strings.TrimSuffix(strings.TrimPrefix(out, escHome), "\r\n"), "\r\n")
	assert.Len(t, lines, 2)

	// Equal neighbours share one colour escape.
	assert.Equal(t, "\x1b[38;2;255;255;255m\x1b[48;2;0;0;0m▀▀"+escReset, lines[0])
	// The odd last row repeats the top pixel as the bottom half.
	assert.Equal(t, "\x1b[38;2;0;0;0m\x1b[48;2;0;0;0m▀\x1b[38;2;255;255;255m\x1b[48;2;255;255;255m▀"+escReset, lines[1])
}

func TestKeypadHoldsAndReleases(t *testing.T) {
	m := newMachine(t)
	// LD V0, K; JP $202
	assert.NoError(t, m.Load([]byte{0xF0, 0x0A, 0x12, 0x02}))
	chip := m.(*machine.Chip8)
	pad := newKeypad(config.Default(), m, log.NewTestLogger(t))

	start := time.Unix(100, 0)
	assert.False(t, pad.input('w', start))
	assert.False(t, pad.input('p', start))
	assert.Len(t, pad.deadline, 1)

	assert.NoError(t, m.Update(time.Second/60))
	assert.Equal(t, uint16(0x200), chip.CPU().PC())

	pad.expire(start.Add(holdTime / 2))
	assert.Len(t, pad.deadline, 1)
	pad.expire(start.Add(holdTime))
	assert.Len(t, pad.deadline, 0)

	// The release completes the key wait.
	assert.NoError(t, m.Update(time.Second/60))
	assert.Equal(t, uint8(0x5), chip.CPU().Register(0))
}

func TestKeypadQuit(t *testing.T) {
	pad := newKeypad(config.Default(), newMachine(t), log.NewTestLogger(t))
	assert.True(t, pad.input(keyEscape, time.Now()))
	assert.True(t, pad.input(keyCtrlC, time.Now()))
}

func TestReadInput(t *testing.T) {
	out := make(chan byte, 8)
	readInput(strings.NewReader("qw"), out)

	var got []byte
	for b := range out {
		got = append(got, b)
	}
	assert.Equal(t, []byte("qw"), got)
}

func TestLoopStopsOnQuit(t *testing.T) {
	m := newMachine(t)
	assert.NoError(t, m.Load([]byte{0x12, 0x00}))

	input := make(chan byte, 1)
	input <- keyEscape
	err := loop(context.Background(), m, newKeypad(config.Default(), m, log.NewTestLogger(t)), input, log.NewTestLogger(t))
	assert.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.NoError(t, loop(ctx, m, newKeypad(config.Default(), m, log.NewTestLogger(t)), make(chan byte), log.NewTestLogger(t)))
}

func TestKeypadRejectsInvalidKey(t *testing.T) {
	m := newMachine(t)
	// LD V0, K; JP $202
	assert.NoError(t, m.Load([]byte{0xF0, 0x0A, 0x12, 0x02}))
	chip := m.(*machine.Chip8)
	pad := newKeypad(config.Default(), m, log.NewTestLogger(t))

	assert.False(t, pad.setKey(16, true))
	assert.False(t, pad.setKey(16, false))
	assert.True(t, m.IsRunning())

	assert.True(t, pad.setKey(0x5, true))
	assert.NoError(t, m.Update(time.Second/60))
	assert.True(t, pad.setKey(0x5, false))
	assert.NoError(t, m.Update(time.Second/60))
	assert.Equal(t, uint8(0x5), chip.CPU().Register(0))
}
