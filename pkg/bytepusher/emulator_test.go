package bytepusher

import (
	"errors"
	"image/color"
	"path/filepath"
	"testing"
	"time"

	"goemu/pkg/memory"

	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

const frame = time.Second / FrameRate

func putTriple(rom []byte, addr, val uint32) {
	rom[addr] = byte(val >> 16)
	rom[addr+1] = byte(val >> 8)
	rom[addr+2] = byte(val)
}

// putInstruction writes "copy [src] to [dst], jump to next" at addr.
func putInstruction(rom []byte, addr, src, dst, next uint32) {
	putTriple(rom, addr, src)
	putTriple(rom, addr+3, dst)
	putTriple(rom, addr+6, next)
}

// newROM returns a program whose entry point is 0x100.
func newROM(size int) []byte {
	rom := make([]byte, size)
	putTriple(rom, pcAddr, 0x100)
	return rom
}

func newEmulator(t *testing.T, rom []byte, opts ...Option) *Emulator {
	t.Helper()
	opts = append([]Option{WithLogger(log.NewTestLogger(t))}, opts...)
	e, err := New(opts...)
	assert.NoError(t, err)
	if rom != nil {
		assert.NoError(t, e.Load(rom))
	}
	return e
}

type recordingSink struct {
	frames [][]int8
}

func (s *recordingSink) WriteSamples(samples []int8) error {
	s.frames = append(s.frames, append([]int8(nil), samples...))
	return nil
}

func TestFrameCopiesAndJumps(t *testing.T) {
	rom := newROM(0x200)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x109)
	putInstruction(rom, 0x109, 0x11, 0x21, 0x100)
	rom[0x10] = 0xAB
	rom[0x11] = 0xCD

	e := newEmulator(t, rom)
	assert.NoError(t, e.Update(frame))

	mem := e.Memory()
	assert.Equal(t, byte(0xAB), mem[0x20])
	assert.Equal(t, byte(0xCD), mem[0x21])
	// 65536 is even, so the last jump lands back on the first instruction.
	assert.Equal(t, uint32(0x100), e.cpu.PC())
	assert.Equal(t, uint64(1), e.Frames())
}

func TestFrameRestartsFromEntryPoint(t *testing.T) {
	rom := newROM(0x200)
	// The instruction rewrites the low byte of the entry point each frame.
	putInstruction(rom, 0x100, 0x30, pcAddr+2, 0x100)
	putInstruction(rom, 0x140, 0x31, 0x40, 0x140)
	rom[0x30] = 0x40
	rom[0x31] = 0x77

	e := newEmulator(t, rom)
	assert.NoError(t, e.Update(frame))
	assert.Equal(t, byte(0x40), e.Memory()[pcAddr+2])
	assert.Equal(t, byte(0), e.Memory()[0x40])

	assert.NoError(t, e.Update(frame))
	assert.Equal(t, byte(0x77), e.Memory()[0x40])
	assert.Equal(t, uint32(0x140), e.cpu.PC())
}

func TestKeysPublishedBigEndian(t *testing.T) {
	rom := newROM(0x200)
	putInstruction(rom, 0x100, 0x00, 0x50, 0x109)
	putInstruction(rom, 0x109, 0x01, 0x51, 0x100)

	e := newEmulator(t, rom)
	assert.NoError(t, e.Press(0x0))
	assert.NoError(t, e.Press(0xF))
	assert.NoError(t, e.Press(0x9))
	assert.NoError(t, e.Update(frame))

	mem := e.Memory()
	assert.Equal(t, byte(0x82), mem[0x50])
	assert.Equal(t, byte(0x01), mem[0x51])

	assert.NoError(t, e.Release(0xF))
	assert.NoError(t, e.Update(frame))
	assert.Equal(t, byte(0x02), e.Memory()[0x50])
}

func TestInvalidKey(t *testing.T) {
	e := newEmulator(t, nil)
	assert.True(t, errors.Is(e.Press(16), ErrInvalidKey))
	assert.True(t, errors.Is(e.Release(0xFF), ErrInvalidKey))
	assert.True(t, e.IsRunning())
}

func TestFrameCadence(t *testing.T) {
	rom := newROM(0x200)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x100)
	e := newEmulator(t, rom)

	tests := []struct {
		delta time.Duration
		want  uint64
	}{
		{time.Millisecond, 0},
		{frame/2 - time.Millisecond, 0},
		{frame / 2, 1},
		{3 * frame, 4},
		{time.Second, 8},
	}
	for _, tc := range tests {
		assert.NoError(t, e.Update(tc.delta))
		if got := e.Frames(); got != tc.want {
			t.Errorf("after Update(%v) Frames() = %d; want %d", tc.delta, got, tc.want)
		}
	}
}

func TestChangedFlag(t *testing.T) {
	rom := newROM(0x200)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x100)
	e := newEmulator(t, rom)

	assert.True(t, e.Changed())
	e.ResetChanged()
	assert.NoError(t, e.Update(time.Millisecond))
	assert.False(t, e.Changed())
	assert.NoError(t, e.Update(frame))
	assert.True(t, e.Changed())
}

func TestSamplesCaptured(t *testing.T) {
	rom := newROM(0x400)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x100)
	rom[audioAddr] = 0x00
	rom[audioAddr+1] = 0x03
	for i := range SamplesPerFrame {
		rom[0x300+i] = byte(i)
	}

	sink := &recordingSink{}
	e := newEmulator(t, rom, WithAudioSink(sink))
	assert.NoError(t, e.Update(2*frame))

	samples := e.Samples()
	assert.Len(t, samples, SamplesPerFrame)
	assert.Equal(t, int8(0), samples[0])
	assert.Equal(t, int8(127), samples[127])
	assert.Equal(t, int8(-128), samples[128])
	assert.Equal(t, int8(-1), samples[255])

	assert.Len(t, sink.frames, 2)
	assert.Equal(t, samples, sink.frames[1])
}

func TestRomTooLarge(t *testing.T) {
	e := newEmulator(t, nil)
	err := e.Load(make([]byte, MemorySize+1))
	assert.True(t, errors.Is(err, memory.ErrRomTooLarge))

	assert.NoError(t, e.Load(newROM(0x10)))
}

func TestLoadFile(t *testing.T) {
	e := newEmulator(t, nil)
	assert.Error(t, e.LoadFile(filepath.Join(t.TempDir(), "missing.bp")))
}

func TestPalette(t *testing.T) {
	tests := []struct {
		index uint8
		want  color.RGBA
	}{
		{0, color.RGBA{0x00, 0x00, 0x00, 0xFF}},
		{1, color.RGBA{0x00, 0x00, 0x33, 0xFF}},
		{6, color.RGBA{0x00, 0x33, 0x00, 0xFF}},
		{36, color.RGBA{0x33, 0x00, 0x00, 0xFF}},
		{100, color.RGBA{0x66, 0xCC, 0xCC, 0xFF}},
		{215, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}},
		{216, color.RGBA{0x00, 0x00, 0x00, 0xFF}},
		{255, color.RGBA{0x00, 0x00, 0x00, 0xFF}},
	}
	for _, tc := range tests {
		if got := Color(tc.index); got != tc.want {
			t.Errorf("Color(%d) = %v; want %v", tc.index, got, tc.want)
		}
	}
}

func TestImageUsesDisplayPage(t *testing.T) {
	rom := newROM(0x20000)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x100)
	rom[displayAddr] = 0x01
	rom[0x10000+3*Width+2] = 215
	rom[0x10000+Width-1] = 36

	e := newEmulator(t, rom)
	img := e.Image()
	assert.Equal(t, Width, img.Bounds().Dx())
	assert.Equal(t, Height, img.Bounds().Dy())
	assert.Equal(t, color.RGBA{0xFF, 0xFF, 0xFF, 0xFF}, img.RGBAAt(2, 3))
	assert.Equal(t, color.RGBA{0x33, 0x00, 0x00, 0xFF}, img.RGBAAt(Width-1, 0))
	assert.Equal(t, color.RGBA{0x00, 0x00, 0x00, 0xFF}, img.RGBAAt(0, 0))
}

func TestSnapshotRoundTrip(t *testing.T) {
	rom := newROM(0x400)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x100)
	rom[0x10] = 0x5A
	e := newEmulator(t, rom)
	assert.NoError(t, e.Press(4))
	assert.NoError(t, e.Update(frame))

	data, err := e.Snapshot()
	assert.NoError(t, err)

	other := newEmulator(t, nil)
	assert.NoError(t, other.Restore(data))
	assert.Equal(t, uint64(1), other.Frames())
	assert.Equal(t, byte(0x5A), other.Memory()[0x20])
	assert.Equal(t, e.keyboard.State(), other.keyboard.State())
	assert.Equal(t, e.cpu.PC(), other.cpu.PC())

	path := filepath.Join(t.TempDir(), "slot.state")
	assert.NoError(t, e.SnapshotToFile(path))
	assert.NoError(t, other.RestoreFromFile(path))

	assert.True(t, errors.Is(other.Restore([]byte("junk")), ErrBadSnapshot))
}

func BenchmarkFrame(b *testing.B) {
	e, err := New()
	if err != nil {
		b.Fatal(err)
	}
	rom := newROM(0x200)
	putInstruction(rom, 0x100, 0x10, 0x20, 0x109)
	putInstruction(rom, 0x109, 0x11, 0x21, 0x100)
	if err := e.Load(rom); err != nil {
		b.Fatal(err)
	}

	for i := 0; i < b.N; i++ {
		if err := e.frame(); err != nil {
			b.Fatal(err)
		}
	}
}
