// Package bytepusher implements the BytePusher virtual machine on top of the
// memory, keyboard and timer components shared with the CHIP-8 core.
package bytepusher

import (
	"fmt"
	"os"
	"time"

	"goemu/pkg/keyboard"
	"goemu/pkg/memory"
	"goemu/pkg/timer"

	"github.com/retroenv/retrogolib/log"
)

const (
	// MemorySize is 16 MiB plus padding for the last instruction's operands.
	MemorySize = 0x1000008

	Width  = 256
	Height = 256

	FrameRate = 60

	// SamplesPerFrame is the size of the audio page, in signed 8-bit samples.
	SamplesPerFrame = 256

	// maxFramesPerUpdate bounds the catch-up after a long host stall.
	maxFramesPerUpdate = 4
)

var ErrInvalidKey = keyboard.ErrInvalidKey

// AudioSink receives the samples of every executed frame.
type AudioSink interface {
	WriteSamples(samples []int8) error
}

// Emulator runs BytePusher programs at a fixed frame rate.
type Emulator struct {
	logger *log.Logger
	sink   AudioSink

	memory   *memory.Memory
	keyboard *keyboard.Keyboard
	cadence  *timer.Cadence
	cpu      CPU

	samples [SamplesPerFrame]int8
	frames  uint64
	changed bool
	fault   error
}

// Option configures an Emulator.
type Option func(*Emulator)

func WithLogger(logger *log.Logger) Option {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithAudioSink forwards each frame's audio page to sink.
func WithAudioSink(sink AudioSink) Option {
	return func(e *Emulator) {
		e.sink = sink
	}
}

// New creates an emulator with zeroed memory.
func New(opts ...Option) (*Emulator, error) {
	mem, err := memory.New(MemorySize, 0)
	if err != nil {
		return nil, err
	}

	e := &Emulator{
		memory:   mem,
		keyboard: keyboard.New(),
		cadence:  timer.NewCadence(FrameRate),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		cfg := log.DefaultConfig()
		cfg.Level = log.ErrorLevel
		e.logger = log.NewWithConfig(cfg)
	}

	e.reset()
	return e, nil
}

func (e *Emulator) reset() {
	e.memory.Reset()
	e.keyboard.Reset()
	e.cadence.Restore(0)
	e.cpu = CPU{}
	e.samples = [SamplesPerFrame]int8{}
	e.frames = 0
	e.changed = true
	e.fault = nil
}

// Load resets the machine and copies rom to address 0.
func (e *Emulator) Load(rom []byte) error {
	e.reset()
	if err := e.memory.LoadROM(rom); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	e.logger.Debug("Program loaded", log.Int("size", len(rom)))
	return nil
}

// LoadFile reads a program from path and loads it.
func (e *Emulator) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading rom: %w", err)
	}
	return e.Load(data)
}

// Update runs every frame that became due during delta. A fault halts the
// machine and is returned once; afterwards Update does nothing.
func (e *Emulator) Update(delta time.Duration) error {
	if e.fault != nil {
		return nil
	}

	e.cadence.Update(delta)
	frames := e.cadence.ElapsedPeriods()
	e.cadence.Reset()
	if frames > maxFramesPerUpdate {
		e.logger.Debug("Dropping frames", log.Int("due", frames))
		frames = maxFramesPerUpdate
	}

	for range frames {
		if err := e.frame(); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emulator) frame() error {
	if err := e.cpu.Frame(e.memory, e.keyboard.State()); err != nil {
		e.fault = err
		e.logger.Error("Machine halted", log.Err(err))
		return err
	}
	e.frames++
	e.changed = true

	if err := e.captureSamples(); err != nil {
		e.fault = err
		e.logger.Error("Machine halted", log.Err(err))
		return err
	}
	if e.sink == nil {
		return nil
	}
	if err := e.sink.WriteSamples(e.samples[:]); err != nil {
		return fmt.Errorf("audio sink: %w", err)
	}
	return nil
}

func (e *Emulator) captureSamples() error {
	page, err := e.page(audioAddr, 2)
	if err != nil {
		return err
	}
	data, err := e.memory.Slice(page, SamplesPerFrame)
	if err != nil {
		return err
	}
	for i, b := range data {
		e.samples[i] = int8(b)
	}
	return nil
}

// page reads an n-byte page number at addr and returns its base address.
func (e *Emulator) page(addr uint32, n int) (uint32, error) {
	var base uint32
	for i := range n {
		b, err := e.memory.ReadByte(addr + uint32(i))
		if err != nil {
			return 0, err
		}
		base = base<<8 | uint32(b)
	}
	return base << (8 * (3 - n)), nil
}

func (e *Emulator) Press(key uint8) error {
	if err := keyboard.Check(key); err != nil {
		return err
	}
	e.keyboard.Press(key)
	return nil
}

func (e *Emulator) Release(key uint8) error {
	if err := keyboard.Check(key); err != nil {
		return err
	}
	e.keyboard.Release(key)
	return nil
}

// IsRunning reports whether the machine has not faulted.
func (e *Emulator) IsRunning() bool {
	return e.fault == nil
}

// Fault returns the error that halted the machine, or nil.
func (e *Emulator) Fault() error {
	return e.fault
}

func (e *Emulator) Width() int {
	return Width
}

func (e *Emulator) Height() int {
	return Height
}

// Frames returns the number of frames executed since the last Load.
func (e *Emulator) Frames() uint64 {
	return e.frames
}

// Changed reports whether a frame ran since the renderer last consumed one.
func (e *Emulator) Changed() bool {
	return e.changed
}

func (e *Emulator) ResetChanged() {
	e.changed = false
}

// Samples returns the audio page captured after the last frame.
func (e *Emulator) Samples() []int8 {
	out := make([]int8, SamplesPerFrame)
	copy(out, e.samples[:])
	return out
}

// Memory returns a read-only view of the machine memory.
func (e *Emulator) Memory() []byte {
	return e.memory.Bytes()
}
