// Package machine puts the emulated machines behind one interface for the
// frontends.
package machine

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"goemu/pkg/bytepusher"
	"goemu/pkg/chip8"
	"goemu/pkg/config"

	"github.com/retroenv/retrogolib/log"
)

// Machine is what a frontend drives once per host frame.
type Machine interface {
	Name() string
	Load(rom []byte) error
	LoadFile(path string) error
	Update(delta time.Duration) error
	Press(key uint8) error
	Release(key uint8) error
	IsRunning() bool

	Width() int
	Height() int
	Image() *image.RGBA
	Changed() bool
	ResetChanged()

	// Beeping reports whether the machine wants a tone played.
	Beeping() bool

	Snapshot() ([]byte, error)
	Restore(data []byte) error
}

type options struct {
	logger *log.Logger
	sink   bytepusher.AudioSink
	tracer chip8.Tracer
}

type Option func(*options)

func WithLogger(logger *log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithAudioSink receives BytePusher audio frames. CHIP-8 ignores it.
func WithAudioSink(sink bytepusher.AudioSink) Option {
	return func(o *options) {
		o.sink = sink
	}
}

// WithTracer traces CHIP-8 instructions. BytePusher ignores it.
func WithTracer(fn chip8.Tracer) Option {
	return func(o *options) {
		o.tracer = fn
	}
}

// New creates the machine selected by the config file.
func New(f config.File, opts ...Option) (Machine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = config.CreateLogger(false, true)
	}

	switch f.Machine {
	case config.MachineChip8:
		cfg, err := f.Chip8()
		if err != nil {
			return nil, err
		}
		chipOpts := []chip8.Option{chip8.WithLogger(o.logger)}
		if o.tracer != nil {
			chipOpts = append(chipOpts, chip8.WithTracer(o.tracer))
		}
		emu, err := chip8.New(cfg, chipOpts...)
		if err != nil {
			return nil, err
		}
		return &Chip8{
			Emulator: emu,
			fg:       f.Foreground.RGBA(),
			bg:       f.Background.RGBA(),
		}, nil

	case config.MachineBytePusher:
		bpOpts := []bytepusher.Option{bytepusher.WithLogger(o.logger)}
		if o.sink != nil {
			bpOpts = append(bpOpts, bytepusher.WithAudioSink(o.sink))
		}
		emu, err := bytepusher.New(bpOpts...)
		if err != nil {
			return nil, err
		}
		return &BytePusher{Emulator: emu}, nil
	}
	return nil, fmt.Errorf("%w: unknown machine %q", config.ErrInvalid, f.Machine)
}

// Chip8 renders the monochrome display with the configured colours.
type Chip8 struct {
	*chip8.Emulator
	fg, bg color.RGBA
}

func (c *Chip8) Name() string {
	return config.MachineChip8
}

func (c *Chip8) Image() *image.RGBA {
	return c.Emulator.Image(c.fg, c.bg)
}

func (c *Chip8) Beeping() bool {
	return c.SoundTimer() > 0
}

type BytePusher struct {
	*bytepusher.Emulator
}

func (b *BytePusher) Name() string {
	return config.MachineBytePusher
}

// Beeping reports whether the last audio frame was not silent.
func (b *BytePusher) Beeping() bool {
	for _, s := range b.Samples() {
		if s != 0 {
			return true
		}
	}
	return false
}
