// Package chip8 implements a CHIP-8 virtual machine driven by a wall clock
// delta supplied by the host once per frame.
package chip8

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"goemu/pkg/display"
	"goemu/pkg/keyboard"
	"goemu/pkg/memory"
	"goemu/pkg/timer"

	"github.com/retroenv/retrogolib/log"
)

// ErrInvalidKey is returned for key ids outside 0-F.
var ErrInvalidKey = keyboard.ErrInvalidKey

// Emulator owns every component of the machine and lends them to the CPU
// on each Update.
type Emulator struct {
	cfg    Config
	logger *log.Logger

	memory   *memory.Memory
	display  *display.Display
	keyboard *keyboard.Keyboard
	delay    *timer.Countdown
	sound    *timer.Countdown
	cpu      *CPU
}

// Option configures an Emulator.
type Option func(*Emulator)

// WithLogger sets the logger used for state transitions.
func WithLogger(logger *log.Logger) Option {
	return func(e *Emulator) {
		e.logger = logger
	}
}

// WithRand replaces the random source used by CXKK.
func WithRand(rng *rand.Rand) Option {
	return func(e *Emulator) {
		e.cpu.rng = rng
	}
}

// WithTracer installs an instruction tracer.
func WithTracer(fn Tracer) Option {
	return func(e *Emulator) {
		e.cpu.tracer = fn
	}
}

// New creates an emulator with the font loaded and no program.
func New(cfg Config, opts ...Option) (*Emulator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	mem, err := memory.New(cfg.MemorySize, cfg.LoadAddress)
	if err != nil {
		return nil, err
	}
	disp, err := display.New(cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	e := &Emulator{
		cfg:      cfg,
		memory:   mem,
		display:  disp,
		keyboard: keyboard.New(),
		delay:    timer.NewCountdown(cfg.TimerRate),
		sound:    timer.NewCountdown(cfg.TimerRate),
		cpu:      NewCPU(cfg, rand.New(rand.NewPCG(seed, seed>>1|1))),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		lcfg := log.DefaultConfig()
		lcfg.Level = log.ErrorLevel
		e.logger = log.NewWithConfig(lcfg)
	}

	if err := e.reset(); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *Emulator) reset() error {
	e.memory.Reset()
	if err := e.memory.LoadAt(e.cfg.FontAddress, font[:]); err != nil {
		return fmt.Errorf("loading font: %w", err)
	}
	e.display.Clear()
	e.display.MarkChanged()
	e.keyboard.Reset()
	e.delay.Restore(0, 0)
	e.sound.Restore(0, 0)
	e.cpu.Reset(uint16(e.cfg.LoadAddress))
	return nil
}

func (e *Emulator) bus() *Bus {
	return &Bus{
		Memory:   e.memory,
		Display:  e.display,
		Keyboard: e.keyboard,
		Delay:    e.delay,
		Sound:    e.sound,
	}
}

// Load resets the machine and copies rom to the load address. On error the
// machine is left reset and Load may be retried with another program.
func (e *Emulator) Load(rom []byte) error {
	if err := e.reset(); err != nil {
		return err
	}
	if err := e.memory.LoadROM(rom); err != nil {
		return fmt.Errorf("loading rom: %w", err)
	}

	e.logger.Debug("Program loaded",
		log.Int("size", len(rom)),
		log.Hex("address", e.cfg.LoadAddress))
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

// Update advances the timers and runs the CPU for delta. Once the machine
// has halted it does nothing. A *Fault is returned on the call in which the
// machine faults.
func (e *Emulator) Update(delta time.Duration) error {
	if !e.cpu.Running() {
		return nil
	}

	e.delay.Update(delta)
	e.sound.Update(delta)

	err := e.cpu.Update(delta, e.bus())
	switch {
	case err != nil:
		var fault *Fault
		if errors.As(err, &fault) {
			e.logger.Error("Machine halted",
				log.Hex("pc", fault.PC),
				log.Hex("opcode", fault.Opcode),
				log.Err(fault.Err))
		}
		return err
	case e.cpu.State() == HaltedOnInfiniteLoop:
		e.logger.Warn("Infinite loop detected, halting",
			log.Hex("pc", e.cpu.PC()))
	}
	return nil
}

// Press marks key as held down.
func (e *Emulator) Press(key uint8) error {
	if err := keyboard.Check(key); err != nil {
		return err
	}
	e.keyboard.Press(key)
	return nil
}

// Release marks key as released.
func (e *Emulator) Release(key uint8) error {
	if err := keyboard.Check(key); err != nil {
		return err
	}
	e.keyboard.Release(key)
	return nil
}

// IsRunning reports whether the machine has not halted.
func (e *Emulator) IsRunning() bool {
	return e.cpu.Running()
}

func (e *Emulator) State() State {
	return e.cpu.State()
}

// Fault returns the fault that halted the machine, or nil.
func (e *Emulator) Fault() *Fault {
	return e.cpu.Fault()
}

// CPU exposes the processor for inspection.
func (e *Emulator) CPU() *CPU {
	return e.cpu
}

// Config returns the config the emulator was created with.
func (e *Emulator) Config() Config {
	return e.cfg
}

func (e *Emulator) Width() int {
	return e.display.Width()
}

func (e *Emulator) Height() int {
	return e.display.Height()
}

// Pixel reports whether the pixel at (x, y) is lit.
func (e *Emulator) Pixel(x, y int) bool {
	return e.display.Pixel(x, y)
}

// Changed reports whether the frame needs redrawing.
func (e *Emulator) Changed() bool {
	return e.display.Changed()
}

// ResetChanged must be called by the renderer after it consumed a frame.
func (e *Emulator) ResetChanged() {
	e.display.ResetChanged()
}

// SoundTimer returns the sound timer; a non-zero value means the buzzer is on.
func (e *Emulator) SoundTimer() uint8 {
	return e.sound.Get()
}

func (e *Emulator) DelayTimer() uint8 {
	return e.delay.Get()
}

// Memory returns a read-only view of the machine memory.
func (e *Emulator) Memory() []byte {
	return e.memory.Bytes()
}
