package chip8

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"goemu/pkg/display"
	"goemu/pkg/keyboard"
	"goemu/pkg/memory"
	"goemu/pkg/timer"
)

const stackSize = 16

var (
	ErrStackOverflow  = errors.New("stack overflow")
	ErrStackUnderflow = errors.New("stack underflow")
)

// State is the run state of the CPU. Both halted states are terminal.
type State uint8

const (
	Running State = iota
	HaltedOnInfiniteLoop
	HaltedOnFault
)

func (s State) String() string {
	switch s {
	case Running:
		return "running"
	case HaltedOnInfiniteLoop:
		return "halted on infinite loop"
	case HaltedOnFault:
		return "halted on fault"
	}
	return fmt.Sprintf("State(%d)", uint8(s))
}

// Fault describes the instruction that stopped the machine. It unwraps to
// one of ErrUnknownOpcode, ErrStackOverflow, ErrStackUnderflow or
// memory.ErrOutOfBounds.
type Fault struct {
	PC     uint16
	Opcode uint16
	Err    error
}

func (f *Fault) Error() string {
	return fmt.Sprintf("fault at 0x%04X (opcode %04X): %v", f.PC, f.Opcode, f.Err)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

// Bus lends the machine components to the CPU for the duration of one call.
// The CPU keeps no reference to any of them after returning.
type Bus struct {
	Memory   *memory.Memory
	Display  *display.Display
	Keyboard *keyboard.Keyboard
	Delay    *timer.Countdown
	Sound    *timer.Countdown
}

// Tracer is called with the address and decoded form of every instruction
// before it executes.
type Tracer func(pc uint16, in Instruction)

// CPU holds the registers, the call stack and the two timing cadences.
type CPU struct {
	pc    uint16
	index uint16
	v     [16]uint8
	stack [stackSize]uint16
	sp    uint8

	cadence *timer.Cadence
	vsync   *timer.Countdown

	state State
	fault *Fault

	shift     ShiftQuirk
	loadStore LoadStoreQuirk
	fontAddr  uint16

	rng    *rand.Rand
	tracer Tracer
}

// NewCPU creates a CPU for cfg. The config is expected to be validated.
func NewCPU(cfg Config, rng *rand.Rand) *CPU {
	c := &CPU{
		cadence:   timer.NewCadence(cfg.InstructionRate),
		vsync:     timer.NewCountdown(cfg.VsyncRate),
		shift:     cfg.Shift,
		loadStore: cfg.LoadStore,
		fontAddr:  uint16(cfg.FontAddress),
		rng:       rng,
	}
	c.Reset(uint16(cfg.LoadAddress))
	return c
}

// Reset clears every register and sets the program counter to pc.
func (c *CPU) Reset(pc uint16) {
	c.pc = pc
	c.index = 0
	c.v = [16]uint8{}
	c.stack = [stackSize]uint16{}
	c.sp = 0
	c.cadence.Restore(0)
	c.vsync.Restore(0, 0)
	c.state = Running
	c.fault = nil
}

// SetTracer installs fn as the instruction tracer. Nil disables tracing.
func (c *CPU) SetTracer(fn Tracer) {
	c.tracer = fn
}

// PC returns the program counter.
func (c *CPU) PC() uint16 {
	return c.pc
}

// Index returns the I register.
func (c *CPU) Index() uint16 {
	return c.index
}

// Register returns Vx.
func (c *CPU) Register(x uint8) uint8 {
	return c.v[x&0xF]
}

// StackDepth returns the number of return addresses on the stack.
func (c *CPU) StackDepth() int {
	return int(c.sp)
}

func (c *CPU) State() State {
	return c.state
}

func (c *CPU) Running() bool {
	return c.state == Running
}

// Fault returns the fault that halted the CPU, or nil.
func (c *CPU) Fault() *Fault {
	return c.fault
}

// Update advances both cadences by delta and executes one instruction per
// elapsed instruction period. The batch ends early when the machine halts
// or an instruction has to wait for vsync or a key. The returned error is
// the *Fault of the instruction that halted the machine, if any.
func (c *CPU) Update(delta time.Duration, bus *Bus) error {
	if c.state != Running {
		return nil
	}

	c.vsync.Update(delta)
	c.cadence.Update(delta)
	n := c.cadence.ElapsedPeriods()
	c.cadence.Reset()

	for range n {
		wait, err := c.step(bus)
		if err != nil {
			return err
		}
		if wait || c.state != Running {
			break
		}
	}
	return nil
}

// Step executes a single instruction without consulting the instruction
// cadence.
func (c *CPU) Step(bus *Bus) error {
	if c.state != Running {
		return nil
	}
	_, err := c.step(bus)
	return err
}

func (c *CPU) step(bus *Bus) (bool, error) {
	pc := c.pc
	word, err := bus.Memory.ReadWord(uint32(pc))
	if err != nil {
		return false, c.halt(pc, 0, err)
	}
	c.pc += 2

	in, err := Decode(word)
	if err != nil {
		return false, c.halt(pc, word, err)
	}
	if c.tracer != nil {
		c.tracer(pc, in)
	}

	wait, err := c.execute(in, pc, bus)
	if err != nil {
		return false, c.halt(pc, word, err)
	}
	return wait, nil
}

func (c *CPU) halt(pc, opcode uint16, err error) error {
	c.state = HaltedOnFault
	c.fault = &Fault{PC: pc, Opcode: opcode, Err: err}
	return c.fault
}

func (c *CPU) skipIf(cond bool) {
	if cond {
		c.pc += 2
	}
}

// execute runs one decoded instruction located at pc. It reports whether
// the instruction is waiting and control should return to the host.
func (c *CPU) execute(in Instruction, pc uint16, bus *Bus) (bool, error) {
	vx, vy := c.v[in.X], c.v[in.Y]

	switch in.Op {
	case OpCLS:
		bus.Display.Clear()
		bus.Display.MarkChanged()

	case OpRET:
		if c.sp == 0 {
			return false, ErrStackUnderflow
		}
		c.sp--
		c.pc = c.stack[c.sp]

	case OpJP:
		c.pc = in.NNN
		if in.NNN == pc {
			c.state = HaltedOnInfiniteLoop
			return true, nil
		}

	case OpCALL:
		if c.sp == stackSize {
			return false, ErrStackOverflow
		}
		c.stack[c.sp] = c.pc
		c.sp++
		c.pc = in.NNN

	case OpSEImm:
		c.skipIf(vx == in.KK)
	case OpSNEImm:
		c.skipIf(vx != in.KK)
	case OpSEReg:
		c.skipIf(vx == vy)
	case OpSNEReg:
		c.skipIf(vx != vy)

	case OpLDImm:
		c.v[in.X] = in.KK
	case OpADDImm:
		c.v[in.X] = vx + in.KK
	case OpLDReg:
		c.v[in.X] = vy

	case OpOR:
		c.v[in.X] = vx | vy
		c.v[0xF] = 0
	case OpAND:
		c.v[in.X] = vx & vy
		c.v[0xF] = 0
	case OpXOR:
		c.v[in.X] = vx ^ vy
		c.v[0xF] = 0

	case OpADDReg:
		sum := uint16(vx) + uint16(vy)
		c.v[in.X] = uint8(sum)
		c.v[0xF] = uint8(sum >> 8)
	case OpSUB:
		c.v[in.X] = vx - vy
		c.v[0xF] = flag(vx >= vy)
	case OpSUBN:
		c.v[in.X] = vy - vx
		c.v[0xF] = flag(vy >= vx)

	case OpSHR:
		src := vy
		if c.shift == ShiftInPlace {
			src = vx
		}
		c.v[in.X] = src >> 1
		c.v[0xF] = src & 1
	case OpSHL:
		src := vy
		if c.shift == ShiftInPlace {
			src = vx
		}
		c.v[in.X] = src << 1
		c.v[0xF] = src >> 7

	case OpLDI:
		c.index = in.NNN
	case OpJPV0:
		c.pc = in.NNN + uint16(c.v[0])
	case OpRND:
		c.v[in.X] = uint8(c.rng.UintN(256)) & in.KK

	case OpDRW:
		if c.vsync.Get() != 0 {
			c.pc -= 2
			return true, nil
		}
		if err := c.draw(vx, vy, in.N, bus); err != nil {
			return false, err
		}
		c.vsync.Set(1)

	case OpSKP:
		c.skipIf(bus.Keyboard.IsPressed(vx))
	case OpSKNP:
		c.skipIf(!bus.Keyboard.IsPressed(vx))

	case OpLDVxDT:
		c.v[in.X] = bus.Delay.Get()
	case OpLDVxK:
		return c.waitKey(in.X, bus.Keyboard), nil
	case OpLDDTVx:
		bus.Delay.Set(vx)
	case OpLDSTVx:
		bus.Sound.Set(vx)

	case OpADDI:
		c.index += uint16(vx)
	case OpLDF:
		c.index = c.fontAddr + uint16(vx)*glyphSize
	case OpLDB:
		digits := [3]uint8{vx / 100, vx / 10 % 10, vx % 10}
		for i, d := range digits {
			if err := bus.Memory.WriteByte(uint32(c.index)+uint32(i), d); err != nil {
				return false, err
			}
		}

	case OpLDIVx:
		for i := uint8(0); i <= in.X; i++ {
			if err := bus.Memory.WriteByte(uint32(c.index)+uint32(i), c.v[i]); err != nil {
				return false, err
			}
		}
		if c.loadStore == IndexIncrement {
			c.index += uint16(in.X) + 1
		}
	case OpLDVxI:
		for i := uint8(0); i <= in.X; i++ {
			b, err := bus.Memory.ReadByte(uint32(c.index) + uint32(i))
			if err != nil {
				return false, err
			}
			c.v[i] = b
		}
		if c.loadStore == IndexIncrement {
			c.index += uint16(in.X) + 1
		}

	default:
		return false, fmt.Errorf("%w: %04X", ErrUnknownOpcode, in.Raw)
	}
	return false, nil
}

// draw XORs an n-row sprite read from I onto the display. The origin wraps
// around the screen, rows and columns past the edges are clipped.
func (c *CPU) draw(vx, vy, n uint8, bus *Bus) error {
	d := bus.Display
	x0 := int(vx) % d.Width()
	y0 := int(vy) % d.Height()

	collision := false
	for row := range int(n) {
		y := y0 + row
		if y >= d.Height() {
			break
		}
		b, err := bus.Memory.ReadByte(uint32(c.index) + uint32(row))
		if err != nil {
			return err
		}
		for col := range 8 {
			x := x0 + col
			if x >= d.Width() {
				break
			}
			if d.SetPixel(x, y, b&(0x80>>col) != 0) {
				collision = true
			}
		}
	}

	c.v[0xF] = flag(collision)
	d.MarkChanged()
	return nil
}

// waitKey implements FX0A as press then release. The first pressed key is
// latched into Vx; the instruction repeats until that key is released.
func (c *CPU) waitKey(x uint8, kb *keyboard.Keyboard) bool {
	if kb.Halted() {
		if kb.IsPressed(c.v[x]) {
			c.pc -= 2
			return true
		}
		kb.Resume()
		return false
	}

	for key := range uint8(keyboard.KeyCount) {
		if kb.IsPressed(key) {
			c.v[x] = key
			kb.Halt()
			break
		}
	}
	c.pc -= 2
	return true
}

func flag(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}
