package chip8

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid config")

// ShiftQuirk selects where 8XY6 and 8XYE take their operand from.
type ShiftQuirk uint8

const (
	// ShiftFromY shifts Vy into Vx; VF receives the bit shifted out of Vy.
	ShiftFromY ShiftQuirk = iota
	// ShiftInPlace shifts Vx in place and ignores Vy.
	ShiftInPlace
)

func (q ShiftQuirk) String() string {
	switch q {
	case ShiftFromY:
		return "from_y"
	case ShiftInPlace:
		return "in_place"
	}
	return fmt.Sprintf("ShiftQuirk(%d)", uint8(q))
}

// ParseShiftQuirk parses the names returned by ShiftQuirk.String. An empty
// string selects the default.
func ParseShiftQuirk(s string) (ShiftQuirk, error) {
	switch strings.ToLower(s) {
	case "", "from_y":
		return ShiftFromY, nil
	case "in_place":
		return ShiftInPlace, nil
	}
	return 0, fmt.Errorf("%w: unknown shift quirk %q", ErrInvalidConfig, s)
}

// LoadStoreQuirk selects what FX55 and FX65 do to I.
type LoadStoreQuirk uint8

const (
	// IndexIncrement leaves I pointing past the last byte transferred.
	IndexIncrement LoadStoreQuirk = iota
	// IndexUnchanged leaves I untouched.
	IndexUnchanged
)

func (q LoadStoreQuirk) String() string {
	switch q {
	case IndexIncrement:
		return "increment"
	case IndexUnchanged:
		return "unchanged"
	}
	return fmt.Sprintf("LoadStoreQuirk(%d)", uint8(q))
}

// ParseLoadStoreQuirk parses the names returned by LoadStoreQuirk.String.
// An empty string selects the default.
func ParseLoadStoreQuirk(s string) (LoadStoreQuirk, error) {
	switch strings.ToLower(s) {
	case "", "increment":
		return IndexIncrement, nil
	case "unchanged":
		return IndexUnchanged, nil
	}
	return 0, fmt.Errorf("%w: unknown load/store quirk %q", ErrInvalidConfig, s)
}

// Config is the machine description supplied at construction.
type Config struct {
	InstructionRate float64 // Hz
	VsyncRate       float64 // Hz, gates DXYN
	TimerRate       float64 // Hz, delay and sound timers
	MemorySize      uint32
	LoadAddress     uint32
	FontAddress     uint32
	Width           int
	Height          int
	Shift           ShiftQuirk
	LoadStore       LoadStoreQuirk
	// Seed seeds the CXKK random source. Zero picks a random seed.
	Seed uint64
}

// DefaultConfig returns the classic 4 KiB, 64x32 machine running 1000
// instructions per second.
func DefaultConfig() Config {
	return Config{
		InstructionRate: 1000,
		VsyncRate:       60,
		TimerRate:       60,
		MemorySize:      0x1000,
		LoadAddress:     0x200,
		FontAddress:     0x000,
		Width:           64,
		Height:          32,
		Shift:           ShiftFromY,
		LoadStore:       IndexIncrement,
	}
}

// Validate checks that the config describes a usable machine.
func (c Config) Validate() error {
	switch {
	case c.InstructionRate <= 0:
		return fmt.Errorf("%w: instruction rate %v", ErrInvalidConfig, c.InstructionRate)
	case c.VsyncRate <= 0:
		return fmt.Errorf("%w: vsync rate %v", ErrInvalidConfig, c.VsyncRate)
	case c.TimerRate <= 0:
		return fmt.Errorf("%w: timer rate %v", ErrInvalidConfig, c.TimerRate)
	case c.MemorySize == 0 || c.MemorySize > 0x10000:
		return fmt.Errorf("%w: memory size 0x%X", ErrInvalidConfig, c.MemorySize)
	case c.LoadAddress >= c.MemorySize:
		return fmt.Errorf("%w: load address 0x%X outside memory", ErrInvalidConfig, c.LoadAddress)
	case uint64(c.FontAddress)+uint64(len(font)) > uint64(c.MemorySize):
		return fmt.Errorf("%w: font at 0x%X does not fit", ErrInvalidConfig, c.FontAddress)
	case c.Width <= 0 || c.Height <= 0:
		return fmt.Errorf("%w: display %dx%d", ErrInvalidConfig, c.Width, c.Height)
	case c.Shift > ShiftInPlace:
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.Shift)
	case c.LoadStore > IndexUnchanged:
		return fmt.Errorf("%w: %s", ErrInvalidConfig, c.LoadStore)
	}
	return nil
}
