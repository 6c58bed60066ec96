// Package config handles the JSON configuration file, key bindings and
// logger setup shared by the frontends.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/color"
	"os"
	"unicode"
	"unicode/utf8"

	"goemu/pkg/chip8"
	"goemu/pkg/keyboard"

	"github.com/retroenv/retrogolib/log"
)

const (
	MachineChip8      = "chip8"
	MachineBytePusher = "bytepusher"
)

var ErrInvalid = errors.New("invalid config")

// Color is an RGB triple as written in the config file.
type Color struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBA returns the opaque colour.
func (c Color) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 0xFF}
}

// File is the on-disk configuration. Fields missing from the JSON keep their
// defaults.
type File struct {
	Machine         string  `json:"machine"`
	InstructionRate float64 `json:"instruction_rate"`
	LoadingAddress  uint32  `json:"loading_address"`
	ShiftQuirk      string  `json:"shift_quirk"`
	LoadStoreQuirk  string  `json:"load_store_quirk"`
	Seed            uint64  `json:"seed"`

	Scale      int      `json:"scale"`
	Foreground Color    `json:"foreground"`
	Background Color    `json:"background"`
	Keys       []string `json:"keys"`
}

// DefaultKeys maps the keypad onto the left side of a QWERTY keyboard:
//
//	1 2 3 C      1 2 3 4
//	4 5 6 D  ->  Q W E R
//	7 8 9 E      A S D F
//	A 0 B F      Z X C V
var DefaultKeys = []string{
	"X", "1", "2", "3",
	"Q", "W", "E", "A",
	"S", "D", "Z", "C",
	"4", "R", "F", "V",
}

// Default returns the configuration used when no file is given.
func Default() File {
	def := chip8.DefaultConfig()
	return File{
		Machine:         MachineChip8,
		InstructionRate: def.InstructionRate,
		LoadingAddress:  def.LoadAddress,
		ShiftQuirk:      def.Shift.String(),
		LoadStoreQuirk:  def.LoadStore.String(),
		Scale:           10,
		Foreground:      Color{R: 0xFF, G: 0xFF, B: 0xFF},
		Background:      Color{},
		Keys:            append([]string(nil), DefaultKeys...),
	}
}

// Load reads a config file over the defaults and validates it.
func Load(path string) (File, error) {
	f := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return f, fmt.Errorf("reading config: %w", err)
	}
	return Parse(data)
}

// Parse decodes JSON config data over the defaults and validates it.
func Parse(data []byte) (File, error) {
	f := Default()
	if err := json.Unmarshal(data, &f); err != nil {
		return f, fmt.Errorf("parsing config: %w", err)
	}
	if err := f.Validate(); err != nil {
		return f, err
	}
	return f, nil
}

// Validate checks the fields that do not belong to a machine config.
func (f File) Validate() error {
	switch f.Machine {
	case MachineChip8, MachineBytePusher:
	default:
		return fmt.Errorf("%w: unknown machine %q", ErrInvalid, f.Machine)
	}
	if f.Scale < 1 {
		return fmt.Errorf("%w: scale %d", ErrInvalid, f.Scale)
	}
	if len(f.Keys) != keyboard.KeyCount {
		return fmt.Errorf("%w: %d key bindings, need %d", ErrInvalid, len(f.Keys), keyboard.KeyCount)
	}
	if f.Machine == MachineChip8 {
		if _, err := f.Chip8(); err != nil {
			return err
		}
	}
	return nil
}

// Chip8 builds the machine config from the file.
func (f File) Chip8() (chip8.Config, error) {
	cfg := chip8.DefaultConfig()
	cfg.InstructionRate = f.InstructionRate
	cfg.LoadAddress = f.LoadingAddress
	cfg.Seed = f.Seed

	var err error
	if cfg.Shift, err = chip8.ParseShiftQuirk(f.ShiftQuirk); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if cfg.LoadStore, err = chip8.ParseLoadStoreQuirk(f.LoadStoreQuirk); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return cfg, nil
}

// Bindings returns, for each keypad key, the upper-cased first character of
// its binding. Empty bindings map to 0.
func (f File) Bindings() [keyboard.KeyCount]rune {
	var out [keyboard.KeyCount]rune
	for i, s := range f.Keys {
		if i >= keyboard.KeyCount {
			break
		}
		r, _ := utf8.DecodeRuneInString(s)
		if r == utf8.RuneError {
			continue
		}
		out[i] = unicode.ToUpper(r)
	}
	return out
}

// KeyFor returns the keypad key bound to r.
func (f File) KeyFor(r rune) (uint8, bool) {
	r = unicode.ToUpper(r)
	for i, b := range f.Bindings() {
		if b != 0 && b == r {
			return uint8(i), true
		}
	}
	return 0, false
}

// CreateLogger creates a logger with appropriate settings
func CreateLogger(debug, quiet bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	} else if quiet {
		cfg.Level = log.ErrorLevel
	}
	return log.NewWithConfig(cfg)
}
