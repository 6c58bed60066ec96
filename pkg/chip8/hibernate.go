package chip8

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"goemu/pkg/utils"

	"github.com/retroenv/retrogolib/log"
)

// ErrBadSnapshot is returned when a save state does not fit the machine.
var ErrBadSnapshot = errors.New("bad snapshot")

// machineState is the JSON-serialisable part of a save state.
type machineState struct {
	PC         uint16     `json:"pc"`
	Index      uint16     `json:"index"`
	Registers  [16]uint8  `json:"registers"`
	Stack      [16]uint16 `json:"stack"`
	SP         uint8      `json:"sp"`
	State      State      `json:"state"`
	Delay      uint8      `json:"delay"`
	Sound      uint8      `json:"sound"`
	Vsync      uint8      `json:"vsync"`
	Keys       uint16     `json:"keys"`
	KeyLatched bool       `json:"key_latched"`
	Shift      string     `json:"shift_quirk"`
	LoadStore  string     `json:"load_store_quirk"`
	MemorySize uint32     `json:"memory_size"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Saved      time.Time  `json:"saved"`
}

// Snapshot serialises the complete machine into an in-memory ZIP archive.
// Timer phase is not saved; restored timers start a fresh period. A
// machine halted on a fault cannot be saved.
func (e *Emulator) Snapshot() ([]byte, error) {
	c := e.cpu
	if c.state == HaltedOnFault {
		return nil, fmt.Errorf("snapshot of faulted machine: %w", c.fault)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		PC:         c.pc,
		Index:      c.index,
		Registers:  c.v,
		Stack:      c.stack,
		SP:         c.sp,
		State:      c.state,
		Delay:      e.delay.Get(),
		Sound:      e.sound.Get(),
		Vsync:      c.vsync.Get(),
		Keys:       e.keyboard.State(),
		KeyLatched: e.keyboard.Halted(),
		Shift:      c.shift.String(),
		LoadStore:  c.loadStore.String(),
		MemorySize: e.memory.Size(),
		Width:      e.display.Width(),
		Height:     e.display.Height(),
		Saved:      time.Now().UTC(),
	}

	jsonData, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal machine_state: %w", err)
	}
	if err := utils.WriteZipEntry(zw, "machine_state.json", jsonData); err != nil {
		return nil, err
	}
	if err := utils.WriteZipEntry(zw, "memory.bin", e.memory.Bytes()); err != nil {
		return nil, err
	}
	if err := utils.WriteZipEntry(zw, "display.bin", e.display.Bits()); err != nil {
		return nil, err
	}

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore applies a save state produced by Snapshot. The archive must come
// from a machine with the same memory size and display dimensions.
func (e *Emulator) Restore(data []byte) error {
	fileMap, err := utils.OpenZip(data)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	jsonData, err := utils.ReadZipEntry(fileMap, "machine_state.json")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	var state machineState
	if err := json.Unmarshal(jsonData, &state); err != nil {
		return fmt.Errorf("unmarshal machine_state: %w", err)
	}

	switch {
	case state.MemorySize != e.memory.Size():
		return fmt.Errorf("%w: memory size 0x%X, machine has 0x%X", ErrBadSnapshot, state.MemorySize, e.memory.Size())
	case state.Width != e.display.Width() || state.Height != e.display.Height():
		return fmt.Errorf("%w: display %dx%d", ErrBadSnapshot, state.Width, state.Height)
	case state.SP > stackSize:
		return fmt.Errorf("%w: stack pointer %d", ErrBadSnapshot, state.SP)
	case state.State >= HaltedOnFault:
		return fmt.Errorf("%w: %s", ErrBadSnapshot, state.State)
	}
	shift, err := ParseShiftQuirk(state.Shift)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	loadStore, err := ParseLoadStoreQuirk(state.LoadStore)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	memData, err := utils.ReadZipEntry(fileMap, "memory.bin")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	dispData, err := utils.ReadZipEntry(fileMap, "display.bin")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	// Nothing is modified until every part has been checked.
	switch {
	case uint64(len(memData)) != uint64(e.memory.Size()):
		return fmt.Errorf("%w: memory image is %d bytes, expected %d", ErrBadSnapshot, len(memData), e.memory.Size())
	case len(dispData) != len(e.display.Bits()):
		return fmt.Errorf("%w: display image is %d bytes, expected %d", ErrBadSnapshot, len(dispData), len(e.display.Bits()))
	}
	if err := e.memory.Restore(memData); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if err := e.display.Restore(dispData); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	c := e.cpu
	c.pc = state.PC
	c.index = state.Index
	c.v = state.Registers
	c.stack = state.Stack
	c.sp = state.SP
	c.state = state.State
	c.fault = nil
	c.shift = shift
	c.loadStore = loadStore
	c.cadence.Restore(0)
	c.vsync.Restore(state.Vsync, 0)
	e.delay.Restore(state.Delay, 0)
	e.sound.Restore(state.Sound, 0)
	e.keyboard.Restore(state.Keys, state.KeyLatched)

	e.logger.Debug("Snapshot restored",
		log.Hex("pc", state.PC),
		log.String("state", state.State.String()))
	return nil
}

// SnapshotToFile writes a save state to path.
func (e *Emulator) SnapshotToFile(path string) error {
	data, err := e.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// RestoreFromFile reads a save state from path and applies it.
func (e *Emulator) RestoreFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return e.Restore(data)
}
