package bytepusher

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

// ErrBadSnapshot is returned when a save state cannot be applied.
var ErrBadSnapshot = errors.New("bad snapshot")

type machineState struct {
	Frames     uint64    `json:"frames"`
	Keys       uint16    `json:"keys"`
	PC         uint32    `json:"pc"`
	MemorySize uint32    `json:"memory_size"`
	Saved      time.Time `json:"saved"`
}

// Snapshot serialises the machine into an in-memory ZIP archive. Frame
// phase is not saved.
func (e *Emulator) Snapshot() ([]byte, error) {
	if e.fault != nil {
		return nil, fmt.Errorf("snapshot of halted machine: %w", e.fault)
	}

	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	state := machineState{
		Frames:     e.frames,
		Keys:       e.keyboard.State(),
		PC:         e.cpu.pc,
		MemorySize: e.memory.Size(),
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

	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close zip: %w", err)
	}
	return buf.Bytes(), nil
}

// Restore applies a save state produced by Snapshot.
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
	if state.MemorySize != MemorySize {
		return fmt.Errorf("%w: memory size 0x%X", ErrBadSnapshot, state.MemorySize)
	}

	memData, err := utils.ReadZipEntry(fileMap, "memory.bin")
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}
	if err := e.memory.Restore(memData); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	e.cpu.pc = state.PC
	e.frames = state.Frames
	e.keyboard.Restore(state.Keys, false)
	e.cadence.Restore(0)
	e.fault = nil
	e.changed = true
	if err := e.captureSamples(); err != nil {
		return fmt.Errorf("%w: %w", ErrBadSnapshot, err)
	}

	e.logger.Debug("Snapshot restored", log.Int("frames", int(state.Frames)))
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
