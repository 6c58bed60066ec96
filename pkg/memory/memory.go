// Package memory implements the flat, bounds-checked byte memory used by the
// emulated machines.
package memory

import (
	"errors"
	"fmt"
)

var (
	ErrOutOfBounds = errors.New("memory access out of bounds")
	ErrRomTooLarge = errors.New("rom too large")
)

// Memory is a byte array of a fixed size. ROMs are copied in at the start
// offset. Every access is checked against the size and reports
// ErrOutOfBounds instead of panicking.
type Memory struct {
	start uint32
	size  uint32
	bytes []byte
}

// New creates a zeroed memory of size bytes with ROMs loaded at start.
func New(size, start uint32) (*Memory, error) {
	if size == 0 {
		return nil, fmt.Errorf("invalid memory size %d", size)
	}
	if start >= size {
		return nil, fmt.Errorf("load address 0x%04X outside memory of %d bytes", start, size)
	}
	return &Memory{
		start: start,
		size:  size,
		bytes: make([]byte, size),
	}, nil
}

// Start returns the ROM load offset.
func (m *Memory) Start() uint32 {
	return m.start
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return m.size
}

// ReadByte reads the byte at addr.
func (m *Memory) ReadByte(addr uint32) (byte, error) {
	if addr >= m.size {
		return 0, fmt.Errorf("%w: read byte 0x%04X", ErrOutOfBounds, addr)
	}
	return m.bytes[addr], nil
}

// WriteByte writes the byte at addr.
func (m *Memory) WriteByte(addr uint32, val byte) error {
	if addr >= m.size {
		return fmt.Errorf("%w: write byte 0x%04X", ErrOutOfBounds, addr)
	}
	m.bytes[addr] = val
	return nil
}

// ReadWord reads a big-endian 16-bit value from addr and addr+1.
func (m *Memory) ReadWord(addr uint32) (uint16, error) {
	if addr >= m.size-1 {
		return 0, fmt.Errorf("%w: read word 0x%04X", ErrOutOfBounds, addr)
	}
	return uint16(m.bytes[addr])<<8 | uint16(m.bytes[addr+1]), nil
}

// ReadTriple reads a big-endian 24-bit value from addr to addr+2.
func (m *Memory) ReadTriple(addr uint32) (uint32, error) {
	if m.size < 3 || addr >= m.size-2 {
		return 0, fmt.Errorf("%w: read triple 0x%06X", ErrOutOfBounds, addr)
	}
	return uint32(m.bytes[addr])<<16 | uint32(m.bytes[addr+1])<<8 | uint32(m.bytes[addr+2]), nil
}

// LoadROM copies data into memory at the start offset.
func (m *Memory) LoadROM(data []byte) error {
	if uint64(len(data)) > uint64(m.size-m.start) {
		return fmt.Errorf("%w: %d bytes > %d bytes available", ErrRomTooLarge, len(data), m.size-m.start)
	}
	copy(m.bytes[m.start:], data)
	return nil
}

// LoadAt copies data into memory at addr.
func (m *Memory) LoadAt(addr uint32, data []byte) error {
	if uint64(addr)+uint64(len(data)) > uint64(m.size) {
		return fmt.Errorf("%w: load %d bytes at 0x%04X", ErrOutOfBounds, len(data), addr)
	}
	copy(m.bytes[addr:], data)
	return nil
}

// Slice returns n bytes starting at addr without copying. The returned
// slice must be treated as read-only.
func (m *Memory) Slice(addr, n uint32) ([]byte, error) {
	if uint64(addr)+uint64(n) > uint64(m.size) {
		return nil, fmt.Errorf("%w: slice %d bytes at 0x%04X", ErrOutOfBounds, n, addr)
	}
	return m.bytes[addr : addr+n], nil
}

// Bytes returns the backing array. It must be treated as read-only.
func (m *Memory) Bytes() []byte {
	return m.bytes
}

// Restore replaces the memory contents with data, which must match the
// memory size.
func (m *Memory) Restore(data []byte) error {
	if uint64(len(data)) != uint64(m.size) {
		return fmt.Errorf("memory image is %d bytes, expected %d", len(data), m.size)
	}
	copy(m.bytes, data)
	return nil
}

// Reset zeroes the memory.
func (m *Memory) Reset() {
	clear(m.bytes)
}
