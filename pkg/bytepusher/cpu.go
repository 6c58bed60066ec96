package bytepusher

import (
	"fmt"

	"goemu/pkg/memory"
)

const (
	// StepsPerFrame is the number of copy-and-jump instructions per frame.
	StepsPerFrame = 65536

	keysAddr     = 0
	pcAddr       = 2
	displayAddr  = 5
	audioAddr    = 6
	instructSize = 3
)

// CPU is the one-instruction processor: copy byte [A] to [B], jump to C.
type CPU struct {
	pc uint32
}

// PC returns the program counter left by the last frame.
func (c *CPU) PC() uint32 {
	return c.pc
}

// Frame publishes the key bitmap and runs one frame of instructions.
func (c *CPU) Frame(mem *memory.Memory, keys uint16) error {
	if err := mem.WriteByte(keysAddr, byte(keys>>8)); err != nil {
		return err
	}
	if err := mem.WriteByte(keysAddr+1, byte(keys)); err != nil {
		return err
	}

	pc, err := mem.ReadTriple(pcAddr)
	if err != nil {
		return err
	}

	for range StepsPerFrame {
		if err := c.step(mem, pc); err != nil {
			return fmt.Errorf("pc 0x%06X: %w", pc, err)
		}
		pc = c.pc
	}
	return nil
}

func (c *CPU) step(mem *memory.Memory, pc uint32) error {
	src, err := mem.ReadTriple(pc)
	if err != nil {
		return err
	}
	dst, err := mem.ReadTriple(pc + instructSize)
	if err != nil {
		return err
	}
	next, err := mem.ReadTriple(pc + 2*instructSize)
	if err != nil {
		return err
	}

	val, err := mem.ReadByte(src)
	if err != nil {
		return err
	}
	if err := mem.WriteByte(dst, val); err != nil {
		return err
	}
	c.pc = next
	return nil
}
