// Package keyboard implements the 16-key hexadecimal keypad.
package keyboard

import (
	"errors"
	"fmt"
)

// KeyCount is the number of keys on the keypad.
const KeyCount = 16

// ErrInvalidKey is returned by Check for ids outside 0-F.
var ErrInvalidKey = errors.New("invalid key")

// Check validates a key id coming from the host.
func Check(id uint8) error {
	if id >= KeyCount {
		return fmt.Errorf("%w: %d", ErrInvalidKey, id)
	}
	return nil
}

// Keyboard holds the pressed state of each key as a bitmask and a latch
// used by the key-wait instruction to resume across ticks. Key ids are not
// validated here; callers reject ids >= KeyCount.
type Keyboard struct {
	pressed uint16
	halted  bool
}

// New returns a keyboard with no key pressed.
func New() *Keyboard {
	return &Keyboard{}
}

// Press marks key id as held down.
func (k *Keyboard) Press(id uint8) {
	k.pressed |= 1 << id
}

// Release marks key id as released.
func (k *Keyboard) Release(id uint8) {
	k.pressed &^= 1 << id
}

// IsPressed reports whether key id is held down.
func (k *Keyboard) IsPressed(id uint8) bool {
	return k.pressed&(1<<id) != 0
}

// State returns the pressed bitmask, bit n set for key n.
func (k *Keyboard) State() uint16 {
	return k.pressed
}

// Halt sets the key-wait latch.
func (k *Keyboard) Halt() {
	k.halted = true
}

// Resume clears the key-wait latch.
func (k *Keyboard) Resume() {
	k.halted = false
}

// Halted reports whether the key-wait latch is set.
func (k *Keyboard) Halted() bool {
	return k.halted
}

// Restore sets the pressed bitmask and latch, used when loading a save state.
func (k *Keyboard) Restore(pressed uint16, halted bool) {
	k.pressed = pressed
	k.halted = halted
}

// Reset releases every key and clears the latch.
func (k *Keyboard) Reset() {
	k.pressed = 0
	k.halted = false
}
