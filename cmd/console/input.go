package main

import (
	"io"
	"time"

	"github.com/retroenv/retrogolib/log"

	"goemu/pkg/config"
	"goemu/pkg/machine"
)

const (
	keyEscape = 0x1b
	keyCtrlC  = 0x03

	// holdTime keeps a key down after its last repeat; terminals do not
	// report releases.
	holdTime = 150 * time.Millisecond
)

// readInput forwards stdin bytes until the reader fails.
func readInput(r io.Reader, out chan<- byte) {
	defer close(out)
	buf := make([]byte, 16)
	for {
		n, err := r.Read(buf)
		for _, b := range buf[:n] {
			out <- b
		}
		if err != nil {
			return
		}
	}
}

// keypad turns terminal key repeats into press and release events.
type keypad struct {
	cfg      config.File
	m        machine.Machine
	logger   *log.Logger
	deadline map[uint8]time.Time
}

func newKeypad(cfg config.File, m machine.Machine, logger *log.Logger) *keypad {
	return &keypad{
		cfg:      cfg,
		m:        m,
		logger:   logger,
		deadline: make(map[uint8]time.Time),
	}
}

// setKey forwards a press or release to the machine and reports whether it
// was accepted.
func (k *keypad) setKey(key uint8, down bool) bool {
	var err error
	if down {
		err = k.m.Press(key)
	} else {
		err = k.m.Release(key)
	}
	if err != nil {
		k.logger.Debug("Key ignored", log.Int("key", int(key)), log.Err(err))
		return false
	}
	return true
}

// input handles one byte and reports whether the user asked to quit.
func (k *keypad) input(b byte, now time.Time) bool {
	if b == keyEscape || b == keyCtrlC {
		return true
	}
	key, ok := k.cfg.KeyFor(rune(b))
	if !ok {
		return false
	}
	if _, held := k.deadline[key]; !held {
		if !k.setKey(key, true) {
			return false
		}
	}
	k.deadline[key] = now.Add(holdTime)
	return false
}

// expire releases keys whose hold time ran out.
func (k *keypad) expire(now time.Time) {
	for key, deadline := range k.deadline {
		if now.Before(deadline) {
			continue
		}
		k.setKey(key, false)
		delete(k.deadline, key)
	}
}
