// Package timer provides the wall-clock driven counters shared by the
// emulated machines: a Countdown register that decays towards zero at a
// fixed rate and a Cadence that reports how many whole periods have passed.
package timer

import "time"

// period converts a rate in Hz into the length of one tick.
func period(rate float64) time.Duration {
	if rate <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rate)
}

// Countdown is an 8-bit register that is decremented once per period until
// it reaches zero. The CHIP-8 delay and sound timers and the vsync gate are
// all Countdowns.
type Countdown struct {
	accumulator time.Duration
	period      time.Duration
	value       uint8
}

// NewCountdown creates a Countdown ticking at rate Hz with a value of zero.
func NewCountdown(rate float64) *Countdown {
	return &Countdown{
		period: period(rate),
	}
}

// Update advances the timer by delta. The value is decremented once for
// every whole period crossed and never goes below zero.
func (c *Countdown) Update(delta time.Duration) {
	if c.period <= 0 || delta <= 0 {
		return
	}

	c.accumulator += delta
	for c.accumulator >= c.period {
		c.accumulator -= c.period
		if c.value > 0 {
			c.value--
		}
	}
}

// Set writes the register.
func (c *Countdown) Set(value uint8) {
	c.value = value
}

// Get reads the register.
func (c *Countdown) Get() uint8 {
	return c.value
}

// Passed returns the time accumulated towards the next tick.
func (c *Countdown) Passed() time.Duration {
	return c.accumulator
}

// Restore sets both the register and the accumulated time, used when
// loading a save state.
func (c *Countdown) Restore(value uint8, passed time.Duration) {
	c.value = value
	c.accumulator = passed
}

// Cadence counts whole periods of a fixed rate. The owner reads
// ElapsedPeriods, performs that much work and then calls Reset, which keeps
// the fractional remainder so no time is dropped between frames.
type Cadence struct {
	accumulator time.Duration
	period      time.Duration
}

// NewCadence creates a Cadence for rate Hz.
func NewCadence(rate float64) *Cadence {
	return &Cadence{
		period: period(rate),
	}
}

// Update accumulates delta.
func (c *Cadence) Update(delta time.Duration) {
	if delta > 0 {
		c.accumulator += delta
	}
}

// ElapsedPeriods returns the number of whole periods accumulated since the
// last Reset. It can be larger than one after a host hitch.
func (c *Cadence) ElapsedPeriods() int {
	if c.period <= 0 {
		return 0
	}
	return int(c.accumulator / c.period)
}

// Reset removes exactly ElapsedPeriods periods from the accumulator.
func (c *Cadence) Reset() {
	c.accumulator -= time.Duration(c.ElapsedPeriods()) * c.period
}

// Passed returns the accumulated time not yet consumed by Reset.
func (c *Cadence) Passed() time.Duration {
	return c.accumulator
}

// Restore sets the accumulated time, used when loading a save state.
func (c *Cadence) Restore(passed time.Duration) {
	c.accumulator = passed
}
