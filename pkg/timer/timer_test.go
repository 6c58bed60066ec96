package timer

import (
	"testing"
	"time"

	"github.com/retroenv/retrogolib/assert"
)

const frame = time.Second / 60

func TestCountdownDecaysToZero(t *testing.T) {
	c := NewCountdown(60)
	c.Set(10)

	previous := c.Get()
	var elapsed time.Duration
	for elapsed < time.Second {
		c.Update(frame)
		elapsed += frame

		got := c.Get()
		if got > previous {
			t.Fatalf("value increased from %d to %d", previous, got)
		}
		previous = got
	}

	assert.Equal(t, uint8(0), c.Get())
}

func TestCountdownDecrementsOncePerPeriod(t *testing.T) {
	c := NewCountdown(60)
	c.Set(5)

	c.Update(frame / 2)
	assert.Equal(t, uint8(5), c.Get())

	c.Update(frame / 2)
	assert.Equal(t, uint8(4), c.Get())
}

func TestCountdownCatchesUpSeveralPeriods(t *testing.T) {
	c := NewCountdown(60)
	c.Set(5)

	c.Update(3*frame + frame/4)
	assert.Equal(t, uint8(2), c.Get())
	assert.Equal(t, frame/4, c.Passed())
}

func TestCountdownSaturates(t *testing.T) {
	c := NewCountdown(60)
	c.Set(1)

	c.Update(10 * frame)
	assert.Equal(t, uint8(0), c.Get())
}

func TestCountdownIgnoresNonPositiveInput(t *testing.T) {
	c := NewCountdown(0)
	c.Set(3)
	c.Update(time.Second)
	assert.Equal(t, uint8(3), c.Get())

	c = NewCountdown(60)
	c.Set(3)
	c.Update(-time.Second)
	assert.Equal(t, uint8(3), c.Get())
}

func TestCadenceElapsedPeriods(t *testing.T) {
	tests := []struct {
		name    string
		rate    float64
		delta   time.Duration
		want    int
		remains time.Duration
	}{
		{"nothing elapsed", 1000, 0, 0, 0},
		{"below one period", 1000, 500 * time.Microsecond, 0, 500 * time.Microsecond},
		{"exactly one period", 1000, time.Millisecond, 1, 0},
		{"host hitch", 1000, 17*time.Millisecond + 300*time.Microsecond, 17, 300 * time.Microsecond},
		{"frame at 60Hz", 60, frame, 1, 0},
		{"zero rate never elapses", 0, time.Second, 0, time.Second},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			c := NewCadence(tc.rate)
			c.Update(tc.delta)
			assert.Equal(t, tc.want, c.ElapsedPeriods())

			c.Reset()
			assert.Equal(t, 0, c.ElapsedPeriods())
			assert.Equal(t, tc.remains, c.Passed())
		})
	}
}

func TestCadenceKeepsRemainderAcrossFrames(t *testing.T) {
	c := NewCadence(1000)
	total := 0
	for i := 0; i < 60; i++ {
		c.Update(frame)
		total += c.ElapsedPeriods()
		c.Reset()
	}

	// 60 frames of 16666666ns is 999999960ns: 999 whole milliseconds.
	assert.Equal(t, 999, total)
}
