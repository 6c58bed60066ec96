package wavwriter

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-audio/wav"
	"github.com/retroenv/retrogolib/assert"
)

func TestWriteAndDecode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")
	w := New(path)

	frame := make([]int8, 256)
	for i := range frame {
		frame[i] = int8(i - 128)
	}
	assert.NoError(t, w.WriteSamples(frame))
	assert.NoError(t, w.WriteSamples([]int8{0, 127}))
	assert.Equal(t, 258, w.Samples())
	assert.NoError(t, w.Close())

	f, err := os.Open(path)
	assert.NoError(t, err)
	defer f.Close()

	dec := wav.NewDecoder(f)
	assert.True(t, dec.IsValidFile())
	assert.Equal(t, uint32(SampleRate), dec.SampleRate)
	assert.Equal(t, uint16(1), dec.NumChans)
	assert.Equal(t, uint16(8), dec.BitDepth)

	buf, err := dec.FullPCMBuffer()
	assert.NoError(t, err)
	assert.Len(t, buf.Data, 258)
	assert.Equal(t, 0, buf.Data[0])
	assert.Equal(t, 128, buf.Data[128])
	assert.Equal(t, 255, buf.Data[257])
}

func TestWriteAfterClose(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "out.wav"))
	assert.NoError(t, w.Close())
	assert.True(t, errors.Is(w.WriteSamples([]int8{1}), ErrClosed))
	assert.NoError(t, w.Close())
}

func TestCloseBadPath(t *testing.T) {
	w := New(filepath.Join(t.TempDir(), "missing", "out.wav"))
	assert.Error(t, w.Close())
}
