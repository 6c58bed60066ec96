// Package wavwriter records the BytePusher audio stream to a WAV file.
// Samples are buffered in memory and written to disk by Close.
package wavwriter

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// SampleRate is 256 samples per frame at 60 frames per second.
	SampleRate = 15360

	bitDepth    = 8
	numChannels = 1
	formatPCM   = 1
)

var ErrClosed = errors.New("wav writer closed")

// Writer implements bytepusher.AudioSink.
type Writer struct {
	filename string
	buffer   []int
	closed   bool
}

func New(filename string) *Writer {
	return &Writer{
		filename: filename,
	}
}

// WriteSamples appends a frame of signed samples.
func (w *Writer) WriteSamples(samples []int8) error {
	if w.closed {
		return ErrClosed
	}
	for _, s := range samples {
		// 8-bit WAV data is unsigned.
		w.buffer = append(w.buffer, int(s)+128)
	}
	return nil
}

// Samples returns the number of buffered samples.
func (w *Writer) Samples() int {
	return len(w.buffer)
}

// Close encodes the buffered samples to the file.
func (w *Writer) Close() (rerr error) {
	if w.closed {
		return nil
	}
	w.closed = true

	f, err := os.Create(w.filename)
	if err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("wavwriter: %w", err)
		}
	}()

	enc := wav.NewEncoder(f, SampleRate, bitDepth, numChannels, formatPCM)
	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: numChannels,
			SampleRate:  SampleRate,
		},
		Data:           w.buffer,
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("wavwriter: %w", err)
	}
	return nil
}
