// SPDX-License-Identifier: EPL-2.0

// Package audiotest provides synthetic audio sources and encoded fixtures
// for tests. It does not import the audio package so that package's own
// tests can use it.
package audiotest

import (
	"io"
	"math"
)

// Waveform returns the value of a channel at a frame index.
type Waveform func(frame, channel int) float32

// MockSource generates a fixed number of frames from a Waveform. It
// satisfies audio.Source.
type MockSource struct {
	sampleRate  int
	channels    int
	totalFrames int
	generated   int
	waveform    Waveform

	// ReadErr, when set, is returned once totalFrames have been produced
	// instead of io.EOF.
	ReadErr error
}

// NewMockSource creates a source producing totalFrames frames.
func NewMockSource(sampleRate, channels, totalFrames int, waveform Waveform) *MockSource {
	return &MockSource{
		sampleRate:  sampleRate,
		channels:    channels,
		totalFrames: totalFrames,
		waveform:    waveform,
	}
}

// NewSilentSource creates a source that produces digital silence.
func NewSilentSource(sampleRate, channels, totalFrames int) *MockSource {
	return NewConstantSource(sampleRate, channels, totalFrames, 0)
}

// NewSineSource creates a source producing a full-scale sine on every channel.
func NewSineSource(sampleRate, channels, totalFrames int, frequency float64) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, Sine(sampleRate, frequency, 1))
}

// NewConstantSource creates a source with a DC value on every channel.
func NewConstantSource(sampleRate, channels, totalFrames int, value float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(int, int) float32 {
		return value
	})
}

// NewRampSource creates a source whose frame i has value i*step, useful to
// check sample ordering through a pipeline.
func NewRampSource(sampleRate, channels, totalFrames int, step float32) *MockSource {
	return NewMockSource(sampleRate, channels, totalFrames, func(frame, _ int) float32 {
		return float32(frame) * step
	})
}

// Sine returns a sine Waveform at frequency Hz scaled by amplitude.
func Sine(sampleRate int, frequency float64, amplitude float32) Waveform {
	return func(frame, _ int) float32 {
		t := float64(frame) / float64(sampleRate)
		return amplitude * float32(math.Sin(2*math.Pi*frequency*t))
	}
}

func (m *MockSource) SampleRate() int { return m.sampleRate }
func (m *MockSource) Channels() int   { return m.channels }
func (m *MockSource) BufSize() int    { return 4096 }
func (m *MockSource) Close() error    { return nil }

// Reset rewinds the source to its first frame.
func (m *MockSource) Reset() {
	m.generated = 0
}

func (m *MockSource) ReadSamples(dst []float32) (int, error) {
	if m.generated >= m.totalFrames {
		return 0, m.endErr()
	}

	frames := min(len(dst)/m.channels, m.totalFrames-m.generated)
	for f := range frames {
		for ch := range m.channels {
			dst[f*m.channels+ch] = m.waveform(m.generated+f, ch)
		}
	}
	m.generated += frames

	if m.generated >= m.totalFrames {
		return frames * m.channels, m.endErr()
	}

	return frames * m.channels, nil
}

func (m *MockSource) endErr() error {
	if m.ReadErr != nil {
		return m.ReadErr
	}
	return io.EOF
}
