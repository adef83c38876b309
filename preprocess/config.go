// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"errors"
	"fmt"
)

// Resampler names accepted by Config.Resampler.
const (
	ResamplerCubic = "cubic"
	ResamplerSoxr  = "soxr"
)

// Config holds the preprocessing constants. The feature constants must
// match what the models were trained on; DefaultConfig mirrors the
// UrbanSound8K training run.
type Config struct {
	SampleRate int    // Hz
	DurationMs int    // fixed clip length
	Resampler  string // cubic or soxr

	NumMFCC   int
	FFTSize   int
	HopLength int
	NumMels   int
	Frames    int     // frame count after padding/truncation
	TopDB     float64 // dynamic range kept below the loudest mel bin
}

func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		DurationMs: 4000,
		Resampler:  ResamplerCubic,
		NumMFCC:    13,
		FFTSize:    2048,
		HopLength:  512,
		NumMels:    128,
		Frames:     173,
		TopDB:      80,
	}
}

// TargetSamples is the waveform length every clip is forced to.
func (c Config) TargetSamples() int {
	return c.SampleRate * c.DurationMs / 1000
}

var ErrInvalidConfig = errors.New("invalid preprocessing config")

func (c Config) Validate() error {
	switch {
	case c.SampleRate <= 0:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidConfig, c.SampleRate)
	case c.DurationMs <= 0:
		return fmt.Errorf("%w: duration %d ms", ErrInvalidConfig, c.DurationMs)
	case c.Resampler != ResamplerCubic && c.Resampler != ResamplerSoxr:
		return fmt.Errorf("%w: unknown resampler %q", ErrInvalidConfig, c.Resampler)
	case c.FFTSize < 2 || c.FFTSize%2 != 0:
		return fmt.Errorf("%w: fft size %d must be even", ErrInvalidConfig, c.FFTSize)
	case c.HopLength <= 0:
		return fmt.Errorf("%w: hop length %d", ErrInvalidConfig, c.HopLength)
	case c.NumMels <= 0 || c.NumMFCC <= 0 || c.NumMFCC > c.NumMels:
		return fmt.Errorf("%w: %d coefficients from %d mel bands", ErrInvalidConfig, c.NumMFCC, c.NumMels)
	case c.Frames <= 0:
		return fmt.Errorf("%w: frames %d", ErrInvalidConfig, c.Frames)
	case c.TopDB <= 0:
		return fmt.Errorf("%w: top_db %v", ErrInvalidConfig, c.TopDB)
	}

	return nil
}
