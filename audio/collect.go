// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audclass/utils"
)

// ResampleFunc wraps src in a Source running at rate.
type ResampleFunc func(src Source, rate int) (Source, error)

// CubicResample is a ResampleFunc backed by Resampler.
func CubicResample(src Source, rate int) (Source, error) {
	if rate <= 0 {
		return nil, ErrInvalidRate
	}
	return NewResampler(src, rate), nil
}

// SoxrResample is a ResampleFunc backed by SoxrResampler.
func SoxrResample(src Source, rate int) (Source, error) {
	return NewSoxrResampler(src, rate)
}

// MonoOptions tunes ResampleToMono16.
type MonoOptions struct {
	// Resample defaults to CubicResample.
	Resample ResampleFunc
	// BufferSize is the read size in samples, 4096 when zero.
	BufferSize int
	// MaxSamples stops collecting once that many mono samples were read.
	// Zero reads the whole stream.
	MaxSamples int
}

// ResampleToMono16 runs src through a resampler to targetRate, mixes the
// result down to mono and collects it as 16-bit PCM. Source errors other than
// io.EOF abort the collection and nothing is returned.
//
//	src, _ := decoder.Decode(file)
//	pcm, err := audio.ResampleToMono16(src, 22050, audio.MonoOptions{})
func ResampleToMono16(src Source, targetRate int, opts MonoOptions) ([]int16, error) {
	if targetRate <= 0 {
		return nil, ErrInvalidRate
	}

	resample := opts.Resample
	if resample == nil {
		resample = CubicResample
	}
	bufSize := opts.BufferSize
	if bufSize <= 0 {
		bufSize = 4096
	}

	resampled, err := resample(src, targetRate)
	if err != nil {
		return nil, fmt.Errorf("%w", err)
	}
	mono := NewMonoMixer(resampled)

	var pcm []int16
	if opts.MaxSamples > 0 {
		pcm = make([]int16, 0, opts.MaxSamples)
	}
	buf := make([]float32, bufSize)

	for {
		n, err := mono.ReadSamples(buf)
		for _, v := range buf[:n] {
			pcm = append(pcm, utils.Float32ToInt16(v))
		}

		if opts.MaxSamples > 0 && len(pcm) >= opts.MaxSamples {
			return pcm[:opts.MaxSamples], nil
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w", err)
		}
	}

	return pcm, nil
}
