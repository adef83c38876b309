// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/ik5/audclass/audio"
	"github.com/ik5/audclass/utils"
)

// Normalizer turns an encoded clip into a fixed-length mono waveform:
// decode, resample, downmix, quantize to 16 bits, then pad with trailing
// silence or cut to Config.DurationMs.
type Normalizer struct {
	registry *audio.Registry
	cfg      Config
	resample audio.ResampleFunc
}

func NewNormalizer(registry *audio.Registry, cfg Config) (*Normalizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if registry == nil {
		return nil, fmt.Errorf("%w: nil decoder registry", ErrInvalidConfig)
	}

	resample := audio.CubicResample
	if cfg.Resampler == ResamplerSoxr {
		resample = audio.SoxrResample
	}

	return &Normalizer{registry: registry, cfg: cfg, resample: resample}, nil
}

// Normalize decodes data, using format (usually the file extension) as a
// hint when the container cannot be sniffed.
func (n *Normalizer) Normalize(data []byte, format string) (*Waveform, error) {
	if len(data) == 0 {
		return nil, decodeErr(format, ErrEmptySignal)
	}

	dec, kind, err := n.registry.Detect(data, format)
	if err != nil {
		return nil, decodeErr(format, err)
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, decodeErr(kind, err)
	}
	tracked := &trackedSource{Source: src}
	defer tracked.Close()

	target := n.cfg.TargetSamples()
	pcm, err := audio.ResampleToMono16(tracked, n.cfg.SampleRate, audio.MonoOptions{
		Resample:   n.resample,
		MaxSamples: target,
	})
	switch {
	case err != nil && tracked.err != nil:
		return nil, decodeErr(kind, tracked.err)
	case err != nil:
		return nil, &Error{Stage: StageResample, Err: err}
	case len(pcm) == 0:
		return nil, decodeErr(kind, ErrEmptySignal)
	}

	// Zero-initialized, so anything past len(pcm) is trailing silence.
	samples := make([]float32, target)
	for i, v := range pcm {
		samples[i] = utils.Int16ToFloat32(v)
	}

	return &Waveform{SampleRate: n.cfg.SampleRate, Samples: samples}, nil
}

// trackedSource remembers a decoder read failure so it can be told apart
// from a resampler failure further down the chain.
type trackedSource struct {
	audio.Source
	err error
}

func (t *trackedSource) ReadSamples(dst []float32) (int, error) {
	n, err := t.Source.ReadSamples(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}
