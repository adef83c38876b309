// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"math"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/mat"
)

// amin floors mel power before taking the logarithm.
const amin = 1e-10

// Extractor computes MFCCs the way the training pipeline did: a centered
// STFT with a periodic Hann window, a Slaney mel filter bank, power in dB
// clipped to TopDB below the peak and an orthonormal DCT-II. Its tables are
// built once and only read afterwards, so one Extractor serves concurrent
// requests.
type Extractor struct {
	cfg     Config
	window  []float64
	melBank *mat.Dense // NumMels x FFTSize/2+1
	dct     *mat.Dense // NumMFCC x NumMels
}

func NewExtractor(cfg Config) (*Extractor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Extractor{
		cfg:     cfg,
		window:  hannWindow(cfg.FFTSize),
		melBank: melFilterBank(cfg.NumMels, cfg.FFTSize, cfg.SampleRate, 0, float64(cfg.SampleRate)/2),
		dct:     dctMatrix(cfg.NumMFCC, cfg.NumMels),
	}, nil
}

// Shape is the (frames, coefficients) shape of every extracted matrix.
func (e *Extractor) Shape() (int, int) {
	return e.cfg.Frames, e.cfg.NumMFCC
}

func (e *Extractor) Extract(w *Waveform) (*FeatureMatrix, error) {
	switch {
	case w == nil || len(w.Samples) == 0:
		return nil, &Error{Stage: StageFeatures, Err: ErrEmptySignal}
	case w.SampleRate != e.cfg.SampleRate || len(w.Samples) != e.cfg.TargetSamples():
		return nil, &Error{Stage: StageFeatures, Err: ErrWaveformShape}
	}

	power := e.powerSpectrogram(w.Samples)

	var mel mat.Dense
	mel.Mul(e.melBank, power)
	e.powerToDB(&mel)

	var mfcc mat.Dense
	mfcc.Mul(e.dct, &mel)

	// mfcc is coefficients x frames; the models want frames first, with the
	// frame axis cut or zero-padded at the end.
	_, frames := mfcc.Dims()
	out := mat.NewDense(e.cfg.Frames, e.cfg.NumMFCC, nil)
	for t := range min(frames, e.cfg.Frames) {
		for k := range e.cfg.NumMFCC {
			v := mfcc.At(k, t)
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &Error{Stage: StageFeatures, Err: ErrNonFinite}
			}
			out.Set(t, k, v)
		}
	}

	return &FeatureMatrix{m: out}, nil
}

// powerSpectrogram returns |STFT|^2 as bins x frames. The signal is
// zero-padded by FFTSize/2 on both sides so frame t is centered on sample
// t*HopLength.
func (e *Extractor) powerSpectrogram(samples []float32) *mat.Dense {
	nfft, hop := e.cfg.FFTSize, e.cfg.HopLength
	bins := nfft/2 + 1

	padded := make([]float64, len(samples)+nfft)
	for i, s := range samples {
		padded[nfft/2+i] = float64(s)
	}
	frames := 1 + (len(padded)-nfft)/hop

	power := mat.NewDense(bins, frames, nil)
	frame := make([]float64, nfft)
	for t := range frames {
		seg := padded[t*hop : t*hop+nfft]
		for i, v := range seg {
			frame[i] = v * e.window[i]
		}

		spectrum := fft.FFTReal(frame)
		for b := range bins {
			re, im := real(spectrum[b]), imag(spectrum[b])
			power.Set(b, t, re*re+im*im)
		}
	}

	return power
}

// powerToDB converts m in place to 10*log10(max(amin, m)), then raises
// everything to at least TopDB below the maximum.
func (e *Extractor) powerToDB(m *mat.Dense) {
	m.Apply(func(_, _ int, v float64) float64 {
		return 10 * math.Log10(math.Max(amin, v))
	}, m)

	floor := mat.Max(m) - e.cfg.TopDB
	m.Apply(func(_, _ int, v float64) float64 {
		return math.Max(v, floor)
	}, m)
}
