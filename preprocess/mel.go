// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Slaney mel scale: linear below 1 kHz, logarithmic above.
const (
	melFSp      = 200.0 / 3
	melMinLogHz = 1000.0
	melMinLog   = melMinLogHz / melFSp // 15
)

var melLogStep = math.Log(6.4) / 27

func hzToMel(hz float64) float64 {
	if hz >= melMinLogHz {
		return melMinLog + math.Log(hz/melMinLogHz)/melLogStep
	}
	return hz / melFSp
}

func melToHz(mel float64) float64 {
	if mel >= melMinLog {
		return melMinLogHz * math.Exp(melLogStep*(mel-melMinLog))
	}
	return mel * melFSp
}

// melFilterBank builds numMels triangular filters over the fftSize/2+1
// power bins, spaced evenly on the mel scale between fmin and fmax and
// normalized to unit area in Hz.
func melFilterBank(numMels, fftSize, sampleRate int, fmin, fmax float64) *mat.Dense {
	bins := fftSize/2 + 1

	fftFreqs := make([]float64, bins)
	floats.Span(fftFreqs, 0, float64(sampleRate)/2)

	mels := make([]float64, numMels+2)
	floats.Span(mels, hzToMel(fmin), hzToMel(fmax))
	melF := make([]float64, len(mels))
	for i, m := range mels {
		melF[i] = melToHz(m)
	}

	bank := mat.NewDense(numMels, bins, nil)
	for i := range numMels {
		lowWidth := melF[i+1] - melF[i]
		highWidth := melF[i+2] - melF[i+1]
		enorm := 2 / (melF[i+2] - melF[i])

		for b, f := range fftFreqs {
			lower := (f - melF[i]) / lowWidth
			upper := (melF[i+2] - f) / highWidth
			if w := math.Min(lower, upper); w > 0 {
				bank.Set(i, b, w*enorm)
			}
		}
	}

	return bank
}

// dctMatrix returns the first n rows of the orthonormal DCT-II over size
// points.
func dctMatrix(n, size int) *mat.Dense {
	d := mat.NewDense(n, size, nil)
	for k := range n {
		scale := math.Sqrt(2 / float64(size))
		if k == 0 {
			scale = math.Sqrt(1 / float64(size))
		}
		for j := range size {
			d.Set(k, j, scale*math.Cos(math.Pi*float64(k)*float64(2*j+1)/float64(2*size)))
		}
	}
	return d
}

// hannWindow is the periodic Hann window used for spectral analysis.
func hannWindow(size int) []float64 {
	w := make([]float64, size)
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size))
	}
	return w
}
