// SPDX-License-Identifier: EPL-2.0

package inference_test

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/internal/modeltest"
	"github.com/ik5/audclass/preprocess"
)

const (
	frames = modeltest.Frames
	coeffs = modeltest.Coeffs
)

func biasModel(name string, peak int) *inference.ModelFile {
	return modeltest.Constant(name, peak, frames, coeffs)
}

var peakConfidence = modeltest.PeakConfidence

// eye returns a rows x NumClasses kernel copying input i to output i.
func eye(rows int) []float32 {
	k := make([]float32, rows*inference.NumClasses)
	for i := range rows {
		k[i*inference.NumClasses+i] = 1
	}
	return k
}

func randomWeights(r *rand.Rand, n int) []float32 {
	w := make([]float32, n)
	for i := range w {
		w[i] = float32(r.NormFloat64() * 0.1)
	}
	return w
}

// lstmModel mirrors the trained architecture at a smaller width:
// LSTM -> Dropout -> Dense(relu) -> Dropout -> Dense(softmax).
func lstmModel(name string, bidirectional bool) *inference.ModelFile {
	const units, hidden = 8, 16
	r := rand.New(rand.NewPCG(7, 11))

	rec := inference.LayerFile{
		Type:            inference.LayerLSTM,
		Units:           units,
		Kernel:          randomWeights(r, coeffs*4*units),
		RecurrentKernel: randomWeights(r, units*4*units),
		Bias:            randomWeights(r, 4*units),
	}
	width := units
	if bidirectional {
		rec.Type = inference.LayerBidirectional
		rec.Backward = &inference.LayerFile{
			Kernel:          randomWeights(r, coeffs*4*units),
			RecurrentKernel: randomWeights(r, units*4*units),
			Bias:            randomWeights(r, 4*units),
		}
		width = 2 * units
	}

	return &inference.ModelFile{
		Name:       name,
		InputShape: []int{frames, coeffs},
		Layers: []inference.LayerFile{
			rec,
			{Type: inference.LayerDropout},
			{
				Type:       inference.LayerDense,
				Units:      hidden,
				Activation: "relu",
				Kernel:     randomWeights(r, width*hidden),
				Bias:       randomWeights(r, hidden),
			},
			{Type: inference.LayerDropout},
			{
				Type:       inference.LayerDense,
				Units:      inference.NumClasses,
				Activation: "softmax",
				Kernel:     randomWeights(r, hidden*inference.NumClasses),
				Bias:       randomWeights(r, inference.NumClasses),
			},
		},
	}
}

func writeModel(t *testing.T, dir string, mf *inference.ModelFile) string {
	t.Helper()
	return modeltest.Write(t, dir, mf)
}

func build(t *testing.T, mf *inference.ModelFile) *inference.Network {
	t.Helper()

	n, err := inference.Build(mf)
	require.NoError(t, err)
	return n
}

func features(t *testing.T, fill func(i, j int) float64) *preprocess.FeatureMatrix {
	t.Helper()

	data := make([]float64, frames*coeffs)
	for i := range frames {
		for j := range coeffs {
			data[i*coeffs+j] = fill(i, j)
		}
	}
	x, err := preprocess.NewFeatureMatrix(frames, coeffs, data)
	require.NoError(t, err)
	return x
}

func zeros(t *testing.T) *preprocess.FeatureMatrix {
	t.Helper()
	return features(t, func(int, int) float64 { return 0 })
}
