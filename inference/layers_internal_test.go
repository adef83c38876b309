// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestSoftmaxLargeLogits(t *testing.T) {
	t.Parallel()

	row := []float64{1000, 1000, 0}
	softmax(row)

	assert.InDelta(t, 0.5, row[0], 1e-12)
	assert.InDelta(t, 0.5, row[1], 1e-12)
	assert.Zero(t, row[2])
}

func TestActivations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   float64
		want float64
	}{
		{"linear", -2, -2},
		{"relu", -2, 0},
		{"relu", 3, 3},
		{"tanh", 0.5, math.Tanh(0.5)},
		{"sigmoid", 0, 0.5},
	}

	for _, tt := range tests {
		act, err := activationByName(tt.name)
		require.NoError(t, err)

		row := []float64{tt.in}
		act(row)
		assert.InDelta(t, tt.want, row[0], 1e-12, tt.name)
	}
}

func TestGlobalAveragePooling(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(3, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
	})

	out := globalAveragePooling{}.forward(x)
	assert.Equal(t, []float64{2, 20}, out.RawRowView(0))
}

func TestFlatten(t *testing.T) {
	t.Parallel()

	x := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	out := flatten{}.forward(x)

	r, c := out.Dims()
	assert.Equal(t, 1, r)
	assert.Equal(t, 4, c)
	assert.Equal(t, []float64{1, 2, 3, 4}, out.RawRowView(0))

	s, err := flatten{}.output(shape{steps: 2, width: 2})
	require.NoError(t, err)
	assert.Equal(t, shape{width: 4}, s)
}
