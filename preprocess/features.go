// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"encoding/json"
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// FeatureMatrix is a frames x coefficients MFCC matrix. It is never
// modified after construction.
type FeatureMatrix struct {
	m *mat.Dense
}

// NewFeatureMatrix copies data, laid out row-major, into a rows x cols
// matrix.
func NewFeatureMatrix(rows, cols int, data []float64) (*FeatureMatrix, error) {
	if rows <= 0 || cols <= 0 || len(data) != rows*cols {
		return nil, fmt.Errorf("%w: %d values for %dx%d", ErrFeatureShape, len(data), rows, cols)
	}
	return &FeatureMatrix{m: mat.NewDense(rows, cols, append([]float64(nil), data...))}, nil
}

// Dims returns (frames, coefficients).
func (f *FeatureMatrix) Dims() (int, int) { return f.m.Dims() }

func (f *FeatureMatrix) At(i, j int) float64 { return f.m.At(i, j) }

// Row returns a copy of frame i.
func (f *FeatureMatrix) Row(i int) []float64 {
	return mat.Row(nil, i, f.m)
}

// Rows returns a copy of the whole matrix as nested slices.
func (f *FeatureMatrix) Rows() [][]float64 {
	r, _ := f.m.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = f.Row(i)
	}
	return out
}

// Matrix exposes the values for read-only matrix arithmetic.
func (f *FeatureMatrix) Matrix() mat.Matrix { return f.m }

func (f *FeatureMatrix) Equal(other *FeatureMatrix) bool {
	if f == nil || other == nil {
		return f == other
	}
	return mat.Equal(f.m, other.m)
}

func (f *FeatureMatrix) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.Rows())
}
