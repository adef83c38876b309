// SPDX-License-Identifier: EPL-2.0

// Package modeltest builds small model files with predictable output for
// tests outside the inference package.
package modeltest

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/ik5/audclass/inference"
)

// Default feature shape.
const (
	Frames = 173
	Coeffs = 13
)

// PeakConfidence is the confidence a Constant model reports.
var PeakConfidence = math.Exp(5) / (math.Exp(5) + float64(inference.NumClasses-1))

// Constant returns a model that predicts Label(peak) with PeakConfidence
// for any frames x coeffs input.
func Constant(name string, peak, frames, coeffs int) *inference.ModelFile {
	bias := make([]float32, inference.NumClasses)
	bias[peak] = 5

	return &inference.ModelFile{
		Name:       name,
		InputShape: []int{frames, coeffs},
		Labels:     inference.Labels(),
		Layers: []inference.LayerFile{
			{Type: inference.LayerGlobalAveragePooling1D},
			{
				Type:       inference.LayerDense,
				Units:      inference.NumClasses,
				Activation: "softmax",
				Kernel:     make([]float32, coeffs*inference.NumClasses),
				Bias:       bias,
			},
		},
	}
}

// Build compiles mf or fails the test.
func Build(t testing.TB, mf *inference.ModelFile) *inference.Network {
	t.Helper()

	n, err := inference.Build(mf)
	if err != nil {
		t.Fatalf("build %s: %v", mf.Name, err)
	}
	return n
}

// Set builds a Set of Constant models, one per name, predicting peaks[i].
func Set(t testing.TB, names []string, peaks []int) *inference.Set {
	t.Helper()

	models := make([]inference.Classifier, len(names))
	for i, name := range names {
		models[i] = Build(t, Constant(name, peaks[i], Frames, Coeffs))
	}

	set, err := inference.NewSet(models...)
	if err != nil {
		t.Fatalf("new set: %v", err)
	}
	return set
}

// Write encodes mf into dir and returns the file path.
func Write(t testing.TB, dir string, mf *inference.ModelFile) string {
	t.Helper()

	var buf bytes.Buffer
	if err := inference.Encode(&buf, mf); err != nil {
		t.Fatalf("encode %s: %v", mf.Name, err)
	}

	path := filepath.Join(dir, mf.Name+".msgpack")
	if err := os.WriteFile(path, buf.Bytes(), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}
