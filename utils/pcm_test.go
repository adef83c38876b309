// SPDX-License-Identifier: EPL-2.0

package utils

import (
	"math"
	"testing"
)

func TestFloat32ToInt16(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input float32
		want  int16
	}{
		{"zero", 0, 0},
		{"max positive clamps", 1.0, math.MaxInt16},
		{"max negative", -1.0, math.MinInt16},
		{"half positive", 0.5, 16384},
		{"half negative", -0.5, -16384},
		{"rounds to nearest", 0.001, 33},
		{"clamp over max", 1.5, math.MaxInt16},
		{"clamp under min", -100, math.MinInt16},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			if got := Float32ToInt16(tt.input); got != tt.want {
				t.Errorf("Float32ToInt16(%v) = %d, want %d", tt.input, got, tt.want)
			}
		})
	}
}

// Every 16-bit value must come back unchanged, otherwise decoding a
// 16-bit file and re-quantizing it would alter the waveform.
func TestInt16RoundTrip(t *testing.T) {
	t.Parallel()

	for v := math.MinInt16; v <= math.MaxInt16; v++ {
		got := Float32ToInt16(Int16ToFloat32(int16(v)))
		if got != int16(v) {
			t.Fatalf("round trip of %d = %d", v, got)
		}
	}
}

func TestIntToFloat32(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		v        int
		bitDepth int
		want     float32
	}{
		{"8-bit center is silence", 128, 8, 0},
		{"8-bit minimum", 0, 8, -1},
		{"16-bit half", 16384, 16, 0.5},
		{"24-bit negative full scale", -8388608, 24, -1},
		{"32-bit quarter", 536870912, 32, 0.25},
		{"unknown depth treated as 16-bit", -32768, 12, -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := IntToFloat32(tt.v, tt.bitDepth)
			if math.Abs(float64(got-tt.want)) > 1e-6 {
				t.Errorf("IntToFloat32(%d, %d) = %v, want %v", tt.v, tt.bitDepth, got, tt.want)
			}
		})
	}
}

func BenchmarkFloat32ToInt16(b *testing.B) {
	samples := make([]float32, 22050)
	for i := range samples {
		samples[i] = float32(math.Sin(float64(i) * 0.1))
	}
	out := make([]int16, len(samples))

	b.ReportAllocs()
	for range b.N {
		for j, s := range samples {
			out[j] = Float32ToInt16(s)
		}
	}
}
