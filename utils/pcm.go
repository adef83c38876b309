// SPDX-License-Identifier: EPL-2.0

package utils

import "math"

// pcm16Scale maps float32 samples in [-1,1] to signed 16-bit integers.
// The same scale is used in both directions so any int16 value survives
// a Int16ToFloat32 -> Float32ToInt16 round trip unchanged.
const pcm16Scale = 32768.0

// Float32ToInt16 converts a normalized sample to 16-bit PCM, rounding to the
// nearest integer and clamping to the int16 range.
func Float32ToInt16(x float32) int16 {
	v := math.Round(float64(x) * pcm16Scale)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}

	return int16(v)
}

// Int16ToFloat32 converts a 16-bit PCM sample to [-1,1).
func Int16ToFloat32(v int16) float32 {
	return float32(v) / pcm16Scale
}

// IntToFloat32 normalizes an integer PCM sample of the given bit depth.
// 8-bit PCM is unsigned and centered at 128; wider depths are signed.
func IntToFloat32(v int, bitDepth int) float32 {
	switch bitDepth {
	case 8:
		return float32(v-128) / 128.0
	case 24:
		return float32(v) / 8388608.0
	case 32:
		return float32(float64(v) / 2147483648.0)
	default:
		return float32(v) / pcm16Scale
	}
}
