// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"time"

	"github.com/ik5/audclass/utils"
)

// Waveform is a normalized mono clip. Samples hold 16-bit PCM values
// scaled by 1/32768.
type Waveform struct {
	SampleRate int
	Samples    []float32
}

func (w *Waveform) Duration() time.Duration {
	if w.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(w.Samples)) * time.Second / time.Duration(w.SampleRate)
}

// PCM16 returns the samples as 16-bit PCM.
func (w *Waveform) PCM16() []int16 {
	out := make([]int16, len(w.Samples))
	for i, s := range w.Samples {
		out[i] = utils.Float32ToInt16(s)
	}
	return out
}
