// SPDX-License-Identifier: EPL-2.0

package audclass

import "time"

// Stages reported to Observer.StageDone.
const (
	StageNormalize = "normalize"
	StageFeatures  = "features"
	StageInference = "inference"
)

// Observer receives pipeline measurements. Implementations must be safe
// for concurrent use.
type Observer interface {
	// StageDone is called after each pipeline stage; err is nil on success.
	StageDone(stage string, d time.Duration, err error)
	// ModelDone is called once per model and request.
	ModelDone(model string, d time.Duration, err error)
	// InFlight tracks requests holding a preprocessing slot.
	InFlight(delta int)
}

type nopObserver struct{}

func (nopObserver) StageDone(string, time.Duration, error) {}
func (nopObserver) ModelDone(string, time.Duration, error) {}
func (nopObserver) InFlight(int)                           {}
