// SPDX-License-Identifier: EPL-2.0

package inference

import (
	"errors"
	"fmt"
)

var (
	ErrOutputShape        = errors.New("model output does not match the label vocabulary")
	ErrInvalidProbability = errors.New("model output is not a probability distribution")
	ErrInputShape         = errors.New("features do not match the model input shape")
	ErrShapeMismatch      = errors.New("model input shape does not match the feature extractor")
	ErrInvalidModel       = errors.New("invalid model file")
	ErrDuplicateModel     = errors.New("duplicate model name")
	ErrNoModels           = errors.New("no models configured")
	ErrModelPanic         = errors.New("model panicked")
)

// ModelInferenceError scopes a failure to one model.
type ModelInferenceError struct {
	Model string
	Err   error
}

func (e *ModelInferenceError) Error() string {
	return fmt.Sprintf("model %s: %v", e.Model, e.Err)
}

func (e *ModelInferenceError) Unwrap() error { return e.Err }
