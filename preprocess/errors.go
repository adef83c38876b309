// SPDX-License-Identifier: EPL-2.0

package preprocess

import (
	"errors"
	"fmt"
)

// Stage names the pipeline step that failed.
type Stage string

const (
	StageDecode   Stage = "decode"
	StageResample Stage = "resample"
	StageFeatures Stage = "features"
)

var (
	ErrEmptySignal   = errors.New("audio contains no samples")
	ErrWaveformShape = errors.New("waveform does not have the expected rate and length")
	ErrNonFinite     = errors.New("features contain NaN or Inf")
	ErrFeatureShape  = errors.New("feature values do not fill the matrix")
)

// Error is returned by every preprocessing failure. Nothing partial is
// produced alongside it.
type Error struct {
	Stage Stage
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("preprocessing failed at %s: %v", e.Stage, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// DecodeError reports input that could not be turned into PCM.
type DecodeError struct {
	Format string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Format == "" {
		return fmt.Sprintf("decode audio: %v", e.Err)
	}
	return fmt.Sprintf("decode %s audio: %v", e.Format, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

func decodeErr(format string, err error) error {
	return &Error{Stage: StageDecode, Err: &DecodeError{Format: format, Err: err}}
}
