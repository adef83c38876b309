// SPDX-License-Identifier: EPL-2.0

package audclass

import "errors"

var (
	ErrNoAudio           = errors.New("no audio file provided")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrNoModelResult     = errors.New("no model produced a result")
)

// ValidationError rejects an upload before any decoding. Error returns a
// message fit for the client; Unwrap returns ErrNoAudio or
// ErrUnsupportedFormat.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Unwrap() error { return e.Err }
