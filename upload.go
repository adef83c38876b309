// SPDX-License-Identifier: EPL-2.0

package audclass

import (
	"path/filepath"
	"slices"
	"strings"
)

// DefaultExtensions are the upload extensions accepted when none are
// configured.
var DefaultExtensions = []string{"wav", "mp3"}

// Upload is one audio file as received from a client.
type Upload struct {
	Filename string
	Data     []byte
}

// Format returns the lower-cased file extension without the dot.
func (u Upload) Format() string {
	return Extension(u.Filename)
}

func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// ValidateFilename checks filename against the allowed extensions.
func ValidateFilename(filename string, allowed []string) error {
	if filename == "" {
		return &ValidationError{Message: "No audio file provided", Err: ErrNoAudio}
	}
	if !slices.Contains(allowed, Extension(filename)) {
		return &ValidationError{Message: unsupportedMessage(allowed), Err: ErrUnsupportedFormat}
	}
	return nil
}

func validate(up Upload, allowed []string) error {
	if err := ValidateFilename(up.Filename, allowed); err != nil {
		return err
	}
	if len(up.Data) == 0 {
		return &ValidationError{Message: "No audio file provided", Err: ErrNoAudio}
	}
	return nil
}

// unsupportedMessage renders "Unsupported file format. Use WAV or MP3".
func unsupportedMessage(allowed []string) string {
	names := make([]string, len(allowed))
	for i, ext := range allowed {
		names[i] = strings.ToUpper(ext)
	}

	var list string
	switch len(names) {
	case 0:
		return "Unsupported file format"
	case 1:
		list = names[0]
	default:
		list = strings.Join(names[:len(names)-1], ", ") + " or " + names[len(names)-1]
	}
	return "Unsupported file format. Use " + list
}
