// SPDX-License-Identifier: EPL-2.0

// Package formats wires every bundled decoder into an audio.Registry.
package formats

import (
	"github.com/ik5/audclass/audio"
	"github.com/ik5/audclass/formats/aiff"
	"github.com/ik5/audclass/formats/mp3"
	"github.com/ik5/audclass/formats/vorbis"
	"github.com/ik5/audclass/formats/wav"
)

// NewRegistry returns a registry with WAV, MP3, Ogg Vorbis and AIFF
// decoders bound to their usual extensions. The keys match what
// h2non/filetype reports for each container.
func NewRegistry() *audio.Registry {
	r := audio.NewRegistry()
	r.Register(wav.Decoder{}, "wav", "wave")
	r.Register(mp3.Decoder{}, "mp3")
	r.Register(vorbis.Decoder{}, "ogg", "oga")
	r.Register(aiff.Decoder{}, "aiff", "aif")

	return r
}
