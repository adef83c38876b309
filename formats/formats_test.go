// SPDX-License-Identifier: EPL-2.0

package formats_test

import (
	"bytes"
	"testing"

	"github.com/ik5/audclass/formats"
	"github.com/ik5/audclass/formats/wav"
	"github.com/ik5/audclass/internal/audiotest"
)

func TestNewRegistry(t *testing.T) {
	t.Parallel()

	r := formats.NewRegistry()
	for _, f := range []string{"wav", "WAVE", "mp3", "ogg", "oga", "aiff", "aif"} {
		if _, ok := r.Get(f); !ok {
			t.Errorf("no decoder for %q", f)
		}
	}
	if _, ok := r.Get("flac"); ok {
		t.Error("unexpected decoder for flac")
	}
}

// A WAV named .mp3 must still be decoded as WAV.
func TestNewRegistry_DetectByContent(t *testing.T) {
	t.Parallel()

	data := audiotest.SineWAV(16000, 1, 0.1, 440, 0.5)

	dec, format, err := formats.NewRegistry().Detect(data, "mp3")
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if format != "wav" {
		t.Errorf("format = %q, want wav", format)
	}
	if _, ok := dec.(wav.Decoder); !ok {
		t.Fatalf("decoder = %T, want wav.Decoder", dec)
	}

	src, err := dec.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if src.SampleRate() != 16000 {
		t.Errorf("SampleRate() = %d, want 16000", src.SampleRate())
	}
}
