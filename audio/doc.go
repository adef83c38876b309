// SPDX-License-Identifier: EPL-2.0

// Package audio provides the streaming primitives the preprocessing pipeline
// is built from.
//
// Everything is a Source: decoders, resamplers and mixers all hand out
// interleaved float32 samples in [-1, 1] and can be chained:
//
//	src, _ := decoder.Decode(r)
//	mono := audio.NewMonoMixer(audio.NewResampler(src, 22050))
//
// Two resamplers are available. Resampler is a streaming Catmull-Rom
// interpolator with a light low-pass when downsampling; SoxrResampler runs
// a band-limited polyphase filter from go-audio-resampling. Both pass
// samples through untouched when the rates already match.
//
// Registry maps format keys (extensions without the dot) to decoders.
// Registry.Detect sniffs the container from its magic bytes before falling
// back to the caller's hint.
//
// ResampleToMono16 drives a whole chain and returns 16-bit mono PCM.
//
// Reads return io.EOF once the stream is finished; any samples returned
// alongside it are valid.
package audio
