// SPDX-License-Identifier: EPL-2.0

// Package wav decodes RIFF/WAVE files and writes 16-bit mono WAV.
//
// Decoding goes through github.com/go-audio/wav, so the fmt and data chunks
// are found wherever they are and extra chunks (LIST, fact, cue) are
// skipped. Integer PCM at 8, 16, 24 and 32 bits is supported, including
// WAVE_FORMAT_EXTENSIBLE headers; IEEE float and compressed encodings are
// rejected with ErrUnsupportedEncoding.
//
//	src, err := wav.Decoder{}.Decode(bytes.NewReader(data))
//
// Samples are delivered as float32 in [-1, 1). 16-bit values map exactly
// (v / 32768), so a 16-bit file survives decode and re-quantization
// unchanged.
//
// WriteWAV16 is the inverse used to dump normalized waveforms:
//
//	f, _ := os.Create("out.wav")
//	err := wav.WriteWAV16(f, 22050, pcm)
package wav
