// SPDX-License-Identifier: EPL-2.0

package audiotest

import (
	"bytes"
	"encoding/binary"
	"math"
)

// WAV16 encodes interleaved 16-bit samples as a canonical PCM WAV file.
func WAV16(sampleRate, channels int, samples []int16) []byte {
	return wavPCM(sampleRate, channels, 16, func(buf *bytes.Buffer) {
		_ = binary.Write(buf, binary.LittleEndian, samples)
	}, len(samples)*2)
}

// WAV24 encodes interleaved samples as 24-bit PCM. Values are expected in
// the signed 24-bit range.
func WAV24(sampleRate, channels int, samples []int32) []byte {
	return wavPCM(sampleRate, channels, 24, func(buf *bytes.Buffer) {
		for _, s := range samples {
			buf.Write([]byte{byte(s), byte(s >> 8), byte(s >> 16)})
		}
	}, len(samples)*3)
}

// SineWAV renders seconds of a sine at frequency Hz as a 16-bit WAV.
func SineWAV(sampleRate, channels int, seconds, frequency float64, amplitude float32) []byte {
	return WAV16(sampleRate, channels, Render(sampleRate, channels, seconds, Sine(sampleRate, frequency, amplitude)))
}

// SilentWAV renders seconds of digital silence as a 16-bit WAV.
func SilentWAV(sampleRate, channels int, seconds float64) []byte {
	frames := int(math.Round(seconds * float64(sampleRate)))
	return WAV16(sampleRate, channels, make([]int16, frames*channels))
}

// Render samples a Waveform into interleaved 16-bit PCM.
func Render(sampleRate, channels int, seconds float64, w Waveform) []int16 {
	frames := int(math.Round(seconds * float64(sampleRate)))
	out := make([]int16, frames*channels)
	for f := range frames {
		for ch := range channels {
			v := math.Round(float64(w(f, ch)) * 32767)
			out[f*channels+ch] = int16(max(-32768, min(32767, v)))
		}
	}
	return out
}

// WithListChunk inserts a LIST chunk between the fmt and data chunks of a
// canonical WAV, the layout many recorders and browsers produce.
func WithListChunk(wav []byte) []byte {
	list := []byte("LIST\x0c\x00\x00\x00INFOISFT\x00\x00\x00\x00")
	out := make([]byte, 0, len(wav)+len(list))
	out = append(out, wav[:36]...)
	out = append(out, list...)
	out = append(out, wav[36:]...)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(out)-8))
	return out
}

func wavPCM(sampleRate, channels, bits int, writeData func(*bytes.Buffer), dataSize int) []byte {
	buf := new(bytes.Buffer)
	blockAlign := channels * bits / 8

	buf.WriteString("RIFF")
	_ = binary.Write(buf, binary.LittleEndian, uint32(36+dataSize))
	buf.WriteString("WAVE")

	buf.WriteString("fmt ")
	_ = binary.Write(buf, binary.LittleEndian, uint32(16))
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, uint16(channels))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	_ = binary.Write(buf, binary.LittleEndian, uint32(sampleRate*blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(blockAlign))
	_ = binary.Write(buf, binary.LittleEndian, uint16(bits))

	buf.WriteString("data")
	_ = binary.Write(buf, binary.LittleEndian, uint32(dataSize))
	writeData(buf)

	return buf.Bytes()
}
