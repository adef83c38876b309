// SPDX-License-Identifier: EPL-2.0

// Package mp3 decodes MPEG-1/2 Layer III streams with
// github.com/hajimehoshi/go-mp3.
//
// The decoder always yields stereo at the stream's sample rate; mono files
// come out with both channels equal, so a downmix restores them exactly.
//
//	src, err := mp3.Decoder{}.Decode(bytes.NewReader(data))
package mp3
