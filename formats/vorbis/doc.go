// SPDX-License-Identifier: EPL-2.0

// Package vorbis decodes Ogg Vorbis streams with
// github.com/jfreymuth/oggvorbis. Samples keep the stream's channel layout
// and sample rate.
package vorbis
