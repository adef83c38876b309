// SPDX-License-Identifier: EPL-2.0

// Package aiff decodes uncompressed AIFF files (16, 24 and 32-bit PCM)
// with github.com/go-audio/aiff.
package aiff
