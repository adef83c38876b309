// SPDX-License-Identifier: EPL-2.0

package aiff

import "errors"

var (
	ErrNotAiffFile           = errors.New("not an AIFF file")
	ErrUnsupportedBitDepth   = errors.New("unsupported AIFF bit depth, 16, 24 or 32-bit PCM required")
	ErrUnsupportedAiffLayout = errors.New("unsupported AIFF layout")
)
