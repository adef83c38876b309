// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"

	"github.com/ik5/audclass/utils"
)

// Resampler streams from src to a target sample rate using Catmull-Rom
// cubic interpolation. It works on interleaved samples and preserves the
// channel count. When downsampling a one-pole low-pass runs over the input
// to tame aliasing.
//
// Output frame j sits at source position j*srcRate/dstRate, computed in
// integers so the output length is exact. The first output frame is the
// first input frame. Edge frames are repeated where the
// spline needs neighbours before the start or past the end. When the rates
// match, samples pass through untouched.
type Resampler struct {
	src      Source
	srcRate  int64
	dstRate  int
	channels int

	// frames[0..3] hold source frames k-1, k, k+1, k+2.
	frames  [4][]float32
	started bool
	k       int   // index of frames[1] in the source stream
	j       int64 // next output frame

	// total is the number of source frames, known once src hits EOF.
	total int
	eof   bool

	in    []float32 // buffered source samples
	inPos int
	inLen int
	err   error

	filterState []float32
	useFilter   bool
	primed      bool
	filterAlpha float32
}

func NewResampler(src Source, dstRate int) *Resampler {
	channels := max(src.Channels(), 1)

	r := &Resampler{
		src:         src,
		srcRate:     int64(src.SampleRate()),
		dstRate:     dstRate,
		channels:    channels,
		total:       -1,
		in:          make([]float32, max(src.BufSize(), 1024)/channels*channels),
		filterState: make([]float32, channels),
		useFilter:   src.SampleRate() > dstRate,
		filterAlpha: 0.5,
	}
	for i := range r.frames {
		r.frames[i] = make([]float32, channels)
	}

	return r
}

func (r *Resampler) SampleRate() int { return r.dstRate }
func (r *Resampler) Channels() int   { return r.channels }
func (r *Resampler) BufSize() int    { return r.src.BufSize() }

func (r *Resampler) Close() error {
	if err := r.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

// readFrame copies the next source frame into dst. It returns false once the
// source is exhausted; a non-EOF source error is kept in r.err.
func (r *Resampler) readFrame(dst []float32) bool {
	for r.inPos+r.channels > r.inLen {
		if r.eof {
			return false
		}
		n, err := r.src.ReadSamples(r.in)
		r.inPos, r.inLen = 0, n-n%r.channels
		if err != nil {
			r.eof = true
			if err != io.EOF {
				r.err = err
			}
		}
		if r.inLen == 0 && !r.eof {
			continue
		}
	}

	copy(dst, r.in[r.inPos:r.inPos+r.channels])
	r.inPos += r.channels

	if r.useFilter {
		if !r.primed {
			// Seed with the first frame so the output does not fade in.
			copy(r.filterState, dst)
			r.primed = true
		}
		for c := range r.channels {
			dst[c] = r.filterAlpha*dst[c] + (1-r.filterAlpha)*r.filterState[c]
			r.filterState[c] = dst[c]
		}
	}

	return true
}

// loadFrame fills slot i with the source frame at index idx, repeating the
// previous slot when idx lies past the end of the stream.
func (r *Resampler) loadFrame(i, idx int) {
	if r.total < 0 && r.readFrame(r.frames[i]) {
		return
	}
	if r.total < 0 {
		r.total = idx
	}
	copy(r.frames[i], r.frames[i-1])
}

func (r *Resampler) start() bool {
	r.started = true
	if !r.readFrame(r.frames[1]) {
		r.total = 0
		return false
	}
	copy(r.frames[0], r.frames[1])
	r.loadFrame(2, 1)
	r.loadFrame(3, 2)

	return true
}

// done reports whether source frame k lies past the end of the stream. The
// end is only known once the look-ahead slot ran into EOF.
func (r *Resampler) done(k int) bool {
	return r.total >= 0 && k >= r.total
}

func (r *Resampler) advance() {
	copy(r.frames[0], r.frames[1])
	copy(r.frames[1], r.frames[2])
	copy(r.frames[2], r.frames[3])
	r.k++
	r.loadFrame(3, r.k+2)
}

// ReadSamples produces dst samples at the target rate.
// dst length should be a multiple of the channel count.
func (r *Resampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%r.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if r.srcRate == int64(r.dstRate) {
		return r.src.ReadSamples(dst)
	}

	if !r.started && !r.start() {
		if r.err != nil {
			return 0, fmt.Errorf("%w", r.err)
		}
		return 0, io.EOF
	}

	dstRate := int64(r.dstRate)
	written := 0
	for written < len(dst)/r.channels {
		num := r.j * r.srcRate
		k := int(num / dstRate)
		for r.k < k {
			r.advance()
		}
		if r.done(k) {
			break
		}

		x := float32(num%dstRate) / float32(dstRate)
		out := dst[written*r.channels:]
		for c := range r.channels {
			out[c] = utils.CubicInterpolate(r.frames[0][c], r.frames[1][c], r.frames[2][c], r.frames[3][c], x)
		}

		written++
		r.j++
	}

	if r.err != nil {
		return written * r.channels, fmt.Errorf("%w", r.err)
	}
	if r.done(int((r.j * r.srcRate) / dstRate)) {
		return written * r.channels, io.EOF
	}

	return written * r.channels, nil
}
