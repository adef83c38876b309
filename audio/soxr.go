// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"fmt"
	"io"
	"math"
	"sync"

	resampling "github.com/tphakala/go-audio-resampling"
)

// SoxrResampler converts sample rate with a polyphase filter from
// go-audio-resampling. It is slower than Resampler but band-limited.
// Output is interleaved with the source channel count.
//
// Every channel runs through its own mono filter, primed with silence for
// the filter delay so output frame j lines up with source time j/dstRate.
// At the end of the source the filters are fed silence until exactly
// ceil(frames*dstRate/srcRate) frames came out, the same count Resampler
// produces.
type SoxrResampler struct {
	src      Source
	srcRate  int
	dstRate  int
	channels int

	rs      []resampling.Resampler
	in      []float32
	planar  [][]float64 // de-interleaved input block, per channel
	pending [][]float64 // filtered frames not handed out yet, per channel

	inFrames  int64
	outFrames int64
	eof       bool
}

// NewSoxrResampler returns a Source producing src at dstRate. When the
// rates are equal no filter is built and samples pass through.
func NewSoxrResampler(src Source, dstRate int) (*SoxrResampler, error) {
	if dstRate <= 0 || src.SampleRate() <= 0 {
		return nil, ErrInvalidRate
	}

	channels := max(src.Channels(), 1)
	block := max(src.BufSize(), 1024) / channels
	s := &SoxrResampler{
		src:      src,
		srcRate:  src.SampleRate(),
		dstRate:  dstRate,
		channels: channels,
		in:       make([]float32, block*channels),
	}

	if s.srcRate == dstRate {
		return s, nil
	}

	delay, err := filterDelay(s.srcRate, dstRate)
	if err != nil {
		return nil, err
	}

	s.rs = make([]resampling.Resampler, channels)
	s.planar = make([][]float64, channels)
	s.pending = make([][]float64, channels)
	lead := make([]float64, delay)
	for c := range channels {
		rs, err := newFilter(s.srcRate, dstRate)
		if err != nil {
			return nil, err
		}
		s.rs[c] = rs
		s.planar[c] = make([]float64, block)
		if delay == 0 {
			continue
		}
		if err := s.process(c, lead); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func newFilter(srcRate, dstRate int) (resampling.Resampler, error) {
	rs, err := resampling.New(&resampling.Config{
		InputRate:  float64(srcRate),
		OutputRate: float64(dstRate),
		Channels:   1,
		Quality:    resampling.QualitySpec{Preset: resampling.QualityHigh},
	})
	if err != nil {
		return nil, fmt.Errorf("create resampler: %w", err)
	}
	return rs, nil
}

// filterDelays caches filterDelay per [srcRate, dstRate].
var filterDelays sync.Map

// filterDelay is how many source frames the filter output runs ahead of
// its input. The filters start without history, so output frame j is
// centred on source frame j*srcRate/dstRate plus this delay. It is found
// once per rate pair from the peak of the impulse response.
func filterDelay(srcRate, dstRate int) (int, error) {
	key := [2]int{srcRate, dstRate}
	if d, ok := filterDelays.Load(key); ok {
		return d.(int), nil
	}

	rs, err := newFilter(srcRate, dstRate)
	if err != nil {
		return 0, err
	}

	offset := max(srcRate/4, 4096)
	impulse := make([]float64, 2*offset+1)
	impulse[offset] = 1
	out, err := rs.Process(impulse)
	if err != nil {
		return 0, fmt.Errorf("resample: %w", err)
	}

	if len(out) == 0 {
		return 0, nil
	}
	peak := 0
	for i, v := range out {
		if math.Abs(v) > math.Abs(out[peak]) {
			peak = i
		}
	}

	d := max(int(math.Round(float64(offset)-float64(peak)*float64(srcRate)/float64(dstRate))), 0)
	filterDelays.Store(key, d)
	return d, nil
}

func (s *SoxrResampler) SampleRate() int { return s.dstRate }
func (s *SoxrResampler) Channels() int   { return s.channels }
func (s *SoxrResampler) BufSize() int    { return s.src.BufSize() }

func (s *SoxrResampler) Close() error {
	if err := s.src.Close(); err != nil {
		return fmt.Errorf("%w", err)
	}
	return nil
}

func (s *SoxrResampler) ReadSamples(dst []float32) (int, error) {
	if len(dst)%s.channels != 0 {
		return 0, ErrInvalidDstSize
	}
	if s.rs == nil {
		return s.src.ReadSamples(dst)
	}

	// The filter may swallow a whole input block before emitting anything.
	for s.ready() == 0 {
		if s.eof {
			return 0, io.EOF
		}
		if err := s.fill(); err != nil {
			return 0, err
		}
	}

	frames := min(len(dst)/s.channels, s.ready())
	for c, p := range s.pending {
		for i := range frames {
			dst[i*s.channels+c] = float32(p[i])
		}
		s.pending[c] = p[frames:]
	}
	s.outFrames += int64(frames)

	if s.eof && s.ready() == 0 {
		return frames * s.channels, io.EOF
	}

	return frames * s.channels, nil
}

// want is the output length for the input seen so far.
func (s *SoxrResampler) want() int64 {
	return (s.inFrames*int64(s.dstRate) + int64(s.srcRate) - 1) / int64(s.srcRate)
}

// ready is the number of frames available on every channel. Past the end
// of the source it never exceeds want.
func (s *SoxrResampler) ready() int {
	n := s.buffered()
	if s.eof {
		n = int(min(int64(n), max(s.want()-s.outFrames, 0)))
	}
	return n
}

func (s *SoxrResampler) fill() error {
	n, err := s.src.ReadSamples(s.in)
	if err != nil {
		if err != io.EOF {
			return fmt.Errorf("%w", err)
		}
		s.eof = true
	}

	frames := n / s.channels
	if frames > 0 {
		for c := range s.channels {
			p := s.planar[c][:frames]
			for i := range p {
				p[i] = float64(s.in[i*s.channels+c])
			}
			if err := s.process(c, p); err != nil {
				return err
			}
		}
		s.inFrames += int64(frames)
	}

	if s.eof {
		return s.drain()
	}
	return nil
}

func (s *SoxrResampler) process(c int, in []float64) error {
	out, err := s.rs[c].Process(in)
	if err != nil {
		return fmt.Errorf("resample: %w", err)
	}
	s.pending[c] = append(s.pending[c], out...)
	return nil
}

// drain pushes silence through the filters until the tail they hold back
// came out. At most one second of silence is fed.
func (s *SoxrResampler) drain() error {
	silence := make([]float64, max(s.srcRate/20, 64))
	for fed := 0; fed < s.srcRate; fed += len(silence) {
		if s.outFrames+int64(s.buffered()) >= s.want() {
			return nil
		}
		for c := range s.channels {
			if err := s.process(c, silence); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *SoxrResampler) buffered() int {
	n := len(s.pending[0])
	for _, p := range s.pending[1:] {
		n = min(n, len(p))
	}
	return n
}
