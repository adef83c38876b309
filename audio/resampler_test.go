// SPDX-License-Identifier: EPL-2.0

package audio

import (
	"errors"
	"io"
	"math"
	"testing"

	"github.com/ik5/audclass/internal/audiotest"
)

// readAll drains src with a buffer of bufSize samples.
func readAll(t testing.TB, src Source, bufSize int) []float32 {
	t.Helper()

	buf := make([]float32, bufSize)
	var out []float32
	for {
		n, err := src.ReadSamples(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			return out
		}
		if err != nil {
			t.Fatalf("ReadSamples() error = %v", err)
		}
	}
}

func TestResampler_Metadata(t *testing.T) {
	t.Parallel()

	resampler := NewResampler(audiotest.NewSilentSource(44100, 2, 1000), 8000)

	if resampler.SampleRate() != 8000 {
		t.Errorf("Resampler.SampleRate() = %d, want 8000", resampler.SampleRate())
	}
	if resampler.Channels() != 2 {
		t.Errorf("Resampler.Channels() = %d, want 2", resampler.Channels())
	}
}

func TestResampler_OutputLength(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		srcRate int
		dstRate int
		frames  int
		want    int
	}{
		{"44.1k to 22.05k", 44100, 22050, 44100, 22050},
		{"48k to 22.05k", 48000, 22050, 48000, 22050},
		{"44.1k to 16k", 44100, 16000, 44100, 16000},
		{"8k to 22.05k", 8000, 22050, 8000, 22050},
		{"16k to 22.05k", 16000, 22050, 16000, 22050},
		{"8k to 48k", 8000, 48000, 8000, 48000},
		{"96k to 8k", 96000, 8000, 96000, 8000},
		{"partial second", 44100, 22050, 1001, 501},
		{"single frame", 44100, 22050, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			src := audiotest.NewSineSource(tt.srcRate, 1, tt.frames, 440)
			got := readAll(t, NewResampler(src, tt.dstRate), 1024)

			if len(got) != tt.want {
				t.Errorf("resampled %d samples, want %d", len(got), tt.want)
			}
			for i, s := range got {
				if s < -1.5 || s > 1.5 {
					t.Fatalf("samples[%d] = %v, outside [-1.5, 1.5]", i, s)
				}
			}
		})
	}
}

func TestResampler_SameRatePassthrough(t *testing.T) {
	t.Parallel()

	src := audiotest.NewRampSource(22050, 2, 500, 0.001)
	got := readAll(t, NewResampler(src, 22050), 256)

	if len(got) != 1000 {
		t.Fatalf("read %d samples, want 1000", len(got))
	}
	for i, s := range got {
		want := float32(i/2) * 0.001
		if s != want {
			t.Fatalf("samples[%d] = %v, want %v", i, s, want)
		}
	}
}

// Catmull-Rom reproduces linear signals, so upsampling a ramp by two must
// hit the input on even outputs and the midpoint on odd ones.
func TestResampler_FirstFrameAndLinearity(t *testing.T) {
	t.Parallel()

	const step = 0.001
	src := audiotest.NewRampSource(8000, 1, 200, step)
	got := readAll(t, NewResampler(src, 16000), 64)

	if len(got) != 400 {
		t.Fatalf("read %d samples, want 400", len(got))
	}
	if got[0] != 0 {
		t.Errorf("first sample = %v, want the first input frame", got[0])
	}

	for j := 2; j < len(got)-4; j++ {
		want := float64(j) / 2 * step
		if math.Abs(float64(got[j])-want) > 1e-5 {
			t.Fatalf("samples[%d] = %v, want %v", j, got[j], want)
		}
	}
}

func TestResampler_DownsamplingKeepsDC(t *testing.T) {
	t.Parallel()

	src := audiotest.NewConstantSource(44100, 1, 4410, 0.5)
	got := readAll(t, NewResampler(src, 22050), 512)

	for i, s := range got {
		if math.Abs(float64(s-0.5)) > 1e-6 {
			t.Fatalf("samples[%d] = %v, want 0.5", i, s)
		}
	}
}

func TestResampler_StereoPreserved(t *testing.T) {
	t.Parallel()

	src := audiotest.NewMockSource(44100, 2, 1000, func(_ int, channel int) float32 {
		if channel == 0 {
			return 0.3
		}
		return 0.7
	})
	got := readAll(t, NewResampler(src, 8000), 20)

	for f := range len(got) / 2 {
		if math.Abs(float64(got[f*2]-0.3)) > 1e-5 {
			t.Errorf("frame[%d] left = %v, want 0.3", f, got[f*2])
		}
		if math.Abs(float64(got[f*2+1]-0.7)) > 1e-5 {
			t.Errorf("frame[%d] right = %v, want 0.7", f, got[f*2+1])
		}
	}
}

func TestResampler_InvalidDstSize(t *testing.T) {
	t.Parallel()

	resampler := NewResampler(audiotest.NewSilentSource(44100, 2, 100), 8000)

	_, err := resampler.ReadSamples(make([]float32, 3))
	if !errors.Is(err, ErrInvalidDstSize) {
		t.Errorf("ReadSamples() error = %v, want %v", err, ErrInvalidDstSize)
	}
}

func TestResampler_EmptySource(t *testing.T) {
	t.Parallel()

	resampler := NewResampler(audiotest.NewSilentSource(44100, 1, 0), 22050)

	n, err := resampler.ReadSamples(make([]float32, 64))
	if n != 0 || err != io.EOF {
		t.Errorf("ReadSamples() = (%d, %v), want (0, EOF)", n, err)
	}
}

func TestResampler_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	src := audiotest.NewSineSource(44100, 1, 5000, 440)
	src.ReadErr = boom

	resampler := NewResampler(src, 22050)
	buf := make([]float32, 1024)

	for range 100 {
		_, err := resampler.ReadSamples(buf)
		if err == nil {
			continue
		}
		if !errors.Is(err, boom) {
			t.Fatalf("ReadSamples() error = %v, want %v", err, boom)
		}
		return
	}
	t.Fatal("source error was never reported")
}

func TestResampler_SmallBuffer(t *testing.T) {
	t.Parallel()

	big := readAll(t, NewResampler(audiotest.NewSineSource(44100, 1, 4410, 440), 22050), 4096)
	small := readAll(t, NewResampler(audiotest.NewSineSource(44100, 1, 4410, 440), 22050), 1)

	if len(big) != len(small) {
		t.Fatalf("buffer size changed output length: %d vs %d", len(big), len(small))
	}
	for i := range big {
		if big[i] != small[i] {
			t.Fatalf("samples[%d] differ: %v vs %v", i, big[i], small[i])
		}
	}
}

func BenchmarkResampler_Downsample(b *testing.B) {
	src := audiotest.NewSineSource(44100, 2, 44100, 440)
	buf := make([]float32, 4096)

	b.ReportAllocs()
	for b.Loop() {
		src.Reset()
		r := NewResampler(src, 22050)
		for {
			if _, err := r.ReadSamples(buf); err != nil {
				break
			}
		}
	}
}
