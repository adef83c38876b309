// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audclass/formats/wav"
	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/internal/audiotest"
	"github.com/ik5/audclass/internal/modeltest"
)

// setup writes two constant models and a config naming them. It returns
// the config and env file paths.
func setup(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	lstm := modeltest.Write(t, dir, modeltest.Constant("LSTM", 8, modeltest.Frames, modeltest.Coeffs))
	bilstm := modeltest.Write(t, dir, modeltest.Constant("BiLSTM", 1, modeltest.Frames, modeltest.Coeffs))

	cfg := fmt.Sprintf(`models:
  - name: LSTM
    path: %s
  - name: BiLSTM
    path: %s
mode: single
logging:
  output: stderr
`, lstm, bilstm)

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o600))
	envPath := filepath.Join(dir, "empty.env")
	require.NoError(t, os.WriteFile(envPath, nil, 0o600))

	return cfgPath, envPath
}

func writeClip(t *testing.T, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()

	cmd := NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(io.Discard)
	cmd.SetArgs(args)

	err := cmd.Execute()
	return out.String(), err
}

func TestClassify(t *testing.T) {
	cfg, env := setup(t)
	clip := writeClip(t, "siren.wav", audiotest.SineWAV(44100, 2, 2.5, 960, 0.5))

	// Single mode only affects serving; the CLI runs every model.
	out, err := run(t, "classify", "-c", cfg, "--env-file", env, clip)
	require.NoError(t, err)

	want := fmt.Sprintf("LSTM Prediction: siren (%.2f%%)\nBiLSTM Prediction: car_horn (%.2f%%)\n",
		modeltest.PeakConfidence*100, modeltest.PeakConfidence*100)
	assert.Equal(t, want, out)
}

func TestClassifySelectModel(t *testing.T) {
	cfg, env := setup(t)
	clip := writeClip(t, "siren.wav", audiotest.SineWAV(22050, 1, 1, 440, 0.3))

	out, err := run(t, "classify", "-c", cfg, "--env-file", env, "-m", "BiLSTM", clip)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("BiLSTM Prediction: car_horn (%.2f%%)\n", modeltest.PeakConfidence*100), out)

	_, err = run(t, "classify", "-c", cfg, "--env-file", env, "-m", "CNN", clip)
	assert.ErrorContains(t, err, `model "CNN" is not configured`)
}

func TestClassifyJSON(t *testing.T) {
	cfg, env := setup(t)
	a := writeClip(t, "a.wav", audiotest.SilentWAV(22050, 1, 4))
	b := writeClip(t, "b.wav", audiotest.SineWAV(8000, 1, 6, 300, 0.4))

	out, err := run(t, "classify", "-c", cfg, "--env-file", env, "--json", a, b)
	require.NoError(t, err)

	var got map[string]map[string]struct {
		Prediction string  `json:"prediction"`
		Confidence float64 `json:"confidence"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	require.Len(t, got, 2)
	for _, path := range []string{a, b} {
		assert.Equal(t, "siren", got[path]["LSTM"].Prediction)
		assert.Equal(t, "car_horn", got[path]["BiLSTM"].Prediction)
		assert.InDelta(t, modeltest.PeakConfidence, got[path]["LSTM"].Confidence, 1e-9)
	}
}

func TestClassifyRejectsUpload(t *testing.T) {
	cfg, env := setup(t)
	notes := writeClip(t, "notes.txt", []byte("hello"))

	_, err := run(t, "classify", "-c", cfg, "--env-file", env, notes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unsupported file format. Use WAV or MP3")

	_, err = run(t, "classify", "-c", cfg, "--env-file", env, filepath.Join(t.TempDir(), "missing.wav"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestClassifyMissingModelFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`models:
  - name: LSTM
    path: `+filepath.Join(dir, "nope.msgpack")+"\n"), 0o600))
	env := filepath.Join(dir, "empty.env")
	require.NoError(t, os.WriteFile(env, nil, 0o600))
	clip := writeClip(t, "a.wav", audiotest.SilentWAV(22050, 1, 1))

	_, err := run(t, "classify", "-c", cfgPath, "--env-file", env, clip)
	assert.ErrorContains(t, err, "load models")
}

func TestNormalize(t *testing.T) {
	cfg, env := setup(t)
	in := writeClip(t, "long.wav", audiotest.SineWAV(44100, 2, 6, 440, 0.5))
	outPath := filepath.Join(t.TempDir(), "out.wav")

	out, err := run(t, "normalize", "-c", cfg, "--env-file", env, in, outPath)
	require.NoError(t, err)
	assert.Contains(t, out, "88200 samples at 22050 Hz (4s)")

	f, err := os.Open(outPath)
	require.NoError(t, err)
	defer f.Close()

	src, err := wav.Decoder{}.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 22050, src.SampleRate())
	assert.Equal(t, 1, src.Channels())

	total := 0
	buf := make([]float32, 4096)
	for {
		n, err := src.ReadSamples(buf)
		total += n
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
	}
	assert.Equal(t, 88200, total)
}

func TestFeatures(t *testing.T) {
	cfg, env := setup(t)
	clip := writeClip(t, "clip.wav", audiotest.SineWAV(16000, 1, 2, 1000, 0.5))

	out, err := run(t, "features", "-c", cfg, "--env-file", env, clip)
	require.NoError(t, err)
	assert.Equal(t, clip+": 173 frames x 13 coefficients\n", out)

	out, err = run(t, "features", "-c", cfg, "--env-file", env, "--json", clip)
	require.NoError(t, err)

	var rows [][]float64
	require.NoError(t, json.Unmarshal([]byte(out), &rows))
	require.Len(t, rows, modeltest.Frames)
	assert.Len(t, rows[0], modeltest.Coeffs)
}

func TestVersion(t *testing.T) {
	out, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "audclass dev")
}

func TestSelectModels(t *testing.T) {
	t.Parallel()

	_, err := selectModels(nil, nil)
	assert.ErrorIs(t, err, inference.ErrNoModels)
}
