// SPDX-License-Identifier: EPL-2.0

package server_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ik5/audclass"
	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/internal/audiotest"
	"github.com/ik5/audclass/internal/metrics"
	"github.com/ik5/audclass/internal/modeltest"
	"github.com/ik5/audclass/internal/server"
	"github.com/ik5/audclass/preprocess"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type brokenModel struct{ name string }

func (b brokenModel) Name() string { return b.name }

func (b brokenModel) InputShape() (int, int) { return modeltest.Frames, modeltest.Coeffs }

func (b brokenModel) Predict(*preprocess.FeatureMatrix) ([]float64, error) {
	return nil, errors.New("weights not loaded")
}

func newHandler(t *testing.T, models []inference.Classifier, opts server.Options) http.Handler {
	t.Helper()

	set, err := inference.NewSet(models...)
	require.NoError(t, err)
	svc, err := audclass.New(audclass.Options{Models: set})
	require.NoError(t, err)

	opts.Service = svc
	srv, err := server.New(opts)
	require.NoError(t, err)
	return srv.Handler()
}

func constant(t *testing.T, name string, peak int) inference.Classifier {
	t.Helper()
	return modeltest.Build(t, modeltest.Constant(name, peak, modeltest.Frames, modeltest.Coeffs))
}

func upload(t *testing.T, field, filename string, data []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile(field, filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/classify", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func serve(h http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestClassifyShortSilence(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 8)}, server.Options{})
	rec := serve(h, upload(t, "audio", "silence.wav", audiotest.SilentWAV(22050, 1, 1)))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "siren", body["prediction"])
	assert.InDelta(t, modeltest.PeakConfidence, body["confidence"], 1e-9)
}

func TestClassifyLongClipIsTruncated(t *testing.T) {
	t.Parallel()

	const rate = 22050
	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 2)}, server.Options{})

	long := audiotest.Render(rate, 1, 10, audiotest.Sine(rate, 220, 0.4))
	full := serve(h, upload(t, "audio", "long.wav", audiotest.WAV16(rate, 1, long)))
	cut := serve(h, upload(t, "audio", "cut.wav", audiotest.WAV16(rate, 1, long[:4*rate])))

	require.Equal(t, http.StatusOK, full.Code)
	assert.JSONEq(t, cut.Body.String(), full.Body.String())
}

func TestClassifyRejections(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{})

	plain := httptest.NewRequest(http.MethodPost, "/classify", strings.NewReader("hello"))
	plain.Header.Set("Content-Type", "text/plain")

	tests := []struct {
		name    string
		req     *http.Request
		message string
	}{
		{"text file", upload(t, "audio", "notes.txt", []byte("hello")), "Unsupported file format. Use WAV or MP3"},
		{"wrong field", upload(t, "file", "dog.wav", audiotest.SilentWAV(22050, 1, 1)), "No audio file provided"},
		{"not multipart", plain, "No audio file provided"},
		{"empty file", upload(t, "audio", "empty.wav", nil), "No audio file provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(h, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.message, decode(t, rec)["error"])
		})
	}
}

func TestClassifyCorruptAudio(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{})
	rec := serve(h, upload(t, "audio", "broken.wav", []byte("definitely not a riff header")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "decode")
}

func TestClassifyTooLarge(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{MaxUploadBytes: 4096})
	data := audiotest.SilentWAV(22050, 1, 1)

	t.Run("declared length", func(t *testing.T) {
		rec := serve(h, upload(t, "audio", "big.wav", data))
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
		assert.Contains(t, decode(t, rec)["error"], "too large")
	})

	t.Run("unknown length", func(t *testing.T) {
		req := upload(t, "audio", "big.wav", data)
		req.ContentLength = -1
		rec := serve(h, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestClassifySingleModelFailure(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{brokenModel{name: "LSTM"}}, server.Options{})
	rec := serve(h, upload(t, "audio", "dog.wav", audiotest.SineWAV(22050, 1, 1, 440, 0.5)))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, decode(t, rec)["error"], "weights not loaded")
}

func TestClassifyEnsemble(t *testing.T) {
	t.Parallel()

	clip := audiotest.SineWAV(44100, 2, 3, 660, 0.5)

	t.Run("every model reports", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, []inference.Classifier{
			constant(t, "LSTM", 3),
			constant(t, "BiLSTM", 9),
		}, server.Options{Ensemble: true})

		rec := serve(h, upload(t, "audio", "clip.wav", clip))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		body := decode(t, rec)
		require.Len(t, body, 2)
		for name, want := range map[string]string{"LSTM": "dog_bark", "BiLSTM": "street_music"} {
			entry, ok := body[name].(map[string]any)
			require.True(t, ok, name)
			assert.Equal(t, want, entry["prediction"])

			conf, ok := entry["confidence"].(float64)
			require.True(t, ok)
			assert.GreaterOrEqual(t, conf, 0.0)
			assert.LessOrEqual(t, conf, 1.0)
		}
	})

	t.Run("failing model is marked", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, []inference.Classifier{
			constant(t, "LSTM", 3),
			brokenModel{name: "BiLSTM"},
		}, server.Options{Ensemble: true})

		rec := serve(h, upload(t, "audio", "clip.wav", clip))
		require.Equal(t, http.StatusOK, rec.Code)

		body := decode(t, rec)
		assert.Equal(t, "dog_bark", body["LSTM"].(map[string]any)["prediction"])
		assert.Contains(t, body["BiLSTM"].(map[string]any)["error"], "weights not loaded")
	})

	t.Run("no model available", func(t *testing.T) {
		t.Parallel()

		h := newHandler(t, []inference.Classifier{
			brokenModel{name: "LSTM"},
			brokenModel{name: "BiLSTM"},
		}, server.Options{Ensemble: true})

		rec := serve(h, upload(t, "audio", "clip.wav", clip))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.NotEmpty(t, decode(t, rec)["error"])
	})
}

func TestHealthAndModels(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{
		constant(t, "LSTM", 0),
		constant(t, "BiLSTM", 1),
	}, server.Options{Ensemble: true})

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok","models":["LSTM","BiLSTM"]}`, rec.Body.String())

	rec = serve(h, httptest.NewRequest(http.MethodGet, "/models", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Mode   string   `json:"mode"`
		Labels []string `json:"labels"`
		Models []struct {
			Name       string `json:"name"`
			InputShape []int  `json:"input_shape"`
		} `json:"models"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ensemble", body.Mode)
	assert.Equal(t, inference.Labels(), body.Labels)
	require.Len(t, body.Models, 2)
	assert.Equal(t, "BiLSTM", body.Models[1].Name)
	assert.Equal(t, []int{173, 13}, body.Models[1].InputShape)
}

func TestMetricsEndpoint(t *testing.T) {
	t.Parallel()

	m := metrics.New()
	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{Metrics: m})

	serve(h, upload(t, "audio", "a.wav", audiotest.SilentWAV(22050, 1, 0.5)))

	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `audclass_http_requests_total{endpoint="/classify",method="POST",status_code="200"} 1`)
	assert.Contains(t, string(body), `audclass_model_inferences_total{model="LSTM",outcome="ok"} 1`)
}

func TestMetricsDisabled(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{})
	rec := serve(h, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCORS(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{
		CORSOrigins: []string{"http://localhost:3000"},
	})

	pre := httptest.NewRequest(http.MethodOptions, "/classify", nil)
	pre.Header.Set("Origin", "http://localhost:3000")
	rec := serve(h, pre)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:3000", rec.Header().Get("Access-Control-Allow-Origin"))

	other := httptest.NewRequest(http.MethodGet, "/health", nil)
	other.Header.Set("Origin", "http://evil.example")
	rec = serve(h, other)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestRequestIDHeader(t *testing.T) {
	t.Parallel()

	h := newHandler(t, []inference.Classifier{constant(t, "LSTM", 0)}, server.Options{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-42")
	assert.Equal(t, "req-42", serve(h, req).Header().Get("X-Request-ID"))

	generated := serve(h, httptest.NewRequest(http.MethodGet, "/health", nil)).Header().Get("X-Request-ID")
	assert.Len(t, generated, 36)
}

func TestNewRequiresService(t *testing.T) {
	t.Parallel()

	_, err := server.New(server.Options{})
	assert.Error(t, err)

	bare, err := audclass.New(audclass.Options{})
	require.NoError(t, err)
	_, err = server.New(server.Options{Service: bare})
	assert.ErrorIs(t, err, inference.ErrNoModels)
}
