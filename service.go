// SPDX-License-Identifier: EPL-2.0

package audclass

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/ik5/audclass/audio"
	"github.com/ik5/audclass/formats"
	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/preprocess"
)

// Options configures a Service. Without Models the service can only
// preprocess.
type Options struct {
	Preprocess preprocess.Config // zero value means preprocess.DefaultConfig()
	Registry   *audio.Registry   // defaults to formats.NewRegistry()
	Models     *inference.Set

	// AllowedExtensions lists accepted upload extensions, lower case and
	// without the dot. Defaults to DefaultExtensions.
	AllowedExtensions []string

	// MaxConcurrent bounds concurrent preprocessing. Defaults to
	// runtime.NumCPU().
	MaxConcurrent int

	Logger   *slog.Logger
	Observer Observer
}

// Service runs uploads through the classification pipeline.
type Service struct {
	normalizer *preprocess.Normalizer
	extractor  *preprocess.Extractor
	models     *inference.Set
	allowed    []string
	slots      *semaphore.Weighted
	log        *slog.Logger
	obs        Observer
}

// New builds a Service and checks every model accepts the feature shape
// the extractor produces.
func New(opts Options) (*Service, error) {
	cfg := opts.Preprocess
	if cfg == (preprocess.Config{}) {
		cfg = preprocess.DefaultConfig()
	}
	registry := opts.Registry
	if registry == nil {
		registry = formats.NewRegistry()
	}

	normalizer, err := preprocess.NewNormalizer(registry, cfg)
	if err != nil {
		return nil, fmt.Errorf("normalizer: %w", err)
	}
	extractor, err := preprocess.NewExtractor(cfg)
	if err != nil {
		return nil, fmt.Errorf("extractor: %w", err)
	}

	if opts.Models != nil {
		frames, coeffs := extractor.Shape()
		for _, m := range opts.Models.Models() {
			if f, c := m.InputShape(); f != frames || c != coeffs {
				return nil, fmt.Errorf("%w: %s takes (%d, %d), features are (%d, %d)",
					inference.ErrShapeMismatch, m.Name(), f, c, frames, coeffs)
			}
		}
	}

	s := &Service{
		normalizer: normalizer,
		extractor:  extractor,
		models:     opts.Models,
		allowed:    opts.AllowedExtensions,
		log:        opts.Logger,
		obs:        opts.Observer,
	}
	if len(s.allowed) == 0 {
		s.allowed = DefaultExtensions
	}
	if s.log == nil {
		s.log = slog.New(slog.DiscardHandler)
	}
	if s.obs == nil {
		s.obs = nopObserver{}
	}

	limit := opts.MaxConcurrent
	if limit <= 0 {
		limit = runtime.NumCPU()
	}
	s.slots = semaphore.NewWeighted(int64(limit))

	return s, nil
}

// Models returns the loaded models in configuration order.
func (s *Service) Models() []inference.Classifier {
	if s.models == nil {
		return nil
	}
	return s.models.Models()
}

// AllowedExtensions returns the accepted upload extensions.
func (s *Service) AllowedExtensions() []string { return append([]string(nil), s.allowed...) }

// FeatureShape is the (frames, coefficients) shape every model receives.
func (s *Service) FeatureShape() (int, int) { return s.extractor.Shape() }

// Classify validates up, preprocesses it and runs it through every model.
// The returned report always has one Outcome per model when the error is
// nil or wraps ErrNoModelResult.
func (s *Service) Classify(ctx context.Context, up Upload) (*inference.Report, error) {
	if s.models == nil {
		return nil, inference.ErrNoModels
	}
	log := s.requestLogger(ctx, up)

	x, err := s.preprocess(ctx, up, log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report := inference.Classify(ctx, x, s.models)
	elapsed := time.Since(start)

	var errs []error
	for _, o := range report.Outcomes {
		s.obs.ModelDone(o.Model, o.Elapsed, o.Err)
		if o.Err != nil {
			errs = append(errs, o.Err)
			log.Error("model failed", "model", o.Model, "error", o.Err)
			continue
		}
		log.Info("prediction",
			"model", o.Model,
			"label", o.Result.Label,
			"confidence", o.Result.Confidence,
			"elapsed", o.Elapsed,
		)
	}

	if report.Succeeded() == 0 {
		err := fmt.Errorf("%w: %w", ErrNoModelResult, errors.Join(errs...))
		s.obs.StageDone(StageInference, elapsed, err)
		return report, err
	}
	s.obs.StageDone(StageInference, elapsed, nil)

	return report, nil
}

// Preprocess validates up and turns it into the feature matrix the models
// receive.
func (s *Service) Preprocess(ctx context.Context, up Upload) (*preprocess.FeatureMatrix, error) {
	return s.preprocess(ctx, up, s.requestLogger(ctx, up))
}

// Normalize validates up and returns the fixed-length waveform features
// are computed from.
func (s *Service) Normalize(ctx context.Context, up Upload) (*preprocess.Waveform, error) {
	log := s.requestLogger(ctx, up)
	if err := validate(up, s.allowed); err != nil {
		log.Debug("upload rejected", "error", err)
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	return s.normalize(up, log)
}

func (s *Service) preprocess(ctx context.Context, up Upload, log *slog.Logger) (*preprocess.FeatureMatrix, error) {
	if err := validate(up, s.allowed); err != nil {
		log.Debug("upload rejected", "error", err)
		return nil, err
	}

	release, err := s.acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	w, err := s.normalize(up, log)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	x, err := s.extractor.Extract(w)
	s.obs.StageDone(StageFeatures, time.Since(start), err)
	if err != nil {
		log.Error("feature extraction failed", "error", err)
		return nil, err
	}

	return x, nil
}

func (s *Service) normalize(up Upload, log *slog.Logger) (*preprocess.Waveform, error) {
	start := time.Now()
	w, err := s.normalizer.Normalize(up.Data, up.Format())
	elapsed := time.Since(start)
	s.obs.StageDone(StageNormalize, elapsed, err)
	if err != nil {
		log.Error("normalization failed", "error", err)
		return nil, err
	}

	log.Debug("normalized", "bytes", len(up.Data), "elapsed", elapsed)
	return w, nil
}

// acquire waits for a preprocessing slot.
func (s *Service) acquire(ctx context.Context) (func(), error) {
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("wait for preprocessing slot: %w", err)
	}
	s.obs.InFlight(1)

	return func() {
		s.obs.InFlight(-1)
		s.slots.Release(1)
	}, nil
}

type requestIDKey struct{}

// WithRequestID tags ctx so the service logs under id instead of a fresh
// one.
func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, id)
}

// RequestID returns the id set by WithRequestID.
func RequestID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(requestIDKey{}).(string)
	return id, ok && id != ""
}

func (s *Service) requestLogger(ctx context.Context, up Upload) *slog.Logger {
	id, ok := RequestID(ctx)
	if !ok {
		id = uuid.NewString()
	}
	return s.log.With("request_id", id, "filename", up.Filename)
}
