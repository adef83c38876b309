// SPDX-License-Identifier: EPL-2.0

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/preprocess"
)

// EnvPrefix prefixes every environment override, e.g.
// AUDCLASS_SERVER_ADDRESS for server.address.
const EnvPrefix = "AUDCLASS"

// Classification modes.
const (
	ModeAuto     = "auto"
	ModeSingle   = "single"
	ModeEnsemble = "ensemble"
)

var ErrInvalid = errors.New("invalid configuration")

// Config is the complete service configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Audio    AudioConfig    `mapstructure:"audio"`
	Features FeaturesConfig `mapstructure:"features"`
	Models   []ModelConfig  `mapstructure:"models"`
	Mode     string         `mapstructure:"mode"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// ServerConfig contains the HTTP surface settings.
type ServerConfig struct {
	Address           string        `mapstructure:"address"`
	MaxUploadBytes    int64         `mapstructure:"max_upload_bytes"`
	ReadTimeout       time.Duration `mapstructure:"read_timeout"`
	WriteTimeout      time.Duration `mapstructure:"write_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins       []string      `mapstructure:"cors_origins"`
	AllowedExtensions []string      `mapstructure:"allowed_extensions"`
}

// AudioConfig contains the normalization settings.
type AudioConfig struct {
	SampleRate    int    `mapstructure:"sample_rate"`
	DurationMs    int    `mapstructure:"duration_ms"`
	Resampler     string `mapstructure:"resampler"`
	MaxConcurrent int    `mapstructure:"max_concurrent"` // 0 means one per CPU
}

// FeaturesConfig contains the MFCC settings. They must match the models.
type FeaturesConfig struct {
	NumMFCC   int     `mapstructure:"num_mfcc"`
	FFTSize   int     `mapstructure:"n_fft"`
	HopLength int     `mapstructure:"hop_length"`
	NumMels   int     `mapstructure:"n_mels"`
	Frames    int     `mapstructure:"frames"`
	TopDB     float64 `mapstructure:"top_db"`
}

// ModelConfig names one model file.
type ModelConfig struct {
	Name string `mapstructure:"name"`
	Path string `mapstructure:"path"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"` // stdout, stderr or a file path
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

func setDefaults(v *viper.Viper) {
	pre := preprocess.DefaultConfig()

	v.SetDefault("server.address", ":5000")
	v.SetDefault("server.max_upload_bytes", 32<<20)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 60*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.allowed_extensions", []string{"wav", "mp3"})

	v.SetDefault("audio.sample_rate", pre.SampleRate)
	v.SetDefault("audio.duration_ms", pre.DurationMs)
	v.SetDefault("audio.resampler", pre.Resampler)
	v.SetDefault("audio.max_concurrent", 0)

	v.SetDefault("features.num_mfcc", pre.NumMFCC)
	v.SetDefault("features.n_fft", pre.FFTSize)
	v.SetDefault("features.hop_length", pre.HopLength)
	v.SetDefault("features.n_mels", pre.NumMels)
	v.SetDefault("features.frames", pre.Frames)
	v.SetDefault("features.top_db", pre.TopDB)

	v.SetDefault("models", []map[string]any{
		{"name": "LSTM", "path": "models/lstm.msgpack"},
		{"name": "BiLSTM", "path": "models/bilstm.msgpack"},
	})
	v.SetDefault("mode", ModeAuto)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
	v.SetDefault("logging.output", "stdout")

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

// Load reads the configuration. path may be empty to run on defaults and
// environment only. envFiles are loaded into the environment first without
// overriding variables already set; with none given, ./.env is tried and a
// missing file is not an error.
func Load(path string, envFiles ...string) (*Config, error) {
	if err := loadEnv(envFiles); err != nil {
		return nil, err
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

func loadEnv(files []string) error {
	if len(files) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Features.Validate(); err != nil {
		return fmt.Errorf("features config: %w", err)
	}
	if err := c.validateModels(); err != nil {
		return fmt.Errorf("models config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	// The assembled preprocessing config has its own cross-field checks.
	if err := c.Preprocess().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Address == "" {
		return fmt.Errorf("%w: address cannot be empty", ErrInvalid)
	}
	if s.MaxUploadBytes < 1024 {
		return fmt.Errorf("%w: max_upload_bytes must be at least 1024, got %d", ErrInvalid, s.MaxUploadBytes)
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("%w: shutdown_timeout must be positive, got %s", ErrInvalid, s.ShutdownTimeout)
	}
	if s.ReadTimeout < 0 || s.WriteTimeout < 0 {
		return fmt.Errorf("%w: timeouts cannot be negative", ErrInvalid)
	}
	if len(s.AllowedExtensions) == 0 {
		return fmt.Errorf("%w: allowed_extensions cannot be empty", ErrInvalid)
	}
	for _, ext := range s.AllowedExtensions {
		if ext == "" || strings.HasPrefix(ext, ".") || ext != strings.ToLower(ext) {
			return fmt.Errorf("%w: extension %q must be lower case without a dot", ErrInvalid, ext)
		}
	}
	return nil
}

func (a *AudioConfig) Validate() error {
	if a.SampleRate <= 0 {
		return fmt.Errorf("%w: sample_rate must be positive, got %d", ErrInvalid, a.SampleRate)
	}
	if a.DurationMs <= 0 {
		return fmt.Errorf("%w: duration_ms must be positive, got %d", ErrInvalid, a.DurationMs)
	}
	if a.Resampler != preprocess.ResamplerCubic && a.Resampler != preprocess.ResamplerSoxr {
		return fmt.Errorf("%w: resampler must be %q or %q, got %q",
			ErrInvalid, preprocess.ResamplerCubic, preprocess.ResamplerSoxr, a.Resampler)
	}
	if a.MaxConcurrent < 0 {
		return fmt.Errorf("%w: max_concurrent cannot be negative, got %d", ErrInvalid, a.MaxConcurrent)
	}
	return nil
}

func (f *FeaturesConfig) Validate() error {
	switch {
	case f.NumMFCC <= 0:
		return fmt.Errorf("%w: num_mfcc must be positive, got %d", ErrInvalid, f.NumMFCC)
	case f.FFTSize <= 0 || f.HopLength <= 0:
		return fmt.Errorf("%w: n_fft and hop_length must be positive", ErrInvalid)
	case f.NumMels < f.NumMFCC:
		return fmt.Errorf("%w: n_mels (%d) must be at least num_mfcc (%d)", ErrInvalid, f.NumMels, f.NumMFCC)
	case f.Frames <= 0:
		return fmt.Errorf("%w: frames must be positive, got %d", ErrInvalid, f.Frames)
	case f.TopDB <= 0:
		return fmt.Errorf("%w: top_db must be positive, got %v", ErrInvalid, f.TopDB)
	}
	return nil
}

func (c *Config) validateModels() error {
	switch c.Mode {
	case ModeAuto, ModeSingle, ModeEnsemble:
	default:
		return fmt.Errorf("%w: mode must be one of [auto, single, ensemble], got %q", ErrInvalid, c.Mode)
	}

	if len(c.Models) == 0 {
		return fmt.Errorf("%w: at least one model is required", ErrInvalid)
	}

	seen := make(map[string]bool, len(c.Models))
	for i, m := range c.Models {
		if m.Name == "" || m.Path == "" {
			return fmt.Errorf("%w: model %d needs a name and a path", ErrInvalid, i)
		}
		if seen[m.Name] {
			return fmt.Errorf("%w: duplicate model name %q", ErrInvalid, m.Name)
		}
		seen[m.Name] = true
	}
	return nil
}

func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("%w: level must be one of [debug, info, warn, error], got %q", ErrInvalid, l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("%w: format must be 'json' or 'text', got %q", ErrInvalid, l.Format)
	}

	if l.Output == "" {
		return fmt.Errorf("%w: output cannot be empty", ErrInvalid)
	}
	return nil
}

func (m *MetricsConfig) Validate() error {
	if m.Enabled && !strings.HasPrefix(m.Path, "/") {
		return fmt.Errorf("%w: path must start with '/', got %q", ErrInvalid, m.Path)
	}
	return nil
}

// Ensemble reports whether responses list every model. In auto mode that
// is the case when more than one model is configured.
func (c *Config) Ensemble() bool {
	switch c.Mode {
	case ModeEnsemble:
		return true
	case ModeSingle:
		return false
	default:
		return len(c.Models) > 1
	}
}

// ModelSpecs lists the models to load. Single mode only loads the first.
func (c *Config) ModelSpecs() []inference.ModelSpec {
	models := c.Models
	if !c.Ensemble() && len(models) > 1 {
		models = models[:1]
	}

	specs := make([]inference.ModelSpec, len(models))
	for i, m := range models {
		specs[i] = inference.ModelSpec{Name: m.Name, Path: m.Path}
	}
	return specs
}

// Preprocess assembles the pipeline constants.
func (c *Config) Preprocess() preprocess.Config {
	return preprocess.Config{
		SampleRate: c.Audio.SampleRate,
		DurationMs: c.Audio.DurationMs,
		Resampler:  c.Audio.Resampler,
		NumMFCC:    c.Features.NumMFCC,
		FFTSize:    c.Features.FFTSize,
		HopLength:  c.Features.HopLength,
		NumMels:    c.Features.NumMels,
		Frames:     c.Features.Frames,
		TopDB:      c.Features.TopDB,
	}
}

// Concurrency resolves the preprocessing limit.
func (a *AudioConfig) Concurrency() int {
	if a.MaxConcurrent > 0 {
		return a.MaxConcurrent
	}
	return runtime.NumCPU()
}
