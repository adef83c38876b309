// SPDX-License-Identifier: EPL-2.0

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ik5/audclass"
	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/internal/metrics"
)

// Options configures a Server. Service is required.
type Options struct {
	Service *audclass.Service

	// Ensemble makes /classify answer with one entry per model instead of
	// the first model's prediction alone.
	Ensemble bool

	Address        string
	MaxUploadBytes int64
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	CORSOrigins    []string

	Metrics     *metrics.Metrics // nil disables /metrics
	MetricsPath string

	Logger *slog.Logger
}

// Server is the HTTP front of a Service.
type Server struct {
	opts   Options
	engine *gin.Engine
	server *http.Server
	logger *slog.Logger
}

func New(opts Options) (*Server, error) {
	if opts.Service == nil {
		return nil, errors.New("server: nil service")
	}
	if len(opts.Service.Models()) == 0 {
		return nil, fmt.Errorf("server: %w", inference.ErrNoModels)
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 32 << 20
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	s := &Server{opts: opts, logger: opts.Logger}
	s.engine = gin.New()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              opts.Address,
		Handler:           s.engine,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}

	return s, nil
}

func (s *Server) setupRoutes() {
	s.engine.Use(
		gin.Recovery(),
		requestID(),
		s.withMetrics(),
		s.accessLog(),
		cors(s.opts.CORSOrigins),
	)

	s.engine.POST("/classify", s.handleClassify)
	s.engine.GET("/health", s.handleHealth)
	s.engine.GET("/models", s.handleModels)

	if s.opts.Metrics != nil {
		s.engine.GET(s.opts.MetricsPath, gin.WrapH(s.opts.Metrics.Handler()))
	}
}

// Handler returns the routed handler, mostly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Start listens on the configured address and serves in the background.
// Listen errors are returned; later serve errors are logged.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.server.Addr, err)
	}

	s.logger.Info("Starting HTTP server", slog.String("address", ln.Addr().String()))

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", slog.String("error", err.Error()))
		}
	}()

	return nil
}

// Stop gracefully stops the server, waiting for in-flight requests until
// ctx ends.
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping HTTP server...")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
