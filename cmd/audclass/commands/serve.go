// SPDX-License-Identifier: EPL-2.0

package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ik5/audclass"
	"github.com/ik5/audclass/inference"
	"github.com/ik5/audclass/internal/config"
	"github.com/ik5/audclass/internal/metrics"
	"github.com/ik5/audclass/internal/server"
)

func newServeCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP classification service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := g.load()
			if err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}
}

func serve(ctx context.Context, cfg *config.Config) error {
	logger, closer, err := initLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()

	logger.Info("Service starting",
		slog.String("version", Version),
		slog.String("address", cfg.Server.Address),
		slog.String("resampler", cfg.Audio.Resampler),
		slog.Bool("ensemble", cfg.Ensemble()),
		slog.String("log_level", cfg.Logging.Level),
	)

	if cfg.Logging.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}

	var (
		m   *metrics.Metrics
		obs audclass.Observer
	)
	if cfg.Metrics.Enabled {
		m = metrics.New()
		obs = m
	}

	svc, err := newService(cfg, cfg.ModelSpecs(), logger, obs)
	if err != nil {
		return err
	}

	srv, err := server.New(server.Options{
		Service:        svc,
		Ensemble:       cfg.Ensemble(),
		Address:        cfg.Server.Address,
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		CORSOrigins:    cfg.Server.CORSOrigins,
		Metrics:        m,
		MetricsPath:    cfg.Metrics.Path,
		Logger:         logger,
	})
	if err != nil {
		return err
	}

	if err := srv.Start(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info("Starting graceful shutdown...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Stop(shutdownCtx); err != nil {
		logger.Error("Error stopping HTTP server", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Service stopped")
	return nil
}

// newService loads specs and wires them into a Service. With no specs the
// service only preprocesses.
func newService(cfg *config.Config, specs []inference.ModelSpec, logger *slog.Logger, obs audclass.Observer) (*audclass.Service, error) {
	opts := audclass.Options{
		Preprocess:        cfg.Preprocess(),
		AllowedExtensions: cfg.Server.AllowedExtensions,
		MaxConcurrent:     cfg.Audio.Concurrency(),
		Logger:            logger,
		Observer:          obs,
	}

	if len(specs) > 0 {
		set, err := inference.LoadAll(specs, cfg.Features.Frames, cfg.Features.NumMFCC)
		if err != nil {
			return nil, fmt.Errorf("load models: %w", err)
		}
		for _, m := range set.Models() {
			logger.Info("Model loaded", slog.String("model", m.Name()))
		}
		opts.Models = set
	}

	return audclass.New(opts)
}
