package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/choosethere/internal/catalog"
	httpapi "github.com/fyrsmithlabs/choosethere/internal/http"
	"github.com/fyrsmithlabs/choosethere/internal/telemetry"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		Long: `Start the choosethere HTTP API.

Learning from rated visits runs in the background; set events.nats_url to
carry it over NATS instead of an in-process goroutine.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return withApp(ctx, opts, appOptions{asyncLearning: true, nearby: true}, func(a *app) error {
				return runServer(ctx, a)
			})
		},
	}
}

// runServer seeds the catalog if configured, starts the API and blocks
// until ctx is cancelled.
func runServer(ctx context.Context, a *app) error {
	cfg := a.cfg
	logger := a.logger

	logger.Info(ctx, "starting choosethere",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("learning_enabled", cfg.Roulette.LearningEnabled),
		zap.Bool("nearby_enabled", a.nearby != nil),
		zap.Bool("nats_learning", a.natsConn != nil),
		zap.Bool("telemetry_enabled", cfg.Telemetry.Enabled))

	telCfg := cfg.Telemetry
	if telCfg.ServiceVersion == "" || telCfg.ServiceVersion == "dev" {
		telCfg.ServiceVersion = version
	}
	tel, err := telemetry.New(ctx, &telCfg, telemetry.WithLogger(logger.Named("telemetry")))
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.WithoutCancel(ctx)); err != nil {
			logger.Warn(ctx, "telemetry shutdown failed", zap.Error(err))
		}
	}()

	if path := cfg.Catalog.SeedPath; path != "" {
		if _, err := a.seeder.SeedFile(ctx, path); err != nil {
			logger.Warn(ctx, "catalog seed failed", zap.String("path", path), zap.Error(err))
		}
		if cfg.Catalog.Watch {
			w, err := catalog.NewWatcher(path, a.seeder, a.logger.Named("catalog"))
			if err != nil {
				return err
			}
			if err := w.Start(ctx); err != nil {
				return err
			}
			defer w.Stop()
		}
	}

	srv, err := httpapi.NewServer(httpapi.Services{
		Roulette:    a.roulette,
		Visits:      a.visits,
		Learner:     a.learner,
		Backup:      a.backup,
		Nearby:      a.nearby,
		Restaurants: a.restaurants,
		VisitLog:    a.visitRepo,
		Favorites:   a.restaurants,
		Version:     version,
	}, logger.Named("http"), &httpapi.Config{Host: "", Port: cfg.Server.Port})
	if err != nil {
		return fmt.Errorf("failed to create http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cfg.Server.ShutdownTimeout.Duration())
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	logger.Info(shutdownCtx, "server shutdown complete")
	return nil
}
