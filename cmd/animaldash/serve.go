package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"animaldash/internal/backend"
	"animaldash/internal/cli"
	"animaldash/internal/config"
	apphttp "animaldash/internal/http"
	applog "animaldash/internal/log"
	"animaldash/internal/services"
	"animaldash/internal/sheets"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard over HTTP",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := cli.LoadAndValidateConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, source, cleanup, err := openDashboard(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		TimeZoneLabel:      cfg.TimeZoneLabel,
		DrivePreviewLinks:  cfg.DrivePreviewLinks,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     cfg.TrustedProxies,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting animaldash server",
			applog.FieldOperation, applog.OpStartup,
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			applog.FieldRange, source.A1())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}

// openDashboard builds the configured backend and the service reading it.
// cleanup is never nil.
func openDashboard(ctx context.Context, cfg *config.Config, logger *applog.Logger) (*services.DashboardService, sheets.Source, func(), error) {
	source := sheets.Source{
		SpreadsheetID: cfg.GoogleSpreadsheetID,
		SheetName:     cfg.GoogleSheetName,
		Range:         cfg.GoogleSheetRange,
	}

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration",
			applog.FieldError, err,
			applog.FieldErrorType, applog.ErrorTypeConfiguration)
		return nil, source, func() {}, err
	}
	res, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Slog()).CreateBackend(ctx, bcfg)
	if err != nil {
		logger.Error("Failed to initialize data backend", applog.FieldError, err, "backend", cfg.DataBackend)
		return nil, source, func() {}, err
	}
	cleanup := func() {
		if res.Cleanup == nil {
			return
		}
		if err := res.Cleanup(); err != nil {
			logger.Warn("Backend cleanup failed", applog.FieldError, err)
		}
	}

	return services.NewDashboardService(res.Backend, source, cfg.FetchTimeout, logger), source, cleanup, nil
}
