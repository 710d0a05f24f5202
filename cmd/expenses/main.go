package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pranit27-debug/Expense-Tracker/internal/backend"
	"github.com/pranit27-debug/Expense-Tracker/internal/cli"
	"github.com/pranit27-debug/Expense-Tracker/internal/config"
	apphttp "github.com/pranit27-debug/Expense-Tracker/internal/http"
	applog "github.com/pranit27-debug/Expense-Tracker/internal/log"
)

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	logger := cli.SetupLogger(applog.ComponentApp, cfg.LogLevel, nil)
	cfg = cli.MustLoadConfig(logger, (*config.Config).Validate)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		cli.Fatal(logger, "Invalid backend configuration", err)
	}
	result, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize backend", err)
	}

	srv, err := apphttp.NewServer(apphttp.Config{
		Addr:               ":" + cfg.Port,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		SummaryTopN:        cfg.SummaryTopN,
	}, result.Service, logger)
	if err != nil {
		cleanup(logger, result)
		cli.Fatal(logger, "Failed to build HTTP server", err)
	}

	logger.Info("Starting expenses server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"events_enabled", result.EventsActive)
	err = serve(ctx, logger, srv, cfg.ShutdownTimeout)
	cleanup(logger, result)
	if err != nil {
		stop()
		cli.Fatal(logger, "Server stopped with error", err)
	}
	logger.Info("Server stopped gracefully")
}

// serve runs srv until ctx is cancelled or the listener fails. A listener
// failure is returned so the process can exit non-zero.
func serve(ctx context.Context, logger *applog.Logger, srv *apphttp.Server, shutdownTimeout time.Duration) error {
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
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
	return g.Wait()
}

func cleanup(logger *applog.Logger, result *backend.BackendResult) {
	if err := result.Cleanup(); err != nil {
		logger.Error("Backend cleanup failed", applog.FieldError, err)
	}
}
