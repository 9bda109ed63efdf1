package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"finboard/internal/adapters"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	"finboard/internal/log"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	res := cli.InitBackend(context.Background(), logger, cfg)
	app := adapters.NewApp(res, cfg)
	app.Caches.StartCleanup(cfg.CacheTTL)

	sheetsWriter, err := adapters.NewSheetsWriter(context.Background(), cfg, logger.Logger)
	if err != nil {
		logger.Error("Sheets export unavailable", "error", err)
		os.Exit(1)
	}

	assistant := adapters.NewAdvisor(cfg, "")
	if !assistant.Configured() {
		logger.Info("Advisor disabled - no AI_API_KEY provided, serving offline replies")
	}

	deps := apphttp.Dependencies{
		Transactions:       app.Transactions,
		Dashboard:          app.Dashboard,
		Sheets:             sheetsWriter,
		Advisor:            assistant,
		ReadyCheck:         adapters.ReadyCheck(res.Backend),
		PageSize:           cfg.PageSize,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		Logger:             logger.WithComponent(log.ComponentHTTP),
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		app.Caches.Stop()
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	if res.Queue != nil {
		go func() {
			err := res.Queue.RunEventConsumer(ctx, adapters.InvalidateOnEvent(app.Dashboard))
			if err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Event consumer stopped, relying on snapshot max age", "error", err)
			}
		}()
	}

	logger.Info("Starting finboard server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"queue", res.Queue != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
