package main

import (
	"context"
	"errors"
	"os"
	"time"

	"finboard/internal/adapters"
	"finboard/internal/cli"
	"finboard/internal/log"
	"finboard/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(log.ComponentWorker)

	logger.Info("Starting finboard-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required for the import worker")
		os.Exit(1)
	}

	res := cli.InitBackend(context.Background(), logger, cfg)
	if res.Queue == nil {
		logger.Error("AMQP broker not reachable", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		os.Exit(1)
	}
	app := adapters.NewApp(res, cfg)

	var opts []worker.Option
	sheetsWriter, err := adapters.NewSheetsWriter(context.Background(), cfg, logger.Logger)
	if err != nil {
		logger.Error("Sheets mirror unavailable, continuing without it", "error", err)
	} else if sheetsWriter != nil {
		opts = append(opts, worker.WithSheetMirror(app.Dashboard, sheetsWriter))
	}
	importWorker := worker.NewImportWorker(app.Transactions, opts...)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(context.Context) {
		if res.Cleanup != nil {
			if err := res.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Consuming import jobs",
		"backend", cfg.DataBackend,
		"queue", cfg.AMQPQueue,
		"sheet_mirror", sheetsWriter != nil)

	if err := res.Queue.RunImportConsumer(ctx, importWorker.HandleImportJob); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Import consumer stopped", "error", err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
