package main

import (
	"context"
	"os"
	"time"

	"ecofinance/internal/amqp"
	"ecofinance/internal/backend"
	"ecofinance/internal/cli"
	applog "ecofinance/internal/log"
	"ecofinance/internal/services"
	"ecofinance/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentWorker)
	logger.Info("Starting ecofinance-worker")

	cfg := cli.LoadAndValidateConfig(logger)
	if !cfg.AMQPEnabled() {
		logger.Error("AMQP_URL is required to run the worker")
		os.Exit(1)
	}
	if cfg.DataBackend != string(backend.SQLiteBackend) {
		// the memory backend is private to the web process
		logger.Error("The worker needs the sqlite backend", "backend", cfg.DataBackend)
		os.Exit(1)
	}

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err)
		os.Exit(1)
	}
	if result.Mirror == nil {
		logger.Info("Spreadsheet mirror disabled, only expanding recurring series")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		_ = result.Cleanup()
		os.Exit(1)
	}

	processor := services.NewLedgerProcessor(result.Store, result.Mirror, logger)
	w := worker.NewLedgerWorker(processor, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := client.Close(); err != nil {
			logger.Warn("AMQP close error", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	if err := w.Run(ctx, client); err != nil {
		logger.Error("Ledger consumer stopped", applog.FieldError, err)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}
