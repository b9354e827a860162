package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"ecofinance/internal/amqp"
	"ecofinance/internal/auth"
	"ecofinance/internal/backend"
	"ecofinance/internal/cache"
	"ecofinance/internal/cli"
	"ecofinance/internal/core"
	apphttp "ecofinance/internal/http"
	applog "ecofinance/internal/log"
	"ecofinance/internal/recommend"
	"ecofinance/internal/services"
)

const (
	summaryCacheSize = 1000
	summaryCacheTTL  = 2 * time.Minute
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", applog.FieldError, err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	store := result.Store

	caches := cache.NewManager(logger.WithComponent(applog.ComponentDashboard))
	summaries := cache.NewLRUCache[core.DashboardSummary](summaryCacheSize, summaryCacheTTL)
	caches.Register(summaries)
	caches.StartCleanup(time.Minute)
	loader := services.NewDashboardLoader(store, store, store, summaries)

	var gen recommend.Generator = recommend.StaticGenerator{}
	if cfg.LLMAPIKey != "" {
		gen = recommend.NewChatClient(cfg.LLMBaseURL, cfg.LLMAPIKey, cfg.LLMModel, cfg.LLMTimeout)
		logger.Info("Recommendations from LLM", "model", cfg.LLMModel)
	} else {
		logger.Info("LLM_API_KEY not set, using rule based recommendations")
	}
	advisor := recommend.NewService(store, gen, cfg.RecommendationCacheTTL, cfg.LLMTimeout)

	processor := services.NewLedgerProcessor(store, result.Mirror, logger, loader, advisor)

	var (
		publisher  services.EventPublisher
		amqpClient *amqp.Client
	)
	if cfg.AMQPEnabled() {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("AMQP unavailable, processing ledger events inline", applog.FieldError, err)
			amqpClient = nil
		} else {
			publisher = amqpClient
			logger.Info("Publishing ledger events", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	sessions := auth.NewManager(cfg.SessionSecret, cfg.SessionTTL)
	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Store:        store,
		Transactions: services.NewTransactionService(store, publisher, processor, logger, loader, advisor),
		Dashboard:    loader,
		Goals:        services.NewGoalService(store, store, loader),
		Recommender:  advisor,
		Markdown:     recommend.NewMarkdown(),
		Sessions:     sessions,
		Accounts:     auth.NewService(store),
		Logger:       logger,
	}, apphttp.Options{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		AlertHideAfter:     cfg.AlertHideAfter,
	})

	srv.ReadTimeout = 10 * time.Second
	// recommendation requests wait on the LLM
	srv.WriteTimeout = cfg.LLMTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		caches.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", applog.FieldError, err)
			}
		}
		if err := result.Cleanup(); err != nil {
			logger.Warn("Backend cleanup error", applog.FieldError, err)
		}
	})

	go func() {
		logger.Info("Starting ecofinance server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"sheets_mirror", cfg.SheetsEnabled(),
			"amqp", publisher != nil)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
			os.Exit(1)
		}
	}()

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
