package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/huentelauquen/backoffice/internal/app"
	"github.com/huentelauquen/backoffice/internal/classify"
	"github.com/huentelauquen/backoffice/internal/ledger"
	"github.com/huentelauquen/backoffice/internal/platform/cache"
	"github.com/huentelauquen/backoffice/internal/platform/db"
	"github.com/huentelauquen/backoffice/internal/prorrateo"
	"github.com/huentelauquen/backoffice/internal/report"
	"github.com/huentelauquen/backoffice/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect database", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Warn("redis unavailable, serving uncached", slog.Any("error", err))
		redisClient = nil
	}
	defer func() {
		if redisClient != nil {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}
	}()

	ledgerRepo := ledger.NewRepository(pool)
	ledgerCache := ledger.NewCache(ledgerRepo)

	reportCache := report.NewCache(redisClient, cfg.ReportCacheTTL)

	configRepo := prorrateo.NewRepository(pool)
	configService := prorrateo.NewService(configRepo, reportCache, logger)
	configHandler := prorrateo.NewHandler(configService, logger)

	classifyRepo := classify.NewRepository(pool)
	classifyService := classify.NewService(classifyRepo, reportCache, logger)
	classifyHandler := classify.NewHandler(classifyService, logger)

	reportService := report.NewService(ledgerCache, configService, classifyService, reportCache, cfg.LedgerDataset, logger)

	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	jobsClient, err := jobs.NewClient(redisOpts)
	if err != nil {
		logger.Error("init jobs client", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = jobsClient.Close() }()

	reportHandler := report.NewHandler(reportService, jobsClient, cfg.LedgerDataset, logger)
	jobsHandler := jobs.NewHandler(asynq.NewInspector(redisOpts), logger)

	router := app.NewRouter(app.RouterParams{
		Logger:          logger,
		Config:          cfg,
		ReportHandler:   reportHandler,
		ConfigHandler:   configHandler,
		ClassifyHandler: classifyHandler,
		JobsHandler:     jobsHandler,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
