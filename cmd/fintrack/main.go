package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"fintrack/internal/cli"
	apphttp "fintrack/internal/http"
	applog "fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.JWTSecret == "" {
		logger.Error("JWT_SECRET is required to serve the API")
		os.Exit(1)
	}

	backendResult := cli.InitStore(context.Background(), logger, cfg)
	store := backendResult.Store

	loc := services.NewLocalizer(cfg.Locale)
	agg := services.NewAggregator(store)
	ledger := services.NewLedgerService(store, services.NewOverspendGuard(store, loc), agg)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Ledger:     ledger,
		Aggregator: agg,
		Insights:   services.NewInsightGenerator(agg, loc),
		Store:      store,
	}, apphttp.Options{
		Logger:             logger,
		Auth:               apphttp.NewAuthenticator([]byte(cfg.JWTSecret)),
		CacheSize:          cfg.CacheSize,
		CacheTTL:           cfg.CacheTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})

	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := backendResult.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting fintrack server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"locale", loc.Tag().String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
