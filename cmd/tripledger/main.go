package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tripledger/internal/cache"
	"tripledger/internal/cli"
	apphttp "tripledger/internal/http"
	"tripledger/internal/log"
	"tripledger/internal/services"
)

func main() {
	cfg, logger := cli.Bootstrap(log.ComponentApp)

	res := cli.InitBackend(context.Background(), logger, cfg, false)
	defer cli.CloseBackend(logger, res)

	// A nil *amqp.Client must not become a non-nil Publisher.
	var publisher services.Publisher
	if res.AMQP != nil {
		publisher = res.AMQP
	} else {
		logger.Info("Ledger change publishing disabled")
	}

	registry := cache.NewRegistry()
	reader := services.NewLedgerReader(res.Store, registry, cache.Options{
		Freshness:  cfg.CacheFreshness,
		MaxStale:   cfg.CacheMaxStale,
		MaxEntries: cfg.CacheMaxEntries,
		Logger:     logger,
	})
	budget := services.NewBudgetService(res.Store, registry, publisher, services.NewBusyTracker(), logger)

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Budget:             budget,
		Reader:             reader,
		Store:              res.Store,
		Logger:             logger,
		SessionTTL:         cfg.SessionTTL,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	})
	srv.MaxHeaderBytes = 1 << 16

	cacheManager := cache.NewManager(logger)
	for _, c := range reader.Cleaners() {
		cacheManager.Register(c)
	}
	cacheManager.Register(srv.Sessions())
	cacheManager.StartCleanup(5 * time.Minute)

	ctx, done := cli.GracefulShutdown(context.Background(), logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err)
		}
		cacheManager.Stop()
		reader.Wait()
	})

	logger.Info("Starting tripledger server", "port", cfg.Port, "backend", cfg.DataBackend, "amqp", res.AMQP != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
