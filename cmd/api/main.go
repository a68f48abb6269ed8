package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"mini-ledger/config"
	httpHandler "mini-ledger/internal/adapter/http/handler"
	"mini-ledger/internal/adapter/storage/memory"
	pgStorage "mini-ledger/internal/adapter/storage/postgres"
	redisStorage "mini-ledger/internal/adapter/storage/redis"
	"mini-ledger/internal/core/ports"
	"mini-ledger/internal/service"
	"mini-ledger/pkg/logger"

	"github.com/gin-gonic/gin"
)

func main() {
	// Load configuration
	cfg, err := config.Load(os.Getenv("LEDGER_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New(cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("storage", cfg.Storage.Driver).
		Msg("Starting Mini Ledger")

	ctx := context.Background()

	// Storage backend
	var (
		store    ports.Storage
		checkers []ports.HealthChecker
	)
	switch cfg.Storage.Driver {
	case config.StoragePostgres:
		pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		if err := pgStorage.EnsureSchema(ctx, pool); err != nil {
			log.Fatal().Err(err).Msg("Failed to apply ledger schema")
		}
		pgStore := pgStorage.NewStore(pool, log)
		store = pgStore
		checkers = append(checkers, pgStore)
		log.Info().Msg("PostgreSQL storage ready")
	default:
		memStore := memory.NewStore()
		store = memStore
		checkers = append(checkers, memStore)
		log.Info().Msg("In-memory storage ready")
	}

	// Optional replay cache
	var cache ports.IdempotencyCache
	if cfg.Redis.Enabled {
		rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		redisCache := redisStorage.NewIdempotencyCache(rdb)
		cache = redisCache
		checkers = append(checkers, redisCache)
		log.Info().Dur("ttl", cfg.Idempotency.CacheTTL).Msg("Redis idempotency cache enabled")
	}

	ledgerSvc := service.NewLedgerService(store, cache, cfg.Idempotency.CacheTTL, log)

	gin.SetMode(cfg.Server.Mode)
	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		LedgerSvc:      ledgerSvc,
		HealthCheckers: checkers,
		Logger:         log,
	})

	// HTTP Server with graceful shutdown
	addr := cfg.Server.Addr()
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
