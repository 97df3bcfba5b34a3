package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tipvault/config"
	"tipvault/internal/adapter/custody/blockcypher"
	httpHandler "tipvault/internal/adapter/http/handler"
	pgStorage "tipvault/internal/adapter/storage/postgres"
	redisStorage "tipvault/internal/adapter/storage/redis"
	"tipvault/internal/core/ports"
	"tipvault/internal/service"
	"tipvault/pkg/logger"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New("tipvault", cfg.Log.Level, cfg.Log.Pretty)

	log.Info().
		Str("mode", cfg.Server.Mode).
		Int("port", cfg.Server.Port).
		Str("coin", cfg.Custody.Coin).
		Str("network", cfg.Custody.Network).
		Msg("Starting tipvault ledger")

	if cfg.API.Key == "" {
		log.Fatal().Msg("api.key must be configured")
	}

	ctx := context.Background()

	pool, err := pgStorage.NewPool(ctx, cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()
	log.Info().Msg("PostgreSQL connected")

	rdb, err := redisStorage.NewClient(ctx, cfg.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()
	log.Info().Msg("Redis connected")

	// Repositories and stores
	accountRepo := pgStorage.NewAccountRepo(pool)
	movementRepo := pgStorage.NewMovementRepo(pool)
	transactor := pgStorage.NewTransactor(pool)
	idempotencyCache := redisStorage.NewIdempotencyCache(rdb)
	rateLimitStore := redisStorage.NewRateLimitStore(rdb, log)

	// Custody provider client
	custodyClient := blockcypher.NewClient(cfg.Custody, log)

	// Core services
	ledger := service.NewLedgerStore(accountRepo, movementRepo, transactor, log)
	depositSvc := service.NewDepositService(ledger, custodyClient, log)
	transferSvc := service.NewTransferService(ledger, custodyClient, idempotencyCache, log)
	withdrawalSvc := service.NewWithdrawalService(ledger, custodyClient, idempotencyCache, cfg.Custody.PaymentTimeout, log)

	// Health checkers
	pgHealth := pgStorage.NewHealthCheck(pool)
	redisHealth := redisStorage.NewHealthCheck(rdb)

	router := httpHandler.SetupRouter(httpHandler.RouterDeps{
		DepositSvc:     depositSvc,
		TransferSvc:    transferSvc,
		WithdrawalSvc:  withdrawalSvc,
		APIKey:         cfg.API.Key,
		RateLimitStore: rateLimitStore,
		HealthCheckers: []ports.HealthChecker{pgHealth, redisHealth},
		Logger:         log,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	go func() {
		log.Info().Str("addr", addr).Msg("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info().Msg("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited")
}
