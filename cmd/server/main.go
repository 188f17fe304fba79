// Package main is the entry point for the pharmapos API server.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"pharmapos/internal/config"
	"pharmapos/internal/domain/auth"
	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/refunds"
	"pharmapos/internal/domain/sales"
	"pharmapos/internal/infrastructure/cache"
	v1 "pharmapos/internal/infrastructure/http/v1"
	"pharmapos/internal/infrastructure/storage/postgres"
	"pharmapos/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Development: cfg.IsDevelopment(),
	})
	if err != nil {
		fmt.Printf("failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	ctx := context.Background()
	log.Info("starting pharmapos server")

	// --- Database ---
	pool, err := postgres.NewPool(ctx, postgres.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		log.Fatalw("failed to connect to database", "error", err)
	}
	defer pool.Close()
	log.Info("database connection established")

	txManager := postgres.NewTxManager(pool)

	// --- Redis (optional) ---
	var (
		redisClient       *cache.Client
		availabilityCache *cache.AvailabilityCache
	)
	if cfg.RedisAddr != "" {
		redisClient = cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err := redisClient.Ping(ctx); err != nil {
			log.Warnw("redis unavailable, availability cache disabled", "error", err)
			_ = redisClient.Close()
			redisClient = nil
		} else {
			availabilityCache = cache.NewAvailabilityCache(redisClient, 30*time.Second)
			defer redisClient.Close()
			log.Info("redis connection established")
		}
	}

	// --- Repositories ---
	batchRepo := postgres.NewBatchRepo(txManager)
	movementRepo := postgres.NewMovementRepo(txManager)
	saleRepo := postgres.NewSaleRepo(txManager)
	refundRepo := postgres.NewRefundRepo(txManager)
	catalogRepo := postgres.NewCatalogRepo(txManager)

	publisher := postgres.NewOutboxPublisher(txManager)
	auditor, err := postgres.NewAuditRecorder(txManager)
	if err != nil {
		log.Fatalw("failed to initialize audit recorder", "error", err)
	}

	// --- Services ---
	ledgerService := ledger.NewService(movementRepo)
	inventoryService := inventory.NewService(batchRepo, catalogRepo, ledgerService, txManager, publisher, auditor)
	salesService := sales.NewService(saleRepo, batchRepo, catalogRepo, ledgerService, txManager, publisher, auditor)
	refundsService := refunds.NewService(refundRepo, saleRepo, batchRepo, ledgerService, txManager, publisher, auditor)

	jwtService := auth.NewJWTService(auth.DefaultJWTConfig(cfg.JWTSecret))

	// --- Router ---
	router := v1.NewRouter(v1.RouterConfig{
		Pool:              pool,
		Logger:            log,
		TokenValidator:    jwtService,
		SalesService:      salesService,
		RefundsService:    refundsService,
		InventoryService:  inventoryService,
		LedgerService:     ledgerService,
		Redis:             redisClient,
		AvailabilityCache: availabilityCache,
	})

	server := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Infow("server starting", "port", cfg.HTTPPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalw("server failed", "error", err)
		}
	}()

	// --- Graceful shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalw("server forced to shutdown", "error", err)
	}

	log.Info("server stopped")
}
