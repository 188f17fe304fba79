// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"pharmapos/internal/domain/inventory"
	"pharmapos/internal/domain/ledger"
	"pharmapos/internal/domain/refunds"
	"pharmapos/internal/domain/sales"
	"pharmapos/internal/infrastructure/cache"
	"pharmapos/internal/infrastructure/http/v1/handlers"
	"pharmapos/internal/infrastructure/http/v1/middleware"
	"pharmapos/internal/infrastructure/storage/postgres"
	"pharmapos/pkg/logger"
)

// RouterConfig wires the services the API exposes.
type RouterConfig struct {
	Pool   *postgres.Pool
	Logger *logger.Logger

	TokenValidator middleware.TokenValidator

	SalesService     *sales.Service
	RefundsService   *refunds.Service
	InventoryService *inventory.Service
	LedgerService    *ledger.Service

	// Redis is optional; when nil, health skips the redis check and
	// availability reads go straight to the database.
	Redis             *cache.Client
	AvailabilityCache *cache.AvailabilityCache
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters).
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.Metrics())
	router.Use(middleware.ErrorHandler())

	// Probes and metrics, no auth.
	var redisPinger handlers.Pinger
	if cfg.Redis != nil {
		redisPinger = cfg.Redis
	}
	healthHandler := handlers.NewHealthHandler(cfg.Pool, redisPinger)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1, JWT required.
	baseHandler := handlers.NewBaseHandler()
	apiV1 := router.Group("/api/v1")
	apiV1.Use(middleware.Auth(cfg.TokenValidator))
	{
		handlers.NewSalesHandler(baseHandler, cfg.SalesService, cfg.RefundsService).RegisterRoutes(apiV1)
		handlers.NewRefundsHandler(baseHandler, cfg.RefundsService).RegisterRoutes(apiV1)
		handlers.NewStockHandler(baseHandler, cfg.InventoryService, cfg.LedgerService, cfg.AvailabilityCache).RegisterRoutes(apiV1)
	}

	return router
}
