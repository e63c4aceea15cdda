// Package v1 provides HTTP API version 1.
package v1

import (
	"github.com/gin-gonic/gin"

	"fakturo/internal/domain/client"
	"fakturo/internal/domain/invoice"
	"fakturo/internal/infrastructure/http/v1/handlers"
	"fakturo/internal/infrastructure/http/v1/middleware"
	"fakturo/internal/infrastructure/storage/postgres"
	"fakturo/pkg/logger"
)

// RouterConfig holds the dependencies the router wires into handlers.
type RouterConfig struct {
	// Pool is the database connection pool (for health checks)
	Pool *postgres.Pool

	// Logger for request logging
	Logger *logger.Logger

	// InvoiceService drives everything under /invoices
	InvoiceService *invoice.Service

	// ClientService drives the client catalog
	ClientService *client.Service
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Recovery())
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())

	// Health endpoints
	healthHandler := handlers.NewHealthHandler(cfg.Pool)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	// API v1
	baseHandler := handlers.NewBaseHandler()
	apiV1 := router.Group("/api/v1")
	{
		invoiceHandler := handlers.NewInvoiceHandler(baseHandler, cfg.InvoiceService, cfg.ClientService)
		invoiceHandler.RegisterRoutes(apiV1.Group("/invoices"))

		clientHandler := handlers.NewClientHandler(baseHandler, cfg.ClientService)
		clientHandler.RegisterRoutes(apiV1.Group("/clients"))
	}

	return router
}
