package handler

import (
	"mini-ledger/internal/adapter/http/middleware"
	"mini-ledger/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	LedgerSvc      ports.LedgerService
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
// The caller owns gin.SetMode.
func SetupRouter(deps RouterDeps) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Metrics())
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep, pings storage and cache)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Swagger documentation
	swagger := r.Group("/swagger")
	{
		swagger.GET("", SwaggerUI)
		swagger.GET("/spec", SwaggerSpec)
	}

	ledgerHandler := NewLedgerHandler(deps.LedgerSvc)

	v1 := r.Group("/api/v1")

	accounts := v1.Group("/accounts")
	{
		accounts.POST("", ledgerHandler.CreateAccount)
		accounts.GET("/:id", ledgerHandler.GetAccount)
		accounts.GET("/:id/transactions", ledgerHandler.ListTransactions)
		accounts.POST("/:id/deposits", ledgerHandler.Deposit)
		accounts.POST("/:id/withdrawals", ledgerHandler.Withdraw)
	}

	v1.POST("/transfers", ledgerHandler.Transfer)

	return r
}
