package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/nandi-systems/ledgerflow-api/internal/config"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/handler"
	"github.com/nandi-systems/ledgerflow-api/internal/presentation/http/middleware"
	"go.uber.org/zap"
)

// Handlers holds all the HTTP handlers used for route registration.
type Handlers struct {
	Ledger  *handler.LedgerHandler
	Payment *handler.PaymentHandler
	Filter  *handler.FilterHandler
}

// Deps holds shared dependencies needed by the routes.
type Deps struct {
	Cfg *config.Config
	Log *zap.Logger
}

// Setup creates the Gin router and registers all routes.
func Setup(h *Handlers, deps *Deps) *gin.Engine {
	router := gin.New()

	// Global middleware
	router.Use(gin.Recovery())
	router.Use(middleware.LoggerMiddleware(deps.Log))
	router.Use(middleware.CORSMiddleware(&deps.Cfg.CORS))

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"service": deps.Cfg.App.Name,
		})
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		customers := v1.Group("/customers")
		{
			customers.POST("/:id/select", h.Ledger.Select)
			customers.GET("/:id/ledger", h.Ledger.Get)
			customers.GET("/:id/ledger/entries", h.Ledger.Entries)
			customers.GET("/:id/refreshing", h.Ledger.Refreshing)
			customers.POST("/:id/reconcile", h.Ledger.Reconcile)
		}

		payments := v1.Group("/payments")
		{
			payments.POST("", h.Payment.Create)
			payments.POST("/allocate", h.Payment.Allocate)
		}

		filters := v1.Group("/ledger/filters")
		{
			filters.PUT("", h.Filter.Update)
			filters.POST("/apply", h.Filter.Apply)
			filters.POST("/reset", h.Filter.Reset)
		}
	}

	return router
}
