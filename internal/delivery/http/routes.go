package http

import (
	"github.com/gin-gonic/gin"

	"github.com/vervegrand/feedsync/config"
)

// SetupRouter creates and configures the Gin router
func SetupRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Global middleware
	router.Use(RecoveryMiddleware())
	router.Use(LoggerMiddleware())
	router.Use(CORSMiddleware(cfg.Server.AllowedOrigins))

	// Health check endpoint
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		v1.GET("/status", handler.GetStatus)

		sync := v1.Group("/sync")
		{
			sync.POST("/run", handler.RunSync)
			sync.GET("/summary", handler.GetSyncSummary)
			sync.GET("/runs", handler.ListSyncRuns)
		}

		v1.GET("/feed/stats", handler.GetFeedStats)
		v1.GET("/catalog/products", handler.ListCatalogProducts)
	}

	return router
}
