package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openpromo/pubflow/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware for API endpoints
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization, X-Internal-Key")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// Routes
	setupRoutes(r, handler)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	// Health and status endpoints
	r.GET("/health", handler.GetHealth)
	r.GET("/stats", handler.GetStats)

	// User-facing API; every route carries the caller's identity.
	api := r.Group("/api")
	api.Use(authMiddleware(cfg.Get().JWTSecret))
	{
		api.POST("/publish", handler.Publish)
		api.GET("/content/:id/automation-status", handler.GetAutomationStatus)
		api.POST("/content/:id/auto-comments", handler.StartAutoComments)
	}

	// Internal endpoints for scheduled invocations.
	internal := r.Group("/internal")
	internal.Use(internalKeyMiddleware(cfg.Get().InternalKey))
	{
		internal.POST("/automations/run", handler.RunAutomations)
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "Pubflow",
			"version":     cfg.Get().Version,
			"description": "Social publishing dispatcher with auto-comment orchestration",
			"endpoints": map[string]string{
				"publish":      "/api/publish (POST, requires Bearer JWT)",
				"status":       "/api/content/<id>/automation-status (requires Bearer JWT)",
				"autoComments": "/api/content/<id>/auto-comments (POST, requires Bearer JWT)",
				"automations":  "/internal/automations/run (POST, requires X-Internal-Key header)",
				"health":       "/health",
				"stats":        "/stats",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}
