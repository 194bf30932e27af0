package http

import (
	"strconv"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"go.ngs.io/waves-api/internal/config"
	"go.ngs.io/waves-api/internal/metrics"
)

// SetupRouter creates and configures the Gin router.
func SetupRouter(handler *Handler, cfg config.ServerConfig) *gin.Engine {
	router := gin.Default()

	// Setup CORS middleware.
	// Default to allow all origins if none are configured.
	corsConfig := cors.DefaultConfig()
	if len(cfg.CORSOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.CORSOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	router.Use(cors.New(corsConfig))
	router.Use(requestMetrics())

	// API v1 routes.
	v1 := router.Group("/v1")
	if cfg.RateLimit.Enabled {
		v1.Use(NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window).Middleware())
	}

	// ERA5 vs satellite collocation.
	v1.POST("/match", handler.PostMatch)
	v1.GET("/match", handler.GetMatch)

	// Directional spectra.
	v1.POST("/spectra", handler.PostSpectra)
	v1.GET("/spectra", handler.GetSpectra)
	v1.GET("/spectra/axes", handler.GetSpectraAxes)

	// Buoy comparison.
	v1.GET("/buoys", handler.GetBuoys)
	v1.GET("/buoys/compare", handler.GetBuoyComparison)

	// Field metadata.
	v1.GET("/field", handler.GetField)

	// Health check and metrics.
	router.GET("/health", handler.HealthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return router
}

// requestMetrics records the latency of every request by route template.
func requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.RecordAPIRequest(c.Request.Method, route, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}
