package http

import (
	"context"
	"net/http"
	"time"

	"github.com/dkeye/Jam/internal/adapters/signal"
	"github.com/dkeye/Jam/internal/app/orch"
	"github.com/dkeye/Jam/internal/config"
	"github.com/dkeye/Jam/internal/metric"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// MetricsMiddleware records request count and latency per route template.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		endpoint := c.FullPath()
		if endpoint == "" {
			endpoint = "unmatched"
		}
		metric.RecordHTTPMetrics(c.Request.Method, endpoint, c.Writer.Status(), time.Since(start))
	}
}

func SetupRouter(ctx context.Context, cfg *config.Config, o *orch.Orchestrator, ctrl *signal.SignalWSController) *gin.Engine {
	if cfg.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.Mode == "debug" {
		r.Use(gin.Logger())
	}
	r.Use(gin.Recovery())
	r.Use(MetricsMiddleware())

	log.Info().Str("module", "adapters.http").Str("mode", cfg.Mode).Msg("router setup")

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	api.GET("/ws", func(c *gin.Context) {
		log.Debug().Str("module", "adapters.http").Str("remote", c.ClientIP()).Msg("ws endpoint hit")
		ctrl.HandleSignal(ctx, c)
	})

	api.GET("/rooms", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"rooms": o.ListRooms()})
	})

	api.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, o.Stats())
	})

	return r
}
