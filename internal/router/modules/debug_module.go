package modules

import (
	"expvar"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/oksasatya/feedstream/internal/container"
	"github.com/oksasatya/feedstream/internal/interface/middleware"
)

type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	// Metrics endpoints, rate-limited per IP but open to private addresses
	rl := middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/metrics", rl, gin.WrapH(promhttp.Handler()))
	if cfg := container.GetConfig(); cfg != nil && cfg.DebugMetricsEnabled {
		rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
	}
}
