// Package api 组装协调器的 HTTP 接口：中间件链、/api/v1 路由、指标与文档.
package api

import (
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/configs"
	"github.com/yeisme/chunkvault/pkg/internal/handle"
	"github.com/yeisme/chunkvault/pkg/internal/router"
	"github.com/yeisme/chunkvault/pkg/internal/storage"
	"github.com/yeisme/chunkvault/pkg/metrics"
	"github.com/yeisme/chunkvault/pkg/middleware"
	"github.com/yeisme/chunkvault/pkg/scheduler"
)

// Deps 路由依赖，Manager 与 Scheduler 可以为空.
type Deps struct {
	Uploads   handle.UploadService
	Manager   *storage.Manager
	Scheduler *scheduler.Scheduler
}

// NewEngine 创建 gin 引擎并注册全部路由.
func NewEngine(cfg *configs.AppConfig, deps Deps) *gin.Engine {
	e := gin.New()
	e.Use(middleware.Default(cfg)...)
	e.Use(gzip.Gzip(gzip.DefaultCompression))

	_ = metrics.StartMetricsServer(cfg.Metrics, e)
	router.RegisterSwaggerRoute(e, cfg.Server)

	RegisterGroup(e.Group("/api/v1"), deps)

	return e
}

// RegisterGroup 注册 /api/v1 下的路由.
func RegisterGroup(g *gin.RouterGroup, deps Deps) {
	router.RegisterUploadRoutes(g, handle.NewUploadHandlers(deps.Uploads))
	router.RegisterOpsRoutes(g, handle.NewOpsHandlers(deps.Manager, deps.Scheduler))
}
