package middleware

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/configs"
)

// CORSMiddleware CORS中间件.
// 浏览器客户端需要读取 ETag 与请求 id，并携带身份头与 traceparent.
func CORSMiddleware(cfg configs.ServerConfig) gin.HandlerFunc {
	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowHeaders = append(config.AllowHeaders, "X-User", "If-None-Match", "X-Request-ID", "traceparent", "tracestate")
	config.ExposeHeaders = []string{"ETag", "X-Request-ID"}

	if cfg.Debug {
		config.AllowFiles = true
	}

	return cors.New(config)
}
