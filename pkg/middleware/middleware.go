// Package middleware 提供 gin 中间件：访问日志与请求 id、监控与追踪、身份、限流与熔断、ETag.
package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/configs"
)

// Default 按配置返回通用中间件链，顺序即执行顺序.
func Default(cfg *configs.AppConfig) []gin.HandlerFunc {
	chain := []gin.HandlerFunc{
		gin.Recovery(),
		GinLoggerMiddleware(),
		CORSMiddleware(cfg.Server),
	}

	if cfg.Tracing.Enabled {
		chain = append(chain, TracingMiddleware())
	}

	if cfg.Metrics.Enabled {
		chain = append(chain, PrometheusMiddleware())
	}

	// 身份在限流之前解析，rate_limit.key=owner 时按身份限流
	return append(chain,
		AuthMiddleware(cfg.Auth),
		RateLimitMiddleware(cfg.RateLimit),
		CircuitBreakerMiddleware(cfg.CircuitBreaker),
	)
}
