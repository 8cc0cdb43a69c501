package middleware

import (
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/time/rate"

	"github.com/yeisme/chunkvault/pkg/configs"
	ctxPkg "github.com/yeisme/chunkvault/pkg/context"
	"github.com/yeisme/chunkvault/pkg/log"
)

// RateLimitMiddleware 令牌桶限流.rate_limit.key 选择维度：
//
//	global         所有请求共用一个桶
//	ip             按客户端 IP
//	owner          按请求方身份，缺失时退回 IP
//	header:<Name>  按请求头，缺失时退回 IP
//
// 非 global 模式下的桶放在有界 LRU 中，最久未使用的 key 会被淘汰.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled || cfg.RPS <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	mode := strings.ToLower(strings.TrimSpace(cfg.Key))
	if mode == "global" || mode == "" {
		limiter := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				tooManyRequests(c)
				return
			}

			c.Next()
		}
	}

	size := cfg.MaxKeys
	if size <= 0 {
		size = configs.DefaultRateLimitMaxKeys
	}

	limiters, err := lru.New[string, *rate.Limiter](size)
	if err != nil {
		l := log.Component("ratelimit")
		l.Error().Err(err).Msg("rate limiter disabled")
		return func(c *gin.Context) { c.Next() }
	}

	var mu sync.Mutex

	get := func(key string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		if l, ok := limiters.Get(key); ok {
			return l
		}

		l := rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)
		limiters.Add(key, l)

		return l
	}

	keyOf := rateLimitKey(mode)

	return func(c *gin.Context) {
		if !get(keyOf(c)).Allow() {
			tooManyRequests(c)
			return
		}

		c.Next()
	}
}

func rateLimitKey(mode string) func(c *gin.Context) string {
	switch {
	case mode == "owner":
		return func(c *gin.Context) string {
			if owner := ctxPkg.GetOwner(c.Request.Context()); owner != "" {
				return "owner:" + owner
			}

			return "ip:" + c.ClientIP()
		}
	case strings.HasPrefix(mode, "header:"):
		name := strings.TrimPrefix(mode, "header:")

		return func(c *gin.Context) string {
			if v := c.GetHeader(name); v != "" {
				return "header:" + v
			}

			return "ip:" + c.ClientIP()
		}
	default:
		return func(c *gin.Context) string { return "ip:" + c.ClientIP() }
	}
}

func tooManyRequests(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"success": false, "error": "rate limit exceeded"})
}
