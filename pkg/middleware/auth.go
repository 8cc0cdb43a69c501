package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/chunkvault/pkg/configs"
	ctxPkg "github.com/yeisme/chunkvault/pkg/context"
)

// DevOwner 非 release 模式下缺少身份时使用的固定身份.
const DevOwner = "dev@chunkvault.local"

// AuthMiddleware 解析请求方身份并写入 request context.
// 依次读取 auth.identity_headers（默认 X-Auth-Request-Email、X-Forwarded-Email、X-User），
// dev_allow_query 开启时再看 ?user=，非 release 模式仍缺失时使用 DevOwner.
// 开启 auth.enabled 时没有身份的请求返回 401，skip_paths 前缀下的请求不解析身份.
func AuthMiddleware(conf configs.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		if isSkippedPath(c.Request.URL.Path, conf.SkipPaths) {
			c.Next()
			return
		}

		owner := resolveOwner(c, conf)
		if owner == "" && conf.Enabled {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "error": "unauthorized"})
			return
		}

		c.Request = c.Request.WithContext(ctxPkg.WithOwner(c.Request.Context(), owner))
		c.Next()
	}
}

func resolveOwner(c *gin.Context, conf configs.AuthConfig) string {
	headers := conf.IdentityHeaders
	if len(headers) == 0 {
		headers = configs.DefaultIdentityHeaders
	}

	for _, h := range headers {
		if v := strings.TrimSpace(c.GetHeader(h)); v != "" {
			return v
		}
	}

	if conf.DevAllowQuery {
		if v := strings.TrimSpace(c.Query("user")); v != "" {
			return v
		}
	}

	if gin.Mode() != gin.ReleaseMode {
		return DevOwner
	}

	return ""
}

func isSkippedPath(path string, skips []string) bool {
	if path == "" || len(skips) == 0 {
		return false
	}

	for _, p := range skips {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if strings.HasPrefix(path, p) {
			return true
		}
	}

	return false
}
