package middleware

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"
)

// WeakETag 基于响应体 xxhash 的弱 ETag.
func WeakETag(body []byte) string {
	return fmt.Sprintf("W/\"%016x\"", xxhash.Sum64(body))
}

// ETagMatches 按弱比较判断 If-None-Match 是否命中 etag，支持列表与 "*".
func ETagMatches(ifNoneMatch, etag string) bool {
	if ifNoneMatch == "" {
		return false
	}

	want := strings.TrimPrefix(etag, "W/")

	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" || strings.TrimPrefix(candidate, "W/") == want {
			return true
		}
	}

	return false
}

// etagWriter 缓冲响应，等处理器结束后再决定返回 200 还是 304.
type etagWriter struct {
	gin.ResponseWriter

	buf    bytes.Buffer
	status int
}

func (w *etagWriter) WriteHeader(code int) {
	if code > 0 {
		w.status = code
	}
}

func (w *etagWriter) WriteHeaderNow() {}

func (w *etagWriter) Write(b []byte) (int, error) {
	return w.buf.Write(b)
}

func (w *etagWriter) WriteString(s string) (int, error) {
	return w.buf.WriteString(s)
}

func (w *etagWriter) Status() int {
	if w.status == 0 {
		return http.StatusOK
	}

	return w.status
}

func (w *etagWriter) Size() int {
	return w.buf.Len()
}

func (w *etagWriter) Written() bool {
	return w.status != 0 || w.buf.Len() > 0
}

// ETagMiddleware 为 GET/HEAD 的 200 响应计算弱 ETag，If-None-Match 命中时返回 304 且不带响应体.
// 其他方法与状态码原样透传.
func ETagMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Next()
			return
		}

		origin := c.Writer
		w := &etagWriter{ResponseWriter: origin}
		c.Writer = w

		c.Next()

		c.Writer = origin
		status := w.Status()

		if status != http.StatusOK {
			origin.WriteHeader(status)
			_, _ = origin.Write(w.buf.Bytes())

			return
		}

		etag := WeakETag(w.buf.Bytes())
		origin.Header().Set("ETag", etag)

		if ETagMatches(c.GetHeader("If-None-Match"), etag) {
			origin.Header().Del("Content-Type")
			origin.Header().Del("Content-Length")
			origin.WriteHeader(http.StatusNotModified)
			origin.WriteHeaderNow()

			return
		}

		origin.WriteHeader(status)

		if c.Request.Method != http.MethodHead {
			_, _ = origin.Write(w.buf.Bytes())
		}
	}
}
