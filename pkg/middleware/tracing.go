package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	ctxPkg "github.com/yeisme/chunkvault/pkg/context"
	"github.com/yeisme/chunkvault/pkg/tracing"
)

// TracingMiddleware 为每个请求创建 server span，span 名为 "METHOD 路由模板".
// 请求头中的 traceparent 作为父上下文，响应头回写当前上下文.
func TracingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		propagator := otel.GetTextMapPropagator()
		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))

		route := routeOf(c)

		ctx, span := tracing.StartSpan(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("url.path", c.Request.URL.Path),
				attribute.String("client.address", c.ClientIP()),
				attribute.String("user_agent.original", c.Request.UserAgent()),
			),
		)
		defer span.End()

		propagator.Inject(ctx, propagation.HeaderCarrier(c.Writer.Header()))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.response.status_code", status))

		if id := c.Param("file_id"); id != "" {
			span.SetAttributes(attribute.String("chunkvault.file_id", id))
		}

		if owner := ctxPkg.GetOwner(c.Request.Context()); owner != "" {
			span.SetAttributes(attribute.String("chunkvault.owner", owner))
		}

		// 4xx 是调用方的问题，不标记 span 失败
		if status >= http.StatusInternalServerError {
			msg := http.StatusText(status)
			if len(c.Errors) > 0 {
				msg = c.Errors.String()
			}

			span.SetStatus(codes.Error, msg)
		}
	}
}

// routeOf 返回匹配到的路由模板，未匹配时为 "unmatched"，避免把原始路径当作标签.
func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}

	return "unmatched"
}
