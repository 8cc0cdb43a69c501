// Package context 保存请求级的身份、请求 id 与追踪信息，并据此派生日志.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"
)

type key int

const (
	ownerKey key = iota
	requestIDKey
)

// RequestIDHeader 请求 id 头，缺失时由日志中间件生成.
const RequestIDHeader = "X-Request-ID"

// WithOwner 记录请求方身份.
func WithOwner(ctx context.Context, owner string) context.Context {
	return context.WithValue(ctx, ownerKey, owner)
}

// GetOwner 返回请求方身份，缺失时为空串.
func GetOwner(ctx context.Context) string {
	owner, _ := ctx.Value(ownerKey).(string)
	return owner
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Logger 在 logger 上附加 ctx 中已有的 request_id、owner 与 trace_id/span_id.
func Logger(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	lc := logger.With()

	if id := GetRequestID(ctx); id != "" {
		lc = lc.Str("request_id", id)
	}

	if owner := GetOwner(ctx); owner != "" {
		lc = lc.Str("owner", owner)
	}

	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		lc = lc.Str("trace_id", sc.TraceID().String()).Str("span_id", sc.SpanID().String())
	}

	return lc.Logger()
}
