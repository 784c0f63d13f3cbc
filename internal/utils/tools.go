package utils

import (
	"context"

	"github.com/google/uuid"
)

type requestIDKey struct{}

func GenerateUUID() string {
	return uuid.NewString()
}

// WithRequestID 把请求 id 放进 context，供下游日志使用
func WithRequestID(ctx context.Context, requestID string) context.Context {
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// RequestID 返回 context 中的请求 id，没有时返回空字符串
func RequestID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(requestIDKey{}).(string)
	return value
}
