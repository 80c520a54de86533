// Package middleware 提供 HTTP 中间件：请求 ID、恢复、超时、访问日志、认证等。
package middleware

import "context"

// contextKey 是包内私有的上下文键类型，避免与其他包的键冲突。
type contextKey string

const contextKeyRequestID contextKey = "request_id"

// withRequestID 将请求 ID 写入上下文，仅由 RequestID 中间件调用。
func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, contextKeyRequestID, id)
}

// RequestIDFromContext 从上下文中读取请求 ID，取不到时返回空串。
func RequestIDFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(contextKeyRequestID).(string); ok {
		return s
	}
	return ""
}
