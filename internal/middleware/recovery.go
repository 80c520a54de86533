package middleware

import (
	"net/http"
	"runtime/debug"

	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
)

// Recovery 捕获处理器 panic，记录堆栈后返回统一的 500 响应。
func Recovery(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rec),
						zap.String("path", r.URL.Path),
						zap.String("request_id", RequestIDFromContext(r.Context())),
						zap.ByteString("stack", debug.Stack()),
					)
					resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError,
						"internal server error", RequestIDFromContext(r.Context()), "")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
