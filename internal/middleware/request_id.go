package middleware

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
)

// HeaderRequestID 是请求 ID 的标准请求头名。
const HeaderRequestID = "X-Request-ID"

// maxRequestIDLen 限制客户端传入 ID 的长度，超长则丢弃并重新生成。
const maxRequestIDLen = 64

// RequestID 确保每个请求都有请求 ID：
// 优先复用请求头 X-Request-ID，缺失或超长时生成新的 UUID，
// 并同时写入响应头与请求上下文。
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get(HeaderRequestID))
		if rid == "" || len(rid) > maxRequestIDLen {
			rid = uuid.New().String()
		}
		w.Header().Set(HeaderRequestID, rid)
		next.ServeHTTP(w, r.WithContext(withRequestID(r.Context(), rid)))
	})
}
