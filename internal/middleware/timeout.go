package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
)

// Timeout 在超过 d 后取消请求上下文，并返回统一格式的超时响应。
// 基于 http.TimeoutHandler 实现，超时体为预先序列化的响应信封。
func Timeout(d time.Duration) func(http.Handler) http.Handler {
	body, _ := json.Marshal(resp.Body{
		Code:    resp.CodeTimeout,
		Message: "request timeout",
	})
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, string(body))
	}
}
