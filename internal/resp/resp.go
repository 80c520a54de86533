// Package resp 提供统一的HTTP响应封装。
package resp

import (
	"encoding/json"
	"net/http"
)

// Code 业务响应码，与HTTP状态码解耦。
type Code int

const (
	CodeOK            Code = 0
	CodeInvalidParam  Code = 10001
	CodeInternalError Code = 10002
	CodeTimeout       Code = 10003
)

// Body 统一响应体。
type Body struct {
	Code      Code        `json:"code"`
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	RequestID string      `json:"request_id,omitempty"`
	TraceID   string      `json:"trace_id,omitempty"`
}

// HTTPStatusFromCode 将业务码映射为HTTP状态码。
func HTTPStatusFromCode(code Code) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// OK 写出成功响应。
func OK(w http.ResponseWriter, data interface{}, requestID, traceID string) {
	WriteJSON(w, http.StatusOK, &Body{
		Code:      CodeOK,
		Message:   "ok",
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// Error 写出错误响应，HTTP状态码由调用方指定。
func Error(w http.ResponseWriter, status int, code Code, message, requestID, traceID string) {
	WriteJSON(w, status, &Body{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// WriteJSON 以JSON编码写出任意响应体。
func WriteJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// 编码失败时头已写出，只能放弃；调用方传入的都是可序列化结构
	_ = json.NewEncoder(w).Encode(body)
}
