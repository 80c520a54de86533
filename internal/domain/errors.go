// Package domain 定义库存台账相关的业务领域模型和核心业务规则。
package domain

import "errors"

// 领域错误哨兵值。调用方通过 errors.Is 匹配，HTTP 层据此映射到 4xx 状态码。
var (
	// ErrInsufficientStock 表示请求的出库量超过当前可用数量。
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrNotFound 表示引用的库存单元、商品或仓库不存在。
	ErrNotFound = errors.New("resource not found")

	// ErrBadRequest 表示非法的参数组合，例如调拨的源仓库与目标仓库相同。
	ErrBadRequest = errors.New("bad request")
)
