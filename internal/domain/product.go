package domain

import (
	"time"

	"github.com/google/uuid"
)

// Product 表示商品目录条目。
// 商品目录的增删改由外部目录服务负责，台账侧只读（补货阈值判断需要 ReorderLevel）。
type Product struct {
	ID           uuid.UUID `json:"id"`
	SKU          string    `json:"sku"`
	Name         string    `json:"name"`
	Description  string    `json:"description,omitempty"`
	Category     string    `json:"category,omitempty"`
	UnitPrice    float64   `json:"unit_price"`
	ReorderLevel int       `json:"reorder_level"` // 补货提醒阈值
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}
