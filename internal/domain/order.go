package domain

import (
	"time"

	"github.com/google/uuid"
)

// PurchaseOrderStatus 采购订单状态。
type PurchaseOrderStatus string

const (
	PurchaseOrderCreated  PurchaseOrderStatus = "CREATED"
	PurchaseOrderReceived PurchaseOrderStatus = "RECEIVED"
)

// PurchaseOrder 表示采购订单。收货时状态迁移 CREATED -> RECEIVED，
// 并为每个行项各发出一条 STOCK_IN 事件；事件之间相互独立投递。
type PurchaseOrder struct {
	ID           uuid.UUID           `json:"id"`
	SupplierName string              `json:"supplier_name"`
	Status       PurchaseOrderStatus `json:"status"`
	Items        []*PurchaseItem     `json:"items"`
	CreatedAt    time.Time           `json:"created_at"`
}

// PurchaseItem 采购订单行项。
type PurchaseItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	UnitCost    float64   `json:"unit_cost"`
}

// SalesOrderStatus 销售订单状态。
type SalesOrderStatus string

const (
	SalesOrderCreated   SalesOrderStatus = "CREATED"
	SalesOrderConfirmed SalesOrderStatus = "CONFIRMED"
	SalesOrderCancelled SalesOrderStatus = "CANCELLED"
)

// SalesOrder 表示销售订单。确认时状态迁移 CREATED -> CONFIRMED 并逐行发出
// STOCK_OUT 事件；已确认的订单不可取消，已取消的订单不可确认。
type SalesOrder struct {
	ID           uuid.UUID        `json:"id"`
	CustomerName string           `json:"customer_name"`
	Status       SalesOrderStatus `json:"status"`
	Items        []*SalesItem     `json:"items"`
	CreatedAt    time.Time        `json:"created_at"`
}

// SalesItem 销售订单行项。
type SalesItem struct {
	ID          uuid.UUID `json:"id"`
	OrderID     uuid.UUID `json:"order_id"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	UnitPrice   float64   `json:"unit_price"`
}

// CreatePurchaseOrderRequest 创建采购订单请求。
type CreatePurchaseOrderRequest struct {
	SupplierName string              `json:"supplier_name" binding:"required"`
	Items        []*OrderItemRequest `json:"items" binding:"required,min=1"`
}

// CreateSalesOrderRequest 创建销售订单请求。
type CreateSalesOrderRequest struct {
	CustomerName string              `json:"customer_name" binding:"required"`
	Items        []*OrderItemRequest `json:"items" binding:"required,min=1"`
}

// OrderItemRequest 订单行项请求，UnitAmount 在采购单里是成本、销售单里是售价。
type OrderItemRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,gt=0"`
	UnitAmount  float64   `json:"unit_amount"`
}
