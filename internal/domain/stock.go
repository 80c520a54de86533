package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockLevel 表示某个 (商品, 仓库) 单元的当前库存数量。
// 每个单元最多一条记录，首次发生库存变动时惰性创建，数量永不为负。
type StockLevel struct {
	ID          uuid.UUID `json:"id"`
	ProductID   uuid.UUID `json:"product_id"`
	WarehouseID uuid.UUID `json:"warehouse_id"`
	Quantity    int       `json:"quantity"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// IsLowStock 判断数量是否落到商品补货阈值以下（含相等）。
func (s *StockLevel) IsLowStock(reorderLevel int) bool {
	return s.Quantity <= reorderLevel
}

// MovementType 表示库存变动类型。
type MovementType string

const (
	MovementIn          MovementType = "IN"           // 采购入库
	MovementOut         MovementType = "OUT"          // 销售出库
	MovementAdjust      MovementType = "ADJUST"       // 人工调整
	MovementTransferIn  MovementType = "TRANSFER_IN"  // 调拨入库
	MovementTransferOut MovementType = "TRANSFER_OUT" // 调拨出库
)

// Valid 校验变动类型是否为已知取值。
func (t MovementType) Valid() bool {
	switch t {
	case MovementIn, MovementOut, MovementAdjust, MovementTransferIn, MovementTransferOut:
		return true
	}
	return false
}

// StockMovement 表示一条不可变的库存变动流水。
// 只追加、不更新、不删除；单元数量恒等于该单元全部流水的累计和。
// ReferenceID 关联变动来源：调拨的两条流水共享同一个ID，事件驱动的流水指向原始订单。
type StockMovement struct {
	ID          uuid.UUID    `json:"id"`
	ProductID   uuid.UUID    `json:"product_id"`
	WarehouseID uuid.UUID    `json:"warehouse_id"`
	Type        MovementType `json:"type"`
	Quantity    int          `json:"quantity"` // 变动幅度，恒为正数
	ReferenceID *uuid.UUID   `json:"reference_id,omitempty"`
	Reason      string       `json:"reason,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
}

// StockAdjustRequest 表示库存调整请求。
type StockAdjustRequest struct {
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required"` // 有符号增量，正数入库，负数出库
	Reason      string    `json:"reason"`
}

// StockTransferRequest 表示跨仓库调拨请求。
type StockTransferRequest struct {
	ProductID              uuid.UUID `json:"product_id" binding:"required"`
	SourceWarehouseID      uuid.UUID `json:"source_warehouse_id" binding:"required"`
	DestinationWarehouseID uuid.UUID `json:"destination_warehouse_id" binding:"required"`
	Quantity               int       `json:"quantity" binding:"required,gt=0"`
	Reason                 string    `json:"reason"`
}

// MovementListRequest 表示流水查询请求，按写入顺序（created_at 升序）返回。
type MovementListRequest struct {
	ProductID   *uuid.UUID `json:"product_id"`
	WarehouseID *uuid.UUID `json:"warehouse_id"`
	Page        int        `json:"page"`
	PageSize    int        `json:"page_size"`
}

// MovementListResponse 表示流水查询响应。
type MovementListResponse struct {
	Movements []*StockMovement `json:"movements"`
	Total     int64            `json:"total"`
	Page      int              `json:"page"`
	PageSize  int              `json:"page_size"`
}

// LowStockAlert 低库存通知载荷，由补货监视器发往外部通知方。
type LowStockAlert struct {
	ProductID       uuid.UUID `json:"product_id"`
	ProductSKU      string    `json:"product_sku"`
	ProductName     string    `json:"product_name"`
	WarehouseID     uuid.UUID `json:"warehouse_id"`
	WarehouseName   string    `json:"warehouse_name"`
	CurrentQuantity int       `json:"current_quantity"`
	ReorderLevel    int       `json:"reorder_level"`
}
