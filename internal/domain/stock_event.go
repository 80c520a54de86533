package domain

import (
	"time"

	"github.com/google/uuid"
)

// StockEventType 表示跨服务库存事件类型。
type StockEventType string

const (
	StockInEvent  StockEventType = "STOCK_IN_EVENT"  // 采购单收货
	StockOutEvent StockEventType = "STOCK_OUT_EVENT" // 销售单确认
)

// StockEvent 是订单侧与库存侧之间的线上消息契约。
// 由订单生命周期一次性产生，经至少一次投递通道被库存侧消费零次或多次；
// 台账本身不持久化事件，只有通道的投递机制会暂存它。
type StockEvent struct {
	EventID     uuid.UUID      `json:"eventId"`
	EventType   StockEventType `json:"eventType"`
	ProductID   uuid.UUID      `json:"productId"`
	WarehouseID uuid.UUID      `json:"warehouseId"`
	Quantity    int            `json:"quantity"`
	ReferenceID uuid.UUID      `json:"referenceId"` // 来源订单ID
	Timestamp   time.Time      `json:"timestamp"`
}

// NewStockInEvent 构造一条采购入库事件。
func NewStockInEvent(productID, warehouseID uuid.UUID, quantity int, referenceID uuid.UUID) *StockEvent {
	return newStockEvent(StockInEvent, productID, warehouseID, quantity, referenceID)
}

// NewStockOutEvent 构造一条销售出库事件。
func NewStockOutEvent(productID, warehouseID uuid.UUID, quantity int, referenceID uuid.UUID) *StockEvent {
	return newStockEvent(StockOutEvent, productID, warehouseID, quantity, referenceID)
}

func newStockEvent(t StockEventType, productID, warehouseID uuid.UUID, quantity int, referenceID uuid.UUID) *StockEvent {
	return &StockEvent{
		EventID:     uuid.New(),
		EventType:   t,
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		ReferenceID: referenceID,
		Timestamp:   time.Now().UTC(),
	}
}

// Validate 校验事件字段是否满足契约要求。
func (e *StockEvent) Validate() error {
	if e.EventID == uuid.Nil {
		return ErrBadRequest
	}
	if e.EventType != StockInEvent && e.EventType != StockOutEvent {
		return ErrBadRequest
	}
	if e.ProductID == uuid.Nil || e.WarehouseID == uuid.Nil {
		return ErrBadRequest
	}
	if e.Quantity <= 0 {
		return ErrBadRequest
	}
	return nil
}
