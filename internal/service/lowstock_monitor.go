// Package service 实现库存账本业务逻辑层。
package service

import (
	"sync"

	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// Notifier 低库存通知出口。实现方自行处理失败，监视器只记录不重试。
type Notifier interface {
	NotifyLowStock(alert *domain.LowStockAlert) error
}

// LogNotifier 仅写日志的通知实现，MQ不可用时的兜底。
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier 创建日志通知器
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// NotifyLowStock 记录低库存告警日志
func (n *LogNotifier) NotifyLowStock(alert *domain.LowStockAlert) error {
	n.logger.Warn("low stock alert",
		zap.String("product_id", alert.ProductID.String()),
		zap.String("product_sku", alert.ProductSKU),
		zap.String("warehouse_id", alert.WarehouseID.String()),
		zap.Int("current_quantity", alert.CurrentQuantity),
		zap.Int("reorder_level", alert.ReorderLevel),
	)
	return nil
}

// LowStockMonitor 补货监视器。告警走有界通道异步投递，
// 入队永不阻塞库存变更，通道满时丢弃并记日志。
type LowStockMonitor struct {
	notifier Notifier
	logger   *zap.Logger

	alerts chan *domain.LowStockAlert
	done   chan struct{}

	// mu 保护 stopped 与告警通道的发送端，Stop 关闭通道时不能有在途的发送。
	mu      sync.RWMutex
	stopped bool

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewLowStockMonitor 创建补货监视器，bufferSize 为告警通道容量。
func NewLowStockMonitor(notifier Notifier, logger *zap.Logger, bufferSize int) *LowStockMonitor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &LowStockMonitor{
		notifier: notifier,
		logger:   logger,
		alerts:   make(chan *domain.LowStockAlert, bufferSize),
		done:     make(chan struct{}),
	}
}

// Start 启动告警消费协程
func (m *LowStockMonitor) Start() {
	m.startOnce.Do(func() {
		go m.run()
	})
}

// Stop 停止监视器，等待已入队告警处理完毕。
// 停止后的 Check 调用直接丢弃告警，不会恐慌。
func (m *LowStockMonitor) Stop() {
	m.stopOnce.Do(func() {
		m.mu.Lock()
		m.stopped = true
		close(m.alerts)
		m.mu.Unlock()
		<-m.done
	})
}

// Check 在库存变更成功后调用：数量落到阈值以下（含相等）时发出告警。
// 通知失败不会回传给调用方，库存变更本身已经落库。
func (m *LowStockMonitor) Check(product *domain.Product, warehouse *domain.Warehouse, quantity int) {
	if product == nil || quantity > product.ReorderLevel {
		return
	}

	alert := &domain.LowStockAlert{
		ProductID:       product.ID,
		ProductSKU:      product.SKU,
		ProductName:     product.Name,
		CurrentQuantity: quantity,
		ReorderLevel:    product.ReorderLevel,
	}
	if warehouse != nil {
		alert.WarehouseID = warehouse.ID
		alert.WarehouseName = warehouse.Name
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.stopped {
		m.logger.Warn("low stock alert dropped, monitor stopped",
			zap.String("product_id", alert.ProductID.String()),
			zap.String("warehouse_id", alert.WarehouseID.String()),
		)
		return
	}

	select {
	case m.alerts <- alert:
	default:
		m.logger.Warn("low stock alert dropped, queue full",
			zap.String("product_id", alert.ProductID.String()),
			zap.String("warehouse_id", alert.WarehouseID.String()),
		)
	}
}

func (m *LowStockMonitor) run() {
	defer close(m.done)
	for alert := range m.alerts {
		if err := m.notifier.NotifyLowStock(alert); err != nil {
			m.logger.Error("failed to deliver low stock alert",
				zap.String("product_id", alert.ProductID.String()),
				zap.Error(err),
			)
		}
	}
}
