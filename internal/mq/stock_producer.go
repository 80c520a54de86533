// Package mq 提供库存事件生产者
package mq

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// publishTimeout 单条事件发布的总超时，覆盖重试在内。
const publishTimeout = 30 * time.Second

// StockEventProducer 库存事件生产者，将订单生命周期事件发布到库存交换机。
// 实现 service.StockEventPublisher 接口。
type StockEventProducer struct {
	producer *Producer
	qm       *StockQueueManager
	logger   *zap.Logger
}

// NewStockEventProducer 创建库存事件生产者并声明队列拓扑
func NewStockEventProducer(cm *ConnectionManager, config *ProducerConfig, logger *zap.Logger) (*StockEventProducer, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	qm := NewStockQueueManager(cm, logger)
	if err := qm.SetupQueues(); err != nil {
		return nil, err
	}

	return &StockEventProducer{
		producer: NewProducer(cm, config, logger),
		qm:       qm,
		logger:   logger,
	}, nil
}

// PublishStockIn 发布入库事件
func (p *StockEventProducer) PublishStockIn(event *domain.StockEvent) error {
	return p.publish(event, StockInRoutingKey)
}

// PublishStockOut 发布出库事件
func (p *StockEventProducer) PublishStockOut(event *domain.StockEvent) error {
	return p.publish(event, StockOutRoutingKey)
}

func (p *StockEventProducer) publish(event *domain.StockEvent, routingKey string) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	options := &PublishOptions{
		MessageID: event.EventID.String(),
		Type:      string(event.EventType),
		Timestamp: event.Timestamp,
		Headers: map[string]interface{}{
			"product-id":   event.ProductID.String(),
			"warehouse-id": event.WarehouseID.String(),
			"reference-id": event.ReferenceID.String(),
		},
	}

	p.logger.Info("发布库存事件",
		zap.String("event_id", event.EventID.String()),
		zap.String("event_type", string(event.EventType)),
		zap.String("routing_key", routingKey),
		zap.String("product_id", event.ProductID.String()),
		zap.Int("quantity", event.Quantity))

	return p.producer.PublishJSON(ctx, StockExchange, routingKey, event, options)
}

// Close 关闭生产者
func (p *StockEventProducer) Close() error {
	return p.producer.Close()
}

// AlertPublisher 将低库存告警发布到告警队列。
// 实现 service.Notifier 接口，供监控协程在告警触发时调用。
type AlertPublisher struct {
	producer *Producer
	logger   *zap.Logger
}

// NewAlertPublisher 创建告警发布器
func NewAlertPublisher(cm *ConnectionManager, config *ProducerConfig, logger *zap.Logger) *AlertPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AlertPublisher{
		producer: NewProducer(cm, config, logger),
		logger:   logger,
	}
}

// NotifyLowStock 发布低库存告警消息
func (p *AlertPublisher) NotifyLowStock(alert *domain.LowStockAlert) error {
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()

	options := &PublishOptions{
		Headers: map[string]interface{}{
			"product-id":   alert.ProductID.String(),
			"warehouse-id": alert.WarehouseID.String(),
		},
	}

	return p.producer.PublishJSON(ctx, StockExchange, StockAlertRoutingKey, alert, options)
}

// Close 关闭发布器
func (p *AlertPublisher) Close() error {
	return p.producer.Close()
}
