// Package mq 提供库存事件消费者
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/cache"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/service"
)

// 事件去重键的前缀和保留时长。
// 通道是至少一次投递，消费前用SetNX抢占事件ID实现幂等。
const (
	dedupKeyPrefix = "stock:event:"
	dedupTTL       = 7 * 24 * time.Hour
)

// StockEventConsumer 库存事件消费者，将入库/出库事件落到库存台账。
type StockEventConsumer struct {
	cm       *ConnectionManager
	stockSvc service.StockService
	cache    cache.Cache
	config   *ConsumerConfig
	logger   *zap.Logger

	consumers map[string]*Consumer
}

// NewStockEventConsumer 创建库存事件消费者
func NewStockEventConsumer(
	cm *ConnectionManager,
	stockSvc service.StockService,
	c cache.Cache,
	config *ConsumerConfig,
	logger *zap.Logger,
) *StockEventConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StockEventConsumer{
		cm:        cm,
		stockSvc:  stockSvc,
		cache:     c,
		config:    config,
		logger:    logger,
		consumers: make(map[string]*Consumer),
	}
}

// StartConsumers 声明队列拓扑并启动入库/出库两个消费者
func (sc *StockEventConsumer) StartConsumers(ctx context.Context) error {
	qm := NewStockQueueManager(sc.cm, sc.logger)
	if err := qm.SetupQueues(); err != nil {
		return fmt.Errorf("failed to setup queues: %w", err)
	}

	if err := sc.startConsumer(ctx, StockInQueue, sc.handleStockIn); err != nil {
		return fmt.Errorf("failed to start stock in consumer: %w", err)
	}

	if err := sc.startConsumer(ctx, StockOutQueue, sc.handleStockOut); err != nil {
		return fmt.Errorf("failed to start stock out consumer: %w", err)
	}

	sc.logger.Info("库存事件消费者启动成功")
	return nil
}

// StopConsumers 停止所有消费者
func (sc *StockEventConsumer) StopConsumers() {
	for queue, consumer := range sc.consumers {
		if err := consumer.StopConsuming(); err != nil {
			sc.logger.Warn("停止消费者失败",
				zap.String("queue", queue),
				zap.Error(err))
		}
	}
}

func (sc *StockEventConsumer) startConsumer(ctx context.Context, queue string, handler MessageHandler) error {
	consumer := NewConsumer(sc.cm, sc.config, sc.logger)
	consumer.SetHandler(handler)

	if err := consumer.StartConsuming(ctx, queue); err != nil {
		return err
	}

	sc.consumers[queue] = consumer
	return nil
}

// handleStockIn 处理入库事件
func (sc *StockEventConsumer) handleStockIn(ctx context.Context, delivery amqp.Delivery) error {
	return sc.handleEvent(ctx, delivery.Body, domain.StockInEvent, sc.stockSvc.ApplyInboundEvent)
}

// handleStockOut 处理出库事件
func (sc *StockEventConsumer) handleStockOut(ctx context.Context, delivery amqp.Delivery) error {
	return sc.handleEvent(ctx, delivery.Body, domain.StockOutEvent, sc.stockSvc.ApplyOutboundEvent)
}

// handleEvent 反序列化、去重并应用事件。
// 重复事件返回nil直接确认；处理失败由消费者基础设施记录并丢弃。
func (sc *StockEventConsumer) handleEvent(
	ctx context.Context,
	body []byte,
	wantType domain.StockEventType,
	apply func(*domain.StockEvent) error,
) error {
	var event domain.StockEvent
	if err := json.Unmarshal(body, &event); err != nil {
		return fmt.Errorf("invalid event payload: %w", err)
	}

	if err := event.Validate(); err != nil {
		return fmt.Errorf("event validation failed: %w", err)
	}

	if event.EventType != wantType {
		return fmt.Errorf("unexpected event type %s on %s queue", event.EventType, wantType)
	}

	dedupKey := dedupKeyPrefix + event.EventID.String()
	seen, err := sc.cache.Exists(ctx, dedupKey)
	if err != nil {
		return fmt.Errorf("dedup check failed: %w", err)
	}
	if seen {
		sc.logger.Info("重复事件，跳过处理",
			zap.String("event_id", event.EventID.String()),
			zap.String("event_type", string(event.EventType)))
		return nil
	}

	if err := apply(&event); err != nil {
		return fmt.Errorf("failed to apply event %s: %w", event.EventID, err)
	}

	// 应用成功后才落去重标记。中途崩溃时消息未确认，
	// 重投后会重新应用，保持至少一次语义。
	if err := sc.cache.Set(ctx, dedupKey, "1", dedupTTL); err != nil {
		sc.logger.Warn("记录去重标记失败",
			zap.String("event_id", event.EventID.String()),
			zap.Error(err))
	}

	sc.logger.Info("库存事件处理完成",
		zap.String("event_id", event.EventID.String()),
		zap.String("event_type", string(event.EventType)),
		zap.String("product_id", event.ProductID.String()),
		zap.Int("quantity", event.Quantity))

	return nil
}
