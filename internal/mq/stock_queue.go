// Package mq 提供库存事件相关的队列定义和拓扑管理
package mq

import (
	"fmt"

	"go.uber.org/zap"
)

// 库存事件相关的交换机、队列和路由键常量
const (
	// 交换机
	StockExchange = "stock.events" // 库存事件主交换机

	// 队列
	StockInQueue    = "stock.in.events"    // 入库事件队列
	StockOutQueue   = "stock.out.events"   // 出库事件队列
	StockAlertQueue = "stock.alert.events" // 低库存告警队列

	// 路由键
	StockInRoutingKey    = "stock.in"
	StockOutRoutingKey   = "stock.out"
	StockAlertRoutingKey = "stock.alert"
)

// StockQueueManager 库存队列管理器，负责声明交换机、队列和绑定
type StockQueueManager struct {
	cm     *ConnectionManager
	logger *zap.Logger
}

// NewStockQueueManager 创建库存队列管理器
func NewStockQueueManager(cm *ConnectionManager, logger *zap.Logger) *StockQueueManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &StockQueueManager{
		cm:     cm,
		logger: logger,
	}
}

// SetupQueues 设置库存事件的交换机、队列和绑定。
// 声明是幂等的，生产者和消费者启动时都会执行一次。
func (qm *StockQueueManager) SetupQueues() error {
	ch, err := qm.cm.GetChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	defer qm.cm.ReturnChannel(ch)

	if err := ch.ExchangeDeclare(
		StockExchange,
		"topic",
		true,  // durable
		false, // autoDelete
		false, // internal
		false, // noWait
		nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange %s: %w", StockExchange, err)
	}

	queues := []string{StockInQueue, StockOutQueue, StockAlertQueue}
	for _, queue := range queues {
		if _, err := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare queue %s: %w", queue, err)
		}
	}

	bindings := []struct {
		queue      string
		routingKey string
	}{
		{StockInQueue, StockInRoutingKey},
		{StockOutQueue, StockOutRoutingKey},
		{StockAlertQueue, StockAlertRoutingKey},
	}

	for _, binding := range bindings {
		if err := ch.QueueBind(
			binding.queue,
			binding.routingKey,
			StockExchange,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to bind queue %s to exchange %s: %w",
				binding.queue, StockExchange, err)
		}
		qm.logger.Debug("绑定队列",
			zap.String("queue", binding.queue),
			zap.String("routing_key", binding.routingKey))
	}

	qm.logger.Info("库存事件队列设置完成", zap.String("exchange", StockExchange))
	return nil
}
