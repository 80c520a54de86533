// Package mq 提供RabbitMQ消费者实现
package mq

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// MessageHandler 消息处理函数
type MessageHandler func(ctx context.Context, delivery amqp.Delivery) error

// Consumer RabbitMQ消费者。
// 手动确认模式下处理失败的消息也会被确认并丢弃，不做重投，
// 事件处理失败只记录日志，由上游的补偿流程兜底。
type Consumer struct {
	cm      *ConnectionManager
	config  *ConsumerConfig
	logger  *zap.Logger
	handler MessageHandler

	queueName   string
	consumerTag string

	workers []*consumerWorker

	running int32
	closed  int32
}

// consumerWorker 消费者工作器
type consumerWorker struct {
	id       int
	consumer *Consumer
	ch       *amqp.Channel
	delivery <-chan amqp.Delivery
	ctx      context.Context
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewConsumer 创建消费者
func NewConsumer(cm *ConnectionManager, config *ConsumerConfig, logger *zap.Logger) *Consumer {
	if config == nil {
		config = DefaultConfig().Consumer
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Consumer{
		cm:     cm,
		config: config,
		logger: logger,
	}
}

// SetHandler 设置消息处理函数
func (c *Consumer) SetHandler(handler MessageHandler) {
	c.handler = handler
}

// StartConsuming 开始消费消息
func (c *Consumer) StartConsuming(ctx context.Context, queueName string) error {
	if !atomic.CompareAndSwapInt32(&c.running, 0, 1) {
		return fmt.Errorf("consumer is already running")
	}

	if c.handler == nil {
		atomic.StoreInt32(&c.running, 0)
		return fmt.Errorf("message handler is not set")
	}

	c.queueName = queueName
	c.consumerTag = fmt.Sprintf("consumer-%s-%d", queueName, time.Now().Unix())

	c.logger.Info("开始消费消息",
		zap.String("queue", queueName),
		zap.String("consumer_tag", c.consumerTag),
		zap.Int("concurrent_consumers", c.config.ConcurrentConsumers))

	c.workers = make([]*consumerWorker, c.config.ConcurrentConsumers)
	for i := 0; i < c.config.ConcurrentConsumers; i++ {
		worker, err := c.createWorker(ctx, i)
		if err != nil {
			c.stopWorkers()
			atomic.StoreInt32(&c.running, 0)
			return fmt.Errorf("failed to create worker %d: %w", i, err)
		}
		c.workers[i] = worker
		go worker.run()
	}

	return nil
}

// StopConsuming 停止消费消息
func (c *Consumer) StopConsuming() error {
	if !atomic.CompareAndSwapInt32(&c.running, 1, 0) {
		return fmt.Errorf("consumer is not running")
	}

	c.logger.Info("停止消费消息", zap.String("queue", c.queueName))

	c.stopWorkers()
	return nil
}

// createWorker 创建消费者工作器
func (c *Consumer) createWorker(ctx context.Context, id int) (*consumerWorker, error) {
	ch, err := c.cm.GetChannel()
	if err != nil {
		return nil, fmt.Errorf("failed to get channel: %w", err)
	}

	if err := ch.Qos(c.config.PrefetchCount, 0, false); err != nil {
		c.cm.ReturnChannel(ch)
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveryCh, err := ch.Consume(
		c.queueName,
		fmt.Sprintf("%s-%d", c.consumerTag, id),
		false, // 手动确认
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		c.cm.ReturnChannel(ch)
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)

	return &consumerWorker{
		id:       id,
		consumer: c,
		ch:       ch,
		delivery: deliveryCh,
		ctx:      workerCtx,
		cancel:   cancel,
		done:     make(chan struct{}),
	}, nil
}

// stopWorkers 停止所有工作器
func (c *Consumer) stopWorkers() {
	for _, worker := range c.workers {
		if worker != nil {
			worker.cancel()
		}
	}

	for _, worker := range c.workers {
		if worker != nil {
			<-worker.done
		}
	}
}

// run 工作器运行逻辑
func (w *consumerWorker) run() {
	defer close(w.done)
	defer w.consumer.cm.ReturnChannel(w.ch)

	w.consumer.logger.Info("消费者工作器启动",
		zap.Int("worker_id", w.id),
		zap.String("queue", w.consumer.queueName))

	for {
		select {
		case delivery, ok := <-w.delivery:
			if !ok {
				w.consumer.logger.Info("消费通道关闭", zap.Int("worker_id", w.id))
				return
			}

			w.processMessage(delivery)

		case <-w.ctx.Done():
			w.consumer.logger.Info("消费者工作器停止", zap.Int("worker_id", w.id))
			return
		}
	}
}

// processMessage 处理消息，无论成败都确认投递
func (w *consumerWorker) processMessage(delivery amqp.Delivery) {
	ctx, cancel := context.WithTimeout(w.ctx, w.consumer.config.ConsumeTimeout)
	defer cancel()

	if err := w.consumer.handler(ctx, delivery); err != nil {
		w.consumer.logger.Error("消息处理失败，丢弃",
			zap.Error(err),
			zap.String("message_id", delivery.MessageId),
			zap.String("queue", w.consumer.queueName))
	}

	if ackErr := delivery.Ack(false); ackErr != nil {
		w.consumer.logger.Error("消息确认失败",
			zap.Error(ackErr),
			zap.String("message_id", delivery.MessageId))
	}
}

// Close 关闭消费者
func (c *Consumer) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}

	if atomic.LoadInt32(&c.running) == 1 {
		c.StopConsuming()
	}

	return nil
}

// IsRunning 检查是否正在运行
func (c *Consumer) IsRunning() bool {
	return atomic.LoadInt32(&c.running) == 1
}
