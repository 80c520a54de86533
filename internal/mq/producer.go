// Package mq 提供RabbitMQ生产者实现
package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Producer RabbitMQ生产者，支持发布确认和重试
type Producer struct {
	cm     *ConnectionManager
	config *ProducerConfig
	logger *zap.Logger

	closed bool
	mutex  sync.RWMutex
}

// PublishOptions 发布选项
type PublishOptions struct {
	Mandatory bool
	Headers   map[string]interface{}
	MessageID string
	Timestamp time.Time
	Type      string
}

// NewProducer 创建生产者
func NewProducer(cm *ConnectionManager, config *ProducerConfig, logger *zap.Logger) *Producer {
	if config == nil {
		config = DefaultConfig().Producer
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Producer{
		cm:     cm,
		config: config,
		logger: logger,
	}
}

// Publish 发布消息，失败时按配置间隔重试
func (p *Producer) Publish(ctx context.Context, exchange, routingKey string, body []byte, options *PublishOptions) error {
	if p.isClosed() {
		return fmt.Errorf("producer is closed")
	}

	publishing := p.buildPublishing(body, options)

	var lastErr error
	maxAttempts := p.config.MaxRetryAttempts + 1

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := p.publishOnce(ctx, exchange, routingKey, publishing, options)
		if err == nil {
			return nil
		}

		lastErr = err
		p.logger.Warn("消息发布失败",
			zap.String("exchange", exchange),
			zap.String("routing_key", routingKey),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", maxAttempts),
			zap.Error(err))

		if attempt == maxAttempts {
			break
		}

		select {
		case <-time.After(p.config.RetryInterval):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return fmt.Errorf("failed to publish message after %d attempts: %w", maxAttempts, lastErr)
}

// PublishJSON 发布JSON消息
func (p *Producer) PublishJSON(ctx context.Context, exchange, routingKey string, data interface{}, options *PublishOptions) error {
	body, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if options == nil {
		options = &PublishOptions{}
	}
	if options.Headers == nil {
		options.Headers = make(map[string]interface{})
	}
	options.Headers["content-type"] = "application/json"

	return p.Publish(ctx, exchange, routingKey, body, options)
}

// publishOnce 单次发布消息
func (p *Producer) publishOnce(ctx context.Context, exchange, routingKey string, publishing amqp.Publishing, options *PublishOptions) error {
	ch, err := p.cm.GetChannel()
	if err != nil {
		return fmt.Errorf("failed to get channel: %w", err)
	}
	defer p.cm.ReturnChannel(ch)

	var confirmCh chan amqp.Confirmation
	if p.config.EnableConfirm {
		if err := ch.Confirm(false); err != nil {
			return fmt.Errorf("failed to set confirm mode: %w", err)
		}
		confirmCh = ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	}

	publishCtx, cancel := context.WithTimeout(ctx, p.config.PublishTimeout)
	defer cancel()

	mandatory := false
	if options != nil {
		mandatory = options.Mandatory
	}

	if err := ch.PublishWithContext(publishCtx, exchange, routingKey, mandatory, false, publishing); err != nil {
		return fmt.Errorf("failed to publish message: %w", err)
	}

	if p.config.EnableConfirm {
		select {
		case confirmation := <-confirmCh:
			if confirmation.Ack {
				return nil
			}
			return fmt.Errorf("message was nacked by broker")
		case <-time.After(p.config.ConfirmTimeout):
			return fmt.Errorf("publish confirmation timeout")
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}

// buildPublishing 构建发布消息
func (p *Producer) buildPublishing(body []byte, options *PublishOptions) amqp.Publishing {
	publishing := amqp.Publishing{
		Body:         body,
		ContentType:  "application/octet-stream",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
	}

	if options != nil {
		if options.Headers != nil {
			publishing.Headers = options.Headers
		}
		if options.MessageID != "" {
			publishing.MessageId = options.MessageID
		}
		if !options.Timestamp.IsZero() {
			publishing.Timestamp = options.Timestamp
		}
		if options.Type != "" {
			publishing.Type = options.Type
		}

		if ct, ok := options.Headers["content-type"].(string); ok {
			publishing.ContentType = ct
		}
	}

	return publishing
}

// Close 关闭生产者
func (p *Producer) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	p.closed = true
	return nil
}

// isClosed 检查是否已关闭
func (p *Producer) isClosed() bool {
	p.mutex.RLock()
	defer p.mutex.RUnlock()
	return p.closed
}
