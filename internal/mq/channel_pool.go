// Package mq 提供RabbitMQ通道池管理
package mq

import (
	"fmt"
	"sync/atomic"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ChannelPool 通道池，复用AMQP通道避免频繁创建
type ChannelPool struct {
	maxSize  int
	channels chan *amqp.Channel
	cm       *ConnectionManager
	closed   int32
}

// NewChannelPool 创建通道池
func NewChannelPool(maxSize int, cm *ConnectionManager) *ChannelPool {
	return &ChannelPool{
		maxSize:  maxSize,
		channels: make(chan *amqp.Channel, maxSize),
		cm:       cm,
	}
}

// Get 获取通道，池中无可用通道时新建
func (cp *ChannelPool) Get() (*amqp.Channel, error) {
	if atomic.LoadInt32(&cp.closed) == 1 {
		return nil, fmt.Errorf("channel pool is closed")
	}

	select {
	case ch := <-cp.channels:
		if ch != nil && !ch.IsClosed() {
			return ch, nil
		}
		// 通道已关闭，丢弃后新建
	default:
	}

	conn := cp.cm.GetConnection()
	if conn == nil || conn.IsClosed() {
		return nil, fmt.Errorf("connection is not available")
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	return ch, nil
}

// Return 归还通道，池已满时直接关闭
func (cp *ChannelPool) Return(ch *amqp.Channel) {
	if atomic.LoadInt32(&cp.closed) == 1 {
		if ch != nil && !ch.IsClosed() {
			ch.Close()
		}
		return
	}

	if ch == nil || ch.IsClosed() {
		return
	}

	select {
	case cp.channels <- ch:
	default:
		ch.Close()
	}
}

// Close 关闭通道池
func (cp *ChannelPool) Close() {
	if !atomic.CompareAndSwapInt32(&cp.closed, 0, 1) {
		return
	}

	close(cp.channels)
	for ch := range cp.channels {
		if ch != nil && !ch.IsClosed() {
			ch.Close()
		}
	}
}
