// Package mq 提供RabbitMQ连接管理和通道池
package mq

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ConnectionState 连接状态
type ConnectionState int32

const (
	StateDisconnected ConnectionState = iota
	StateConnecting
	StateConnected
	StateReconnecting
	StateClosed
)

func (s ConnectionState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateReconnecting:
		return "reconnecting"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// ConnectionManager RabbitMQ连接管理器
type ConnectionManager struct {
	config *Config
	logger *zap.Logger

	conn      *amqp.Connection
	connMutex sync.RWMutex
	state     int32 // 使用atomic操作

	channelPool *ChannelPool

	stopCh chan struct{}
}

// NewConnectionManager 创建连接管理器
func NewConnectionManager(config *Config, logger *zap.Logger) *ConnectionManager {
	if logger == nil {
		logger = zap.NewNop()
	}

	cm := &ConnectionManager{
		config: config,
		logger: logger,
		state:  int32(StateDisconnected),
		stopCh: make(chan struct{}),
	}

	cm.channelPool = NewChannelPool(config.MaxChannels, cm)

	return cm
}

// Connect 建立连接
func (cm *ConnectionManager) Connect() error {
	if !atomic.CompareAndSwapInt32(&cm.state, int32(StateDisconnected), int32(StateConnecting)) {
		return fmt.Errorf("connection is already in progress or connected")
	}

	cm.logger.Info("连接RabbitMQ",
		zap.String("host", cm.config.Host),
		zap.Int("port", cm.config.Port),
		zap.String("vhost", cm.config.VHost))

	if err := cm.dial(); err != nil {
		atomic.StoreInt32(&cm.state, int32(StateDisconnected))
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	cm.logger.Info("RabbitMQ连接成功")

	go cm.monitorConnection()

	return nil
}

// dial 建立底层连接并更新状态
func (cm *ConnectionManager) dial() error {
	connConfig := amqp.Config{
		Heartbeat: cm.config.HeartbeatInterval,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(cm.config.ConnectionTimeout),
	}

	conn, err := amqp.DialConfig(cm.config.GetConnectionURL(), connConfig)
	if err != nil {
		return err
	}

	cm.connMutex.Lock()
	cm.conn = conn
	cm.connMutex.Unlock()

	atomic.StoreInt32(&cm.state, int32(StateConnected))
	return nil
}

// GetConnection 获取连接
func (cm *ConnectionManager) GetConnection() *amqp.Connection {
	cm.connMutex.RLock()
	defer cm.connMutex.RUnlock()
	return cm.conn
}

// GetChannel 获取通道
func (cm *ConnectionManager) GetChannel() (*amqp.Channel, error) {
	return cm.channelPool.Get()
}

// ReturnChannel 归还通道
func (cm *ConnectionManager) ReturnChannel(ch *amqp.Channel) {
	cm.channelPool.Return(ch)
}

// IsConnected 检查是否已连接
func (cm *ConnectionManager) IsConnected() bool {
	return atomic.LoadInt32(&cm.state) == int32(StateConnected)
}

// GetState 获取连接状态
func (cm *ConnectionManager) GetState() ConnectionState {
	return ConnectionState(atomic.LoadInt32(&cm.state))
}

// Close 关闭连接
func (cm *ConnectionManager) Close() error {
	if !atomic.CompareAndSwapInt32(&cm.state, int32(StateConnected), int32(StateClosed)) &&
		!atomic.CompareAndSwapInt32(&cm.state, int32(StateDisconnected), int32(StateClosed)) &&
		!atomic.CompareAndSwapInt32(&cm.state, int32(StateReconnecting), int32(StateClosed)) {
		return nil // 已经关闭或正在关闭
	}

	cm.logger.Info("关闭RabbitMQ连接")

	close(cm.stopCh)
	cm.channelPool.Close()

	cm.connMutex.Lock()
	defer cm.connMutex.Unlock()
	if cm.conn != nil {
		err := cm.conn.Close()
		cm.conn = nil
		return err
	}

	return nil
}

// monitorConnection 监控连接状态，断开后触发重连
func (cm *ConnectionManager) monitorConnection() {
	cm.connMutex.RLock()
	conn := cm.conn
	cm.connMutex.RUnlock()

	if conn == nil {
		return
	}

	closeCh := make(chan *amqp.Error, 1)
	conn.NotifyClose(closeCh)

	select {
	case err := <-closeCh:
		if err != nil {
			cm.logger.Error("RabbitMQ连接意外关闭", zap.Error(err))
			cm.handleDisconnection()
		}
	case <-cm.stopCh:
		return
	}
}

// handleDisconnection 处理连接断开
func (cm *ConnectionManager) handleDisconnection() {
	if !atomic.CompareAndSwapInt32(&cm.state, int32(StateConnected), int32(StateReconnecting)) {
		return // 已经在重连或已关闭
	}

	if cm.config.EnableReconnect {
		go cm.reconnect()
	} else {
		atomic.StoreInt32(&cm.state, int32(StateDisconnected))
	}
}

// reconnect 重连逻辑
func (cm *ConnectionManager) reconnect() {
	attempts := 0
	maxAttempts := cm.config.MaxReconnectAttempts

	for {
		select {
		case <-cm.stopCh:
			return
		default:
		}

		attempts++
		cm.logger.Info("尝试重连RabbitMQ",
			zap.Int("attempt", attempts),
			zap.Int("max_attempts", maxAttempts))

		// 清理旧连接
		cm.connMutex.Lock()
		if cm.conn != nil {
			cm.conn.Close()
			cm.conn = nil
		}
		cm.connMutex.Unlock()

		if err := cm.dial(); err == nil {
			cm.logger.Info("RabbitMQ重连成功", zap.Int("attempts", attempts))
			go cm.monitorConnection()
			return
		} else {
			cm.logger.Error("RabbitMQ重连失败",
				zap.Error(err),
				zap.Int("attempt", attempts))
		}

		if maxAttempts > 0 && attempts >= maxAttempts {
			cm.logger.Error("RabbitMQ重连失败，达到最大重试次数",
				zap.Int("max_attempts", maxAttempts))
			atomic.StoreInt32(&cm.state, int32(StateDisconnected))
			return
		}

		select {
		case <-time.After(cm.config.ReconnectInterval):
		case <-cm.stopCh:
			return
		}
	}
}
