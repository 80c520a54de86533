// Package cache 提供缓存抽象与Redis实现，同时承担事件去重标记的存储。
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"
)

// ErrCacheMiss 键不存在或已过期。
var ErrCacheMiss = errors.New("cache: key not found")

// Cache 定义缓存操作接口
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, keys ...string) error
	Exists(ctx context.Context, key string) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error)
	Ping(ctx context.Context) error
	Close() error
}

// MemoryCache 内存缓存实现（用于开发和测试）
type MemoryCache struct {
	mu   sync.Mutex
	data map[string]*memoryCacheItem
}

type memoryCacheItem struct {
	value      []byte
	expiration time.Time
}

// NewMemoryCache 创建内存缓存实例
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		data: make(map[string]*memoryCacheItem),
	}
}

// Get 获取缓存值
func (m *MemoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, exists := m.data[key]
	if !exists {
		return ErrCacheMiss
	}
	if time.Now().After(item.expiration) {
		delete(m.data, key)
		return ErrCacheMiss
	}

	return json.Unmarshal(item.value, dest)
}

// Set 设置缓存值
func (m *MemoryCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = &memoryCacheItem{
		value:      data,
		expiration: time.Now().Add(expiration),
	}
	return nil
}

// Del 删除缓存值
func (m *MemoryCache) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// Exists 检查键是否存在
func (m *MemoryCache) Exists(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.existsLocked(key), nil
}

// SetNX 仅当键不存在时设置，返回是否成功占位
func (m *MemoryCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.existsLocked(key) {
		return false, nil
	}
	m.data[key] = &memoryCacheItem{
		value:      data,
		expiration: time.Now().Add(expiration),
	}
	return true, nil
}

// existsLocked 检查键是否存在且未过期，调用方需持有锁。
func (m *MemoryCache) existsLocked(key string) bool {
	item, exists := m.data[key]
	if !exists {
		return false
	}
	if time.Now().After(item.expiration) {
		delete(m.data, key)
		return false
	}
	return true
}

// Ping 检查连接
func (m *MemoryCache) Ping(ctx context.Context) error {
	return nil
}

// Close 关闭缓存
func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = make(map[string]*memoryCacheItem)
	return nil
}

// NullCache 空缓存实现（禁用缓存时使用）。
// Exists 恒为 false、SetNX 恒返回 true：
// 禁用缓存意味着放弃去重保护，事件照常处理。
type NullCache struct{}

// NewNullCache 创建空缓存实例
func NewNullCache() *NullCache {
	return &NullCache{}
}

func (n *NullCache) Get(ctx context.Context, key string, dest interface{}) error {
	return ErrCacheMiss
}

func (n *NullCache) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return nil
}

func (n *NullCache) Del(ctx context.Context, keys ...string) error {
	return nil
}

func (n *NullCache) Exists(ctx context.Context, key string) (bool, error) {
	return false, nil
}

func (n *NullCache) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) (bool, error) {
	return true, nil
}

func (n *NullCache) Ping(ctx context.Context) error {
	return nil
}

func (n *NullCache) Close() error {
	return nil
}
