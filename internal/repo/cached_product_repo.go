// Package repo 提供带缓存的商品仓储实现
package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/cache"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// CachedProductRepository 带缓存的商品仓储。
// 补货阈值在每次出库后都要读，商品目录又极少变化，读穿透缓存收益明显。
type CachedProductRepository struct {
	repo  ProductRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedProductRepository 创建带缓存的商品仓储
func NewCachedProductRepository(repo ProductRepository, cache cache.Cache, ttl time.Duration) ProductRepository {
	return &CachedProductRepository{
		repo:  repo,
		cache: cache,
		ttl:   ttl,
	}
}

// GetByID 根据ID获取商品（带缓存）
func (r *CachedProductRepository) GetByID(id uuid.UUID) (*domain.Product, error) {
	ctx := context.Background()
	cacheKey := r.getProductCacheKey(id)

	var product domain.Product
	if err := r.cache.Get(ctx, cacheKey, &product); err == nil {
		return &product, nil
	}

	// 缓存未命中，从数据库获取
	result, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	r.cache.Set(ctx, cacheKey, result, r.ttl)
	return result, nil
}

// GetBySKU 根据SKU获取商品（带缓存）
func (r *CachedProductRepository) GetBySKU(sku string) (*domain.Product, error) {
	ctx := context.Background()
	cacheKey := r.getProductSKUCacheKey(sku)

	var product domain.Product
	if err := r.cache.Get(ctx, cacheKey, &product); err == nil {
		return &product, nil
	}

	result, err := r.repo.GetBySKU(sku)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	r.cache.Set(ctx, cacheKey, result, r.ttl)
	// 同时缓存ID索引
	r.cache.Set(ctx, r.getProductCacheKey(result.ID), result, r.ttl)
	return result, nil
}

// List 获取商品列表（不缓存，调用频率低）
func (r *CachedProductRepository) List() ([]*domain.Product, error) {
	return r.repo.List()
}

func (r *CachedProductRepository) getProductCacheKey(id uuid.UUID) string {
	return fmt.Sprintf("product:id:%s", id)
}

func (r *CachedProductRepository) getProductSKUCacheKey(sku string) string {
	return fmt.Sprintf("product:sku:%s", sku)
}
