package repo

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// ProductRepository 定义商品数据访问接口。
// 商品目录由目录服务维护，这里只读：补货阈值与存在性校验需要它。
type ProductRepository interface {
	GetByID(id uuid.UUID) (*domain.Product, error)
	GetBySKU(sku string) (*domain.Product, error)
	List() ([]*domain.Product, error)
}

// productRepo 实现ProductRepository接口
type productRepo struct {
	db *sql.DB
}

// NewProductRepository 创建商品仓储实例
func NewProductRepository(db *sql.DB) ProductRepository {
	return &productRepo{db: db}
}

// GetByID 根据ID获取商品
func (r *productRepo) GetByID(id uuid.UUID) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, description, category, unit_price, reorder_level, is_active, created_at
		FROM products
		WHERE id = ?
	`

	product := &domain.Product{}
	err := r.db.QueryRow(query, id).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.UnitPrice,
		&product.ReorderLevel,
		&product.IsActive,
		&product.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by id: %w", err)
	}

	return product, nil
}

// GetBySKU 根据SKU获取商品
func (r *productRepo) GetBySKU(sku string) (*domain.Product, error) {
	query := `
		SELECT id, sku, name, description, category, unit_price, reorder_level, is_active, created_at
		FROM products
		WHERE sku = ?
	`

	product := &domain.Product{}
	err := r.db.QueryRow(query, sku).Scan(
		&product.ID,
		&product.SKU,
		&product.Name,
		&product.Description,
		&product.Category,
		&product.UnitPrice,
		&product.ReorderLevel,
		&product.IsActive,
		&product.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product by sku: %w", err)
	}

	return product, nil
}

// List 获取全部在售商品
func (r *productRepo) List() ([]*domain.Product, error) {
	query := `
		SELECT id, sku, name, description, category, unit_price, reorder_level, is_active, created_at
		FROM products
		WHERE is_active = TRUE
		ORDER BY sku
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []*domain.Product
	for rows.Next() {
		product := &domain.Product{}
		err := rows.Scan(
			&product.ID,
			&product.SKU,
			&product.Name,
			&product.Description,
			&product.Category,
			&product.UnitPrice,
			&product.ReorderLevel,
			&product.IsActive,
			&product.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, product)
	}

	return products, rows.Err()
}
