package repo

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// WarehouseRepository 定义仓库数据访问接口，本服务只读。
type WarehouseRepository interface {
	GetByID(id uuid.UUID) (*domain.Warehouse, error)
	List() ([]*domain.Warehouse, error)
}

// warehouseRepo 实现WarehouseRepository接口
type warehouseRepo struct {
	db *sql.DB
}

// NewWarehouseRepository 创建仓库仓储实例
func NewWarehouseRepository(db *sql.DB) WarehouseRepository {
	return &warehouseRepo{db: db}
}

// GetByID 根据ID获取仓库
func (r *warehouseRepo) GetByID(id uuid.UUID) (*domain.Warehouse, error) {
	query := `
		SELECT id, name, location, created_at
		FROM warehouses
		WHERE id = ?
	`

	warehouse := &domain.Warehouse{}
	err := r.db.QueryRow(query, id).Scan(
		&warehouse.ID,
		&warehouse.Name,
		&warehouse.Location,
		&warehouse.CreatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse by id: %w", err)
	}

	return warehouse, nil
}

// List 获取全部仓库
func (r *warehouseRepo) List() ([]*domain.Warehouse, error) {
	query := `
		SELECT id, name, location, created_at
		FROM warehouses
		ORDER BY name
	`

	rows, err := r.db.Query(query)
	if err != nil {
		return nil, fmt.Errorf("failed to query warehouses: %w", err)
	}
	defer rows.Close()

	var warehouses []*domain.Warehouse
	for rows.Next() {
		warehouse := &domain.Warehouse{}
		err := rows.Scan(
			&warehouse.ID,
			&warehouse.Name,
			&warehouse.Location,
			&warehouse.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		warehouses = append(warehouses, warehouse)
	}

	return warehouses, rows.Err()
}
