package repo

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// PurchaseOrderRepository 定义采购订单数据访问接口
type PurchaseOrderRepository interface {
	Create(order *domain.PurchaseOrder) error
	GetByID(id uuid.UUID) (*domain.PurchaseOrder, error)
	List() ([]*domain.PurchaseOrder, error)
	UpdateStatus(id uuid.UUID, from, to domain.PurchaseOrderStatus) (bool, error)
}

// purchaseOrderRepo 实现PurchaseOrderRepository接口
type purchaseOrderRepo struct {
	db *sql.DB
}

// NewPurchaseOrderRepository 创建采购订单仓储实例
func NewPurchaseOrderRepository(db *sql.DB) PurchaseOrderRepository {
	return &purchaseOrderRepo{db: db}
}

// Create 在单一事务内创建订单及其全部行项
func (r *purchaseOrderRepo) Create(order *domain.PurchaseOrder) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO purchase_orders (id, supplier_name, status)
		VALUES (?, ?, ?)
	`, order.ID, order.SupplierName, string(order.Status))
	if err != nil {
		return fmt.Errorf("failed to create purchase order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(`
			INSERT INTO purchase_items (id, order_id, product_id, warehouse_id, quantity, unit_cost)
			VALUES (?, ?, ?, ?, ?, ?)
		`, item.ID, item.OrderID, item.ProductID, item.WarehouseID, item.Quantity, item.UnitCost)
		if err != nil {
			return fmt.Errorf("failed to create purchase item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit purchase order: %w", err)
	}
	return nil
}

// GetByID 获取订单及其行项
func (r *purchaseOrderRepo) GetByID(id uuid.UUID) (*domain.PurchaseOrder, error) {
	order := &domain.PurchaseOrder{}
	err := r.db.QueryRow(`
		SELECT id, supplier_name, status, created_at
		FROM purchase_orders
		WHERE id = ?
	`, id).Scan(&order.ID, &order.SupplierName, &order.Status, &order.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get purchase order: %w", err)
	}

	items, err := r.loadItems(id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// List 获取全部采购订单（含行项）
func (r *purchaseOrderRepo) List() ([]*domain.PurchaseOrder, error) {
	rows, err := r.db.Query(`
		SELECT id, supplier_name, status, created_at
		FROM purchase_orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.PurchaseOrder
	for rows.Next() {
		order := &domain.PurchaseOrder{}
		if err := rows.Scan(&order.ID, &order.SupplierName, &order.Status, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, order)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, order := range orders {
		items, err := r.loadItems(order.ID)
		if err != nil {
			return nil, err
		}
		order.Items = items
	}
	return orders, nil
}

// UpdateStatus 条件状态迁移，返回是否有行被更新。
// 返回 false 表示订单不存在或已不在 from 状态。
func (r *purchaseOrderRepo) UpdateStatus(id uuid.UUID, from, to domain.PurchaseOrderStatus) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE purchase_orders SET status = ? WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update purchase order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *purchaseOrderRepo) loadItems(orderID uuid.UUID) ([]*domain.PurchaseItem, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, product_id, warehouse_id, quantity, unit_cost
		FROM purchase_items
		WHERE order_id = ?
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase items: %w", err)
	}
	defer rows.Close()

	var items []*domain.PurchaseItem
	for rows.Next() {
		item := &domain.PurchaseItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.WarehouseID,
			&item.Quantity,
			&item.UnitCost,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan purchase item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
