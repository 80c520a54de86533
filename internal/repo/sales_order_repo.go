package repo

import (
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// SalesOrderRepository 定义销售订单数据访问接口
type SalesOrderRepository interface {
	Create(order *domain.SalesOrder) error
	GetByID(id uuid.UUID) (*domain.SalesOrder, error)
	List() ([]*domain.SalesOrder, error)
	UpdateStatus(id uuid.UUID, from, to domain.SalesOrderStatus) (bool, error)
}

// salesOrderRepo 实现SalesOrderRepository接口
type salesOrderRepo struct {
	db *sql.DB
}

// NewSalesOrderRepository 创建销售订单仓储实例
func NewSalesOrderRepository(db *sql.DB) SalesOrderRepository {
	return &salesOrderRepo{db: db}
}

// Create 在单一事务内创建订单及其全部行项
func (r *salesOrderRepo) Create(order *domain.SalesOrder) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO sales_orders (id, customer_name, status)
		VALUES (?, ?, ?)
	`, order.ID, order.CustomerName, string(order.Status))
	if err != nil {
		return fmt.Errorf("failed to create sales order: %w", err)
	}

	for _, item := range order.Items {
		_, err = tx.Exec(`
			INSERT INTO sales_items (id, order_id, product_id, warehouse_id, quantity, unit_price)
			VALUES (?, ?, ?, ?, ?, ?)
		`, item.ID, item.OrderID, item.ProductID, item.WarehouseID, item.Quantity, item.UnitPrice)
		if err != nil {
			return fmt.Errorf("failed to create sales item: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit sales order: %w", err)
	}
	return nil
}

// GetByID 获取订单及其行项
func (r *salesOrderRepo) GetByID(id uuid.UUID) (*domain.SalesOrder, error) {
	order := &domain.SalesOrder{}
	err := r.db.QueryRow(`
		SELECT id, customer_name, status, created_at
		FROM sales_orders
		WHERE id = ?
	`, id).Scan(&order.ID, &order.CustomerName, &order.Status, &order.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get sales order: %w", err)
	}

	items, err := r.loadItems(id)
	if err != nil {
		return nil, err
	}
	order.Items = items
	return order, nil
}

// List 获取全部销售订单（含行项）
func (r *salesOrderRepo) List() ([]*domain.SalesOrder, error) {
	rows, err := r.db.Query(`
		SELECT id, customer_name, status, created_at
		FROM sales_orders
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales orders: %w", err)
	}
	defer rows.Close()

	var orders []*domain.SalesOrder
	for rows.Next() {
		order := &domain.SalesOrder{}
		if err := rows.Scan(&order.ID, &order.CustomerName, &order.Status, &order.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sales order: %w", err)
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
func (r *salesOrderRepo) UpdateStatus(id uuid.UUID, from, to domain.SalesOrderStatus) (bool, error) {
	result, err := r.db.Exec(`
		UPDATE sales_orders SET status = ? WHERE id = ? AND status = ?
	`, string(to), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update sales order status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return affected > 0, nil
}

func (r *salesOrderRepo) loadItems(orderID uuid.UUID) ([]*domain.SalesItem, error) {
	rows, err := r.db.Query(`
		SELECT id, order_id, product_id, warehouse_id, quantity, unit_price
		FROM sales_items
		WHERE order_id = ?
	`, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales items: %w", err)
	}
	defer rows.Close()

	var items []*domain.SalesItem
	for rows.Next() {
		item := &domain.SalesItem{}
		err := rows.Scan(
			&item.ID,
			&item.OrderID,
			&item.ProductID,
			&item.WarehouseID,
			&item.Quantity,
			&item.UnitPrice,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sales item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}
