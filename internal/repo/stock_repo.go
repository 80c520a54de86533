// Package repo 实现库存账本数据访问层，负责与数据库的交互。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// StockRepository 定义库存账本数据访问接口。
// (商品, 仓库) 单元的数量变更与流水写入必须是同一个原子单元。
type StockRepository interface {
	// 查询操作
	GetLevel(productID, warehouseID uuid.UUID) (*domain.StockLevel, error)
	ListLevelsByProduct(productID uuid.UUID) ([]*domain.StockLevel, error)
	ListLevelsByWarehouse(warehouseID uuid.UUID) ([]*domain.StockLevel, error)
	ListMovements(req *domain.MovementListRequest) ([]*domain.StockMovement, int64, error)

	// 账本操作
	Adjust(productID, warehouseID uuid.UUID, delta int, movement *domain.StockMovement) (*domain.StockLevel, error)
	Transfer(productID, sourceWarehouseID, destWarehouseID uuid.UUID, quantity int, referenceID uuid.UUID, reason string) (src *domain.StockLevel, dst *domain.StockLevel, err error)
}

// stockRepo 实现StockRepository接口
type stockRepo struct {
	db *sql.DB
}

// NewStockRepository 创建库存账本仓储实例
func NewStockRepository(db *sql.DB) StockRepository {
	return &stockRepo{db: db}
}

// GetLevel 获取单元当前数量。单元不存在视同数量为0，不报错。
func (r *stockRepo) GetLevel(productID, warehouseID uuid.UUID) (*domain.StockLevel, error) {
	query := `
		SELECT id, product_id, warehouse_id, quantity, updated_at
		FROM stock_levels
		WHERE product_id = ? AND warehouse_id = ?
	`

	level := &domain.StockLevel{}
	err := r.db.QueryRow(query, productID, warehouseID).Scan(
		&level.ID,
		&level.ProductID,
		&level.WarehouseID,
		&level.Quantity,
		&level.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return &domain.StockLevel{
			ProductID:   productID,
			WarehouseID: warehouseID,
			Quantity:    0,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock level: %w", err)
	}

	return level, nil
}

// ListLevelsByProduct 获取某商品在所有仓库的库存
func (r *stockRepo) ListLevelsByProduct(productID uuid.UUID) ([]*domain.StockLevel, error) {
	query := `
		SELECT id, product_id, warehouse_id, quantity, updated_at
		FROM stock_levels
		WHERE product_id = ?
		ORDER BY warehouse_id
	`
	return r.queryLevels(query, productID)
}

// ListLevelsByWarehouse 获取某仓库内所有商品的库存
func (r *stockRepo) ListLevelsByWarehouse(warehouseID uuid.UUID) ([]*domain.StockLevel, error) {
	query := `
		SELECT id, product_id, warehouse_id, quantity, updated_at
		FROM stock_levels
		WHERE warehouse_id = ?
		ORDER BY product_id
	`
	return r.queryLevels(query, warehouseID)
}

func (r *stockRepo) queryLevels(query string, arg interface{}) ([]*domain.StockLevel, error) {
	rows, err := r.db.Query(query, arg)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []*domain.StockLevel
	for rows.Next() {
		level := &domain.StockLevel{}
		err := rows.Scan(
			&level.ID,
			&level.ProductID,
			&level.WarehouseID,
			&level.Quantity,
			&level.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, level)
	}

	return levels, rows.Err()
}

// Adjust 以单条条件UPDATE应用有符号增量，并在同一事务内写入流水。
// 单元不存在时惰性创建；数量不足（quantity + delta < 0）时返回 ErrInsufficientStock。
func (r *stockRepo) Adjust(productID, warehouseID uuid.UUID, delta int, movement *domain.StockMovement) (*domain.StockLevel, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := r.ensureCell(tx, productID, warehouseID); err != nil {
		return nil, err
	}

	// 守卫条件在SQL层保证数量永不为负，并发调整由行锁串行化
	result, err := tx.Exec(`
		UPDATE stock_levels
		SET quantity = quantity + ?
		WHERE product_id = ? AND warehouse_id = ? AND quantity + ? >= 0
	`, delta, productID, warehouseID, delta)
	if err != nil {
		return nil, fmt.Errorf("failed to adjust stock level: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, domain.ErrInsufficientStock
	}

	if movement != nil {
		if err := r.insertMovement(tx, movement); err != nil {
			return nil, err
		}
	}

	level, err := r.getLevelInTx(tx, productID, warehouseID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit adjustment: %w", err)
	}
	return level, nil
}

// Transfer 在单一事务内完成跨仓库调拨：锁两个单元、双向改量、写两条共享
// referenceID 的流水，整体要么全部生效要么全部回滚。
// 源单元不存在返回 ErrNotFound，源数量不足返回 ErrInsufficientStock。
func (r *stockRepo) Transfer(productID, sourceWarehouseID, destWarehouseID uuid.UUID, quantity int, referenceID uuid.UUID, reason string) (*domain.StockLevel, *domain.StockLevel, error) {
	tx, err := r.db.Begin()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 源单元必须已存在；目标单元惰性创建
	exists, err := r.cellExists(tx, productID, sourceWarehouseID)
	if err != nil {
		return nil, nil, err
	}
	if !exists {
		return nil, nil, domain.ErrNotFound
	}
	if err := r.ensureCell(tx, productID, destWarehouseID); err != nil {
		return nil, nil, err
	}

	// 固定按仓库ID字典序加锁，并发调拨不会互相死锁
	first, second := sourceWarehouseID, destWarehouseID
	if strings.Compare(first.String(), second.String()) > 0 {
		first, second = second, first
	}
	if _, err := r.lockCell(tx, productID, first); err != nil {
		return nil, nil, err
	}
	if _, err := r.lockCell(tx, productID, second); err != nil {
		return nil, nil, err
	}

	result, err := tx.Exec(`
		UPDATE stock_levels
		SET quantity = quantity - ?
		WHERE product_id = ? AND warehouse_id = ? AND quantity >= ?
	`, quantity, productID, sourceWarehouseID, quantity)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to debit source cell: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return nil, nil, domain.ErrInsufficientStock
	}

	if _, err := tx.Exec(`
		UPDATE stock_levels
		SET quantity = quantity + ?
		WHERE product_id = ? AND warehouse_id = ?
	`, quantity, productID, destWarehouseID); err != nil {
		return nil, nil, fmt.Errorf("failed to credit destination cell: %w", err)
	}

	refID := referenceID
	outMovement := &domain.StockMovement{
		ID:          uuid.New(),
		ProductID:   productID,
		WarehouseID: sourceWarehouseID,
		Type:        domain.MovementTransferOut,
		Quantity:    quantity,
		ReferenceID: &refID,
		Reason:      reason,
	}
	inMovement := &domain.StockMovement{
		ID:          uuid.New(),
		ProductID:   productID,
		WarehouseID: destWarehouseID,
		Type:        domain.MovementTransferIn,
		Quantity:    quantity,
		ReferenceID: &refID,
		Reason:      reason,
	}
	if err := r.insertMovement(tx, outMovement); err != nil {
		return nil, nil, err
	}
	if err := r.insertMovement(tx, inMovement); err != nil {
		return nil, nil, err
	}

	src, err := r.getLevelInTx(tx, productID, sourceWarehouseID)
	if err != nil {
		return nil, nil, err
	}
	dst, err := r.getLevelInTx(tx, productID, destWarehouseID)
	if err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit transfer: %w", err)
	}
	return src, dst, nil
}

// ListMovements 按写入顺序（created_at 升序）分页返回流水。
func (r *stockRepo) ListMovements(req *domain.MovementListRequest) ([]*domain.StockMovement, int64, error) {
	var conditions []string
	var args []interface{}

	if req.ProductID != nil {
		conditions = append(conditions, "product_id = ?")
		args = append(args, *req.ProductID)
	}
	if req.WarehouseID != nil {
		conditions = append(conditions, "warehouse_id = ?")
		args = append(args, *req.WarehouseID)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM stock_movements %s", where)
	var total int64
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count stock movements: %w", err)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}

	query := fmt.Sprintf(`
		SELECT id, product_id, warehouse_id, type, quantity, reference_id, reason, created_at
		FROM stock_movements %s
		ORDER BY created_at ASC, id ASC
		LIMIT ? OFFSET ?
	`, where)
	args = append(args, pageSize, (page-1)*pageSize)

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []*domain.StockMovement
	for rows.Next() {
		m := &domain.StockMovement{}
		var refID sql.NullString
		err := rows.Scan(
			&m.ID,
			&m.ProductID,
			&m.WarehouseID,
			&m.Type,
			&m.Quantity,
			&refID,
			&m.Reason,
			&m.CreatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		if refID.Valid {
			id, err := uuid.Parse(refID.String)
			if err != nil {
				return nil, 0, fmt.Errorf("failed to parse reference id: %w", err)
			}
			m.ReferenceID = &id
		}
		movements = append(movements, m)
	}

	return movements, total, rows.Err()
}

// ensureCell 惰性创建库存单元，已存在时为空操作。
func (r *stockRepo) ensureCell(tx *sql.Tx, productID, warehouseID uuid.UUID) error {
	_, err := tx.Exec(`
		INSERT INTO stock_levels (id, product_id, warehouse_id, quantity)
		VALUES (?, ?, ?, 0)
		ON DUPLICATE KEY UPDATE id = id
	`, uuid.New(), productID, warehouseID)
	if err != nil {
		return fmt.Errorf("failed to ensure stock cell: %w", err)
	}
	return nil
}

// cellExists 检查库存单元是否存在
func (r *stockRepo) cellExists(tx *sql.Tx, productID, warehouseID uuid.UUID) (bool, error) {
	var one int
	err := tx.QueryRow(`
		SELECT 1 FROM stock_levels WHERE product_id = ? AND warehouse_id = ?
	`, productID, warehouseID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check stock cell: %w", err)
	}
	return true, nil
}

// lockCell 对单元行加排他锁并返回当前数量
func (r *stockRepo) lockCell(tx *sql.Tx, productID, warehouseID uuid.UUID) (int, error) {
	var quantity int
	err := tx.QueryRow(`
		SELECT quantity FROM stock_levels
		WHERE product_id = ? AND warehouse_id = ?
		FOR UPDATE
	`, productID, warehouseID).Scan(&quantity)
	if err != nil {
		return 0, fmt.Errorf("failed to lock stock cell: %w", err)
	}
	return quantity, nil
}

// insertMovement 追加一条不可变流水
func (r *stockRepo) insertMovement(tx *sql.Tx, m *domain.StockMovement) error {
	var refID interface{}
	if m.ReferenceID != nil {
		refID = *m.ReferenceID
	}

	_, err := tx.Exec(`
		INSERT INTO stock_movements (id, product_id, warehouse_id, type, quantity, reference_id, reason)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, m.ID, m.ProductID, m.WarehouseID, string(m.Type), m.Quantity, refID, m.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert stock movement: %w", err)
	}
	return nil
}

func (r *stockRepo) getLevelInTx(tx *sql.Tx, productID, warehouseID uuid.UUID) (*domain.StockLevel, error) {
	level := &domain.StockLevel{}
	err := tx.QueryRow(`
		SELECT id, product_id, warehouse_id, quantity, updated_at
		FROM stock_levels
		WHERE product_id = ? AND warehouse_id = ?
	`, productID, warehouseID).Scan(
		&level.ID,
		&level.ProductID,
		&level.WarehouseID,
		&level.Quantity,
		&level.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read stock level: %w", err)
	}
	return level, nil
}
