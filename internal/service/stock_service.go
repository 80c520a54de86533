package service

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/repo"
)

// 事件驱动流水的固定原因，与采购/销售侧的措辞保持一致。
const (
	reasonPurchaseReceived = "Purchase order received"
	reasonSalesConfirmed   = "Sales order confirmed"
)

// StockService 定义库存账本业务逻辑接口
type StockService interface {
	// 查询
	GetLevel(productID, warehouseID uuid.UUID) (*domain.StockLevel, error)
	ListLevelsByProduct(productID uuid.UUID) ([]*domain.StockLevel, error)
	ListLevelsByWarehouse(warehouseID uuid.UUID) ([]*domain.StockLevel, error)
	ListMovements(req *domain.MovementListRequest) (*domain.MovementListResponse, error)

	// 变更
	Adjust(req *domain.StockAdjustRequest) (*domain.StockLevel, error)
	Transfer(req *domain.StockTransferRequest) (*domain.StockLevel, error)

	// 事件入口（消费侧调用）
	ApplyInboundEvent(event *domain.StockEvent) error
	ApplyOutboundEvent(event *domain.StockEvent) error
}

// stockService 实现StockService接口
type stockService struct {
	stockRepo     repo.StockRepository
	productRepo   repo.ProductRepository
	warehouseRepo repo.WarehouseRepository
	monitor       *LowStockMonitor
	logger        *zap.Logger
}

// NewStockService 创建库存服务实例
func NewStockService(
	stockRepo repo.StockRepository,
	productRepo repo.ProductRepository,
	warehouseRepo repo.WarehouseRepository,
	monitor *LowStockMonitor,
	logger *zap.Logger,
) StockService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &stockService{
		stockRepo:     stockRepo,
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		monitor:       monitor,
		logger:        logger,
	}
}

// GetLevel 查询单元数量，从未有过流水的单元返回数量0。
func (s *stockService) GetLevel(productID, warehouseID uuid.UUID) (*domain.StockLevel, error) {
	return s.stockRepo.GetLevel(productID, warehouseID)
}

// ListLevelsByProduct 查询某商品在所有仓库的库存
func (s *stockService) ListLevelsByProduct(productID uuid.UUID) ([]*domain.StockLevel, error) {
	return s.stockRepo.ListLevelsByProduct(productID)
}

// ListLevelsByWarehouse 查询某仓库内所有商品的库存
func (s *stockService) ListLevelsByWarehouse(warehouseID uuid.UUID) ([]*domain.StockLevel, error) {
	return s.stockRepo.ListLevelsByWarehouse(warehouseID)
}

// ListMovements 按写入顺序分页查询流水
func (s *stockService) ListMovements(req *domain.MovementListRequest) (*domain.MovementListResponse, error) {
	movements, total, err := s.stockRepo.ListMovements(req)
	if err != nil {
		return nil, err
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

	return &domain.MovementListResponse{
		Movements: movements,
		Total:     total,
		Page:      page,
		PageSize:  pageSize,
	}, nil
}

// Adjust 对单个单元应用有符号增量。
// 零增量不产生流水，直接返回当前数量；低库存检查在每次调整后都执行，包括零增量。
func (s *stockService) Adjust(req *domain.StockAdjustRequest) (*domain.StockLevel, error) {
	product, err := s.getProduct(req.ProductID)
	if err != nil {
		return nil, err
	}
	warehouse, err := s.getWarehouse(req.WarehouseID)
	if err != nil {
		return nil, err
	}

	if req.Quantity == 0 {
		level, err := s.stockRepo.GetLevel(req.ProductID, req.WarehouseID)
		if err != nil {
			return nil, err
		}
		s.monitor.Check(product, warehouse, level.Quantity)
		return level, nil
	}

	movement := &domain.StockMovement{
		ID:          uuid.New(),
		ProductID:   req.ProductID,
		WarehouseID: req.WarehouseID,
		Type:        domain.MovementAdjust,
		Quantity:    abs(req.Quantity),
		Reason:      req.Reason,
	}

	level, err := s.stockRepo.Adjust(req.ProductID, req.WarehouseID, req.Quantity, movement)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock adjusted",
		zap.String("product_id", req.ProductID.String()),
		zap.String("warehouse_id", req.WarehouseID.String()),
		zap.Int("delta", req.Quantity),
		zap.Int("quantity", level.Quantity),
	)

	s.monitor.Check(product, warehouse, level.Quantity)
	return level, nil
}

// Transfer 跨仓库调拨，返回目标单元的最新数量。
// 两条流水共享同一个新生成的 referenceID；低库存检查只针对源仓库。
func (s *stockService) Transfer(req *domain.StockTransferRequest) (*domain.StockLevel, error) {
	if req.SourceWarehouseID == req.DestinationWarehouseID {
		return nil, fmt.Errorf("%w: source and destination warehouse are the same", domain.ErrBadRequest)
	}
	if req.Quantity <= 0 {
		return nil, fmt.Errorf("%w: transfer quantity must be positive", domain.ErrBadRequest)
	}

	product, err := s.getProduct(req.ProductID)
	if err != nil {
		return nil, err
	}
	srcWarehouse, err := s.getWarehouse(req.SourceWarehouseID)
	if err != nil {
		return nil, err
	}
	if _, err := s.getWarehouse(req.DestinationWarehouseID); err != nil {
		return nil, err
	}

	referenceID := uuid.New()
	src, dst, err := s.stockRepo.Transfer(
		req.ProductID,
		req.SourceWarehouseID,
		req.DestinationWarehouseID,
		req.Quantity,
		referenceID,
		req.Reason,
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("stock transferred",
		zap.String("product_id", req.ProductID.String()),
		zap.String("source_warehouse_id", req.SourceWarehouseID.String()),
		zap.String("destination_warehouse_id", req.DestinationWarehouseID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("reference_id", referenceID.String()),
	)

	s.monitor.Check(product, srcWarehouse, src.Quantity)
	return dst, nil
}

// ApplyInboundEvent 采购入库：增加数量并写 IN 流水，referenceID 指向来源订单。
func (s *stockService) ApplyInboundEvent(event *domain.StockEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	refID := event.ReferenceID
	movement := &domain.StockMovement{
		ID:          uuid.New(),
		ProductID:   event.ProductID,
		WarehouseID: event.WarehouseID,
		Type:        domain.MovementIn,
		Quantity:    event.Quantity,
		ReferenceID: &refID,
		Reason:      reasonPurchaseReceived,
	}

	level, err := s.stockRepo.Adjust(event.ProductID, event.WarehouseID, event.Quantity, movement)
	if err != nil {
		return fmt.Errorf("failed to apply inbound event %s: %w", event.EventID, err)
	}

	s.logger.Info("inbound stock event applied",
		zap.String("event_id", event.EventID.String()),
		zap.String("product_id", event.ProductID.String()),
		zap.Int("quantity", level.Quantity),
	)
	return nil
}

// ApplyOutboundEvent 销售出库：扣减数量并写 OUT 流水，数量不足时返回
// ErrInsufficientStock；成功后触发低库存检查。
func (s *stockService) ApplyOutboundEvent(event *domain.StockEvent) error {
	if err := event.Validate(); err != nil {
		return err
	}

	refID := event.ReferenceID
	movement := &domain.StockMovement{
		ID:          uuid.New(),
		ProductID:   event.ProductID,
		WarehouseID: event.WarehouseID,
		Type:        domain.MovementOut,
		Quantity:    event.Quantity,
		ReferenceID: &refID,
		Reason:      reasonSalesConfirmed,
	}

	level, err := s.stockRepo.Adjust(event.ProductID, event.WarehouseID, -event.Quantity, movement)
	if err != nil {
		return fmt.Errorf("failed to apply outbound event %s: %w", event.EventID, err)
	}

	s.logger.Info("outbound stock event applied",
		zap.String("event_id", event.EventID.String()),
		zap.String("product_id", event.ProductID.String()),
		zap.Int("quantity", level.Quantity),
	)

	// 告警需要补货阈值，商品查不到时跳过检查但不影响账本
	product, err := s.productRepo.GetByID(event.ProductID)
	if err != nil || product == nil {
		return nil
	}
	warehouse, _ := s.warehouseRepo.GetByID(event.WarehouseID)
	s.monitor.Check(product, warehouse, level.Quantity)
	return nil
}

func (s *stockService) getProduct(id uuid.UUID) (*domain.Product, error) {
	product, err := s.productRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	if product == nil {
		return nil, fmt.Errorf("%w: product %s", domain.ErrNotFound, id)
	}
	return product, nil
}

func (s *stockService) getWarehouse(id uuid.UUID) (*domain.Warehouse, error) {
	warehouse, err := s.warehouseRepo.GetByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get warehouse: %w", err)
	}
	if warehouse == nil {
		return nil, fmt.Errorf("%w: warehouse %s", domain.ErrNotFound, id)
	}
	return warehouse, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
