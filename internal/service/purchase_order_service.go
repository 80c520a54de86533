package service

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/repo"
)

// StockEventPublisher 库存事件出口，由MQ生产者实现。
type StockEventPublisher interface {
	PublishStockIn(event *domain.StockEvent) error
	PublishStockOut(event *domain.StockEvent) error
}

// PurchaseOrderService 定义采购订单业务逻辑接口
type PurchaseOrderService interface {
	Create(req *domain.CreatePurchaseOrderRequest) (*domain.PurchaseOrder, error)
	GetByID(id uuid.UUID) (*domain.PurchaseOrder, error)
	List() ([]*domain.PurchaseOrder, error)
	Receive(id uuid.UUID) (*domain.PurchaseOrder, error)
}

// purchaseOrderService 实现PurchaseOrderService接口
type purchaseOrderService struct {
	orderRepo repo.PurchaseOrderRepository
	publisher StockEventPublisher
	logger    *zap.Logger
}

// NewPurchaseOrderService 创建采购订单服务实例
func NewPurchaseOrderService(orderRepo repo.PurchaseOrderRepository, publisher StockEventPublisher, logger *zap.Logger) PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &purchaseOrderService{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Create 创建采购订单，初始状态 CREATED。
func (s *purchaseOrderService) Create(req *domain.CreatePurchaseOrderRequest) (*domain.PurchaseOrder, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: purchase order requires at least one item", domain.ErrBadRequest)
	}

	order := &domain.PurchaseOrder{
		ID:           uuid.New(),
		SupplierName: req.SupplierName,
		Status:       domain.PurchaseOrderCreated,
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", domain.ErrBadRequest)
		}
		order.Items = append(order.Items, &domain.PurchaseItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
			UnitCost:    item.UnitAmount,
		})
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	s.logger.Info("purchase order created",
		zap.String("order_id", order.ID.String()),
		zap.String("supplier", order.SupplierName),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

// GetByID 获取订单详情
func (s *purchaseOrderService) GetByID(id uuid.UUID) (*domain.PurchaseOrder, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: purchase order %s", domain.ErrNotFound, id)
	}
	return order, nil
}

// List 获取全部采购订单
func (s *purchaseOrderService) List() ([]*domain.PurchaseOrder, error) {
	return s.orderRepo.List()
}

// Receive 收货：CREATED -> RECEIVED，并为每个行项发出一条 STOCK_IN 事件。
// 事件逐条独立投递，单条发布失败不回滚状态也不阻止后续行项。
func (s *purchaseOrderService) Receive(id uuid.UUID) (*domain.PurchaseOrder, error) {
	order, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.PurchaseOrderCreated {
		return nil, fmt.Errorf("%w: purchase order already received", domain.ErrBadRequest)
	}

	ok, err := s.orderRepo.UpdateStatus(id, domain.PurchaseOrderCreated, domain.PurchaseOrderReceived)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: purchase order already received", domain.ErrBadRequest)
	}
	order.Status = domain.PurchaseOrderReceived

	for _, item := range order.Items {
		event := domain.NewStockInEvent(item.ProductID, item.WarehouseID, item.Quantity, order.ID)
		if err := s.publisher.PublishStockIn(event); err != nil {
			s.logger.Error("failed to publish stock-in event",
				zap.String("order_id", order.ID.String()),
				zap.String("event_id", event.EventID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("purchase order received",
		zap.String("order_id", order.ID.String()),
		zap.Int("events", len(order.Items)),
	)
	return order, nil
}
