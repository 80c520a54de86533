package service

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/repo"
)

// SalesOrderService 定义销售订单业务逻辑接口
type SalesOrderService interface {
	Create(req *domain.CreateSalesOrderRequest) (*domain.SalesOrder, error)
	GetByID(id uuid.UUID) (*domain.SalesOrder, error)
	List() ([]*domain.SalesOrder, error)
	Confirm(id uuid.UUID) (*domain.SalesOrder, error)
	Cancel(id uuid.UUID) (*domain.SalesOrder, error)
}

// salesOrderService 实现SalesOrderService接口
type salesOrderService struct {
	orderRepo repo.SalesOrderRepository
	publisher StockEventPublisher
	logger    *zap.Logger
}

// NewSalesOrderService 创建销售订单服务实例
func NewSalesOrderService(orderRepo repo.SalesOrderRepository, publisher StockEventPublisher, logger *zap.Logger) SalesOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &salesOrderService{
		orderRepo: orderRepo,
		publisher: publisher,
		logger:    logger,
	}
}

// Create 创建销售订单，初始状态 CREATED。
func (s *salesOrderService) Create(req *domain.CreateSalesOrderRequest) (*domain.SalesOrder, error) {
	if len(req.Items) == 0 {
		return nil, fmt.Errorf("%w: sales order requires at least one item", domain.ErrBadRequest)
	}

	order := &domain.SalesOrder{
		ID:           uuid.New(),
		CustomerName: req.CustomerName,
		Status:       domain.SalesOrderCreated,
	}
	for _, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("%w: item quantity must be positive", domain.ErrBadRequest)
		}
		order.Items = append(order.Items, &domain.SalesItem{
			ID:          uuid.New(),
			OrderID:     order.ID,
			ProductID:   item.ProductID,
			WarehouseID: item.WarehouseID,
			Quantity:    item.Quantity,
			UnitPrice:   item.UnitAmount,
		})
	}

	if err := s.orderRepo.Create(order); err != nil {
		return nil, err
	}

	s.logger.Info("sales order created",
		zap.String("order_id", order.ID.String()),
		zap.String("customer", order.CustomerName),
		zap.Int("items", len(order.Items)),
	)
	return order, nil
}

// GetByID 获取订单详情
func (s *salesOrderService) GetByID(id uuid.UUID) (*domain.SalesOrder, error) {
	order, err := s.orderRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, fmt.Errorf("%w: sales order %s", domain.ErrNotFound, id)
	}
	return order, nil
}

// List 获取全部销售订单
func (s *salesOrderService) List() ([]*domain.SalesOrder, error) {
	return s.orderRepo.List()
}

// Confirm 确认订单：CREATED -> CONFIRMED，并为每个行项发出一条 STOCK_OUT 事件。
// 已确认或已取消的订单都不可再确认。
func (s *salesOrderService) Confirm(id uuid.UUID) (*domain.SalesOrder, error) {
	order, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.SalesOrderCreated {
		return nil, fmt.Errorf("%w: sales order is %s", domain.ErrBadRequest, order.Status)
	}

	ok, err := s.orderRepo.UpdateStatus(id, domain.SalesOrderCreated, domain.SalesOrderConfirmed)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: sales order is no longer %s", domain.ErrBadRequest, domain.SalesOrderCreated)
	}
	order.Status = domain.SalesOrderConfirmed

	for _, item := range order.Items {
		event := domain.NewStockOutEvent(item.ProductID, item.WarehouseID, item.Quantity, order.ID)
		if err := s.publisher.PublishStockOut(event); err != nil {
			s.logger.Error("failed to publish stock-out event",
				zap.String("order_id", order.ID.String()),
				zap.String("event_id", event.EventID.String()),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("sales order confirmed",
		zap.String("order_id", order.ID.String()),
		zap.Int("events", len(order.Items)),
	)
	return order, nil
}

// Cancel 取消订单：CREATED -> CANCELLED，不发出任何库存事件。
// 已确认或已取消的订单都不可再取消。
func (s *salesOrderService) Cancel(id uuid.UUID) (*domain.SalesOrder, error) {
	order, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.SalesOrderCreated {
		return nil, fmt.Errorf("%w: sales order is %s", domain.ErrBadRequest, order.Status)
	}

	ok, err := s.orderRepo.UpdateStatus(id, domain.SalesOrderCreated, domain.SalesOrderCancelled)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: sales order is no longer %s", domain.ErrBadRequest, domain.SalesOrderCreated)
	}
	order.Status = domain.SalesOrderCancelled

	s.logger.Info("sales order cancelled", zap.String("order_id", order.ID.String()))
	return order, nil
}
