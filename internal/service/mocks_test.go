package service

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

// Mock StockRepository for testing
type mockStockRepository struct {
	mu        sync.Mutex
	levels    map[string]*domain.StockLevel // key: productID|warehouseID
	movements []*domain.StockMovement
}

func newMockStockRepository() *mockStockRepository {
	return &mockStockRepository{
		levels: make(map[string]*domain.StockLevel),
	}
}

func cellKey(productID, warehouseID uuid.UUID) string {
	return productID.String() + "|" + warehouseID.String()
}

func (m *mockStockRepository) seed(productID, warehouseID uuid.UUID, quantity int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.levels[cellKey(productID, warehouseID)] = &domain.StockLevel{
		ID:          uuid.New(),
		ProductID:   productID,
		WarehouseID: warehouseID,
		Quantity:    quantity,
		UpdatedAt:   time.Now(),
	}
}

func (m *mockStockRepository) GetLevel(productID, warehouseID uuid.UUID) (*domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if level, ok := m.levels[cellKey(productID, warehouseID)]; ok {
		copied := *level
		return &copied, nil
	}
	return &domain.StockLevel{ProductID: productID, WarehouseID: warehouseID, Quantity: 0}, nil
}

func (m *mockStockRepository) ListLevelsByProduct(productID uuid.UUID) ([]*domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.StockLevel
	for _, level := range m.levels {
		if level.ProductID == productID {
			copied := *level
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockStockRepository) ListLevelsByWarehouse(warehouseID uuid.UUID) ([]*domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.StockLevel
	for _, level := range m.levels {
		if level.WarehouseID == warehouseID {
			copied := *level
			result = append(result, &copied)
		}
	}
	return result, nil
}

func (m *mockStockRepository) Adjust(productID, warehouseID uuid.UUID, delta int, movement *domain.StockMovement) (*domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := cellKey(productID, warehouseID)
	level, ok := m.levels[key]
	if !ok {
		level = &domain.StockLevel{
			ID:          uuid.New(),
			ProductID:   productID,
			WarehouseID: warehouseID,
		}
		m.levels[key] = level
	}

	if level.Quantity+delta < 0 {
		return nil, domain.ErrInsufficientStock
	}
	level.Quantity += delta
	level.UpdatedAt = time.Now()

	if movement != nil {
		copied := *movement
		copied.CreatedAt = time.Now()
		m.movements = append(m.movements, &copied)
	}

	result := *level
	return &result, nil
}

func (m *mockStockRepository) Transfer(productID, sourceWarehouseID, destWarehouseID uuid.UUID, quantity int, referenceID uuid.UUID, reason string) (*domain.StockLevel, *domain.StockLevel, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	src, ok := m.levels[cellKey(productID, sourceWarehouseID)]
	if !ok {
		return nil, nil, domain.ErrNotFound
	}
	if src.Quantity < quantity {
		return nil, nil, domain.ErrInsufficientStock
	}

	dstKey := cellKey(productID, destWarehouseID)
	dst, ok := m.levels[dstKey]
	if !ok {
		dst = &domain.StockLevel{
			ID:          uuid.New(),
			ProductID:   productID,
			WarehouseID: destWarehouseID,
		}
		m.levels[dstKey] = dst
	}

	src.Quantity -= quantity
	dst.Quantity += quantity

	refID := referenceID
	now := time.Now()
	m.movements = append(m.movements,
		&domain.StockMovement{
			ID: uuid.New(), ProductID: productID, WarehouseID: sourceWarehouseID,
			Type: domain.MovementTransferOut, Quantity: quantity, ReferenceID: &refID,
			Reason: reason, CreatedAt: now,
		},
		&domain.StockMovement{
			ID: uuid.New(), ProductID: productID, WarehouseID: destWarehouseID,
			Type: domain.MovementTransferIn, Quantity: quantity, ReferenceID: &refID,
			Reason: reason, CreatedAt: now,
		},
	)

	srcCopy, dstCopy := *src, *dst
	return &srcCopy, &dstCopy, nil
}

func (m *mockStockRepository) ListMovements(req *domain.MovementListRequest) ([]*domain.StockMovement, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var filtered []*domain.StockMovement
	for _, mv := range m.movements {
		if req.ProductID != nil && mv.ProductID != *req.ProductID {
			continue
		}
		if req.WarehouseID != nil && mv.WarehouseID != *req.WarehouseID {
			continue
		}
		filtered = append(filtered, mv)
	}
	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].CreatedAt.Before(filtered[j].CreatedAt)
	})
	return filtered, int64(len(filtered)), nil
}

func (m *mockStockRepository) movementsFor(productID, warehouseID uuid.UUID) []*domain.StockMovement {
	m.mu.Lock()
	defer m.mu.Unlock()

	var result []*domain.StockMovement
	for _, mv := range m.movements {
		if mv.ProductID == productID && mv.WarehouseID == warehouseID {
			result = append(result, mv)
		}
	}
	return result
}

// Mock ProductRepository for testing
type mockProductRepository struct {
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepository() *mockProductRepository {
	return &mockProductRepository{products: make(map[uuid.UUID]*domain.Product)}
}

func (m *mockProductRepository) add(product *domain.Product) {
	m.products[product.ID] = product
}

func (m *mockProductRepository) GetByID(id uuid.UUID) (*domain.Product, error) {
	return m.products[id], nil
}

func (m *mockProductRepository) GetBySKU(sku string) (*domain.Product, error) {
	for _, p := range m.products {
		if strings.EqualFold(p.SKU, sku) {
			return p, nil
		}
	}
	return nil, nil
}

func (m *mockProductRepository) List() ([]*domain.Product, error) {
	var result []*domain.Product
	for _, p := range m.products {
		result = append(result, p)
	}
	return result, nil
}

// Mock WarehouseRepository for testing
type mockWarehouseRepository struct {
	warehouses map[uuid.UUID]*domain.Warehouse
}

func newMockWarehouseRepository() *mockWarehouseRepository {
	return &mockWarehouseRepository{warehouses: make(map[uuid.UUID]*domain.Warehouse)}
}

func (m *mockWarehouseRepository) add(warehouse *domain.Warehouse) {
	m.warehouses[warehouse.ID] = warehouse
}

func (m *mockWarehouseRepository) GetByID(id uuid.UUID) (*domain.Warehouse, error) {
	return m.warehouses[id], nil
}

func (m *mockWarehouseRepository) List() ([]*domain.Warehouse, error) {
	var result []*domain.Warehouse
	for _, w := range m.warehouses {
		result = append(result, w)
	}
	return result, nil
}

// Mock Notifier for testing
type mockNotifier struct {
	mu     sync.Mutex
	alerts []*domain.LowStockAlert
	err    error
}

func (m *mockNotifier) NotifyLowStock(alert *domain.LowStockAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.alerts = append(m.alerts, alert)
	return nil
}

func (m *mockNotifier) received() []*domain.LowStockAlert {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]*domain.LowStockAlert, len(m.alerts))
	copy(result, m.alerts)
	return result
}

// Mock PurchaseOrderRepository for testing
type mockPurchaseOrderRepository struct {
	orders map[uuid.UUID]*domain.PurchaseOrder
}

func newMockPurchaseOrderRepository() *mockPurchaseOrderRepository {
	return &mockPurchaseOrderRepository{orders: make(map[uuid.UUID]*domain.PurchaseOrder)}
}

func (m *mockPurchaseOrderRepository) Create(order *domain.PurchaseOrder) error {
	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockPurchaseOrderRepository) GetByID(id uuid.UUID) (*domain.PurchaseOrder, error) {
	return m.orders[id], nil
}

func (m *mockPurchaseOrderRepository) List() ([]*domain.PurchaseOrder, error) {
	var result []*domain.PurchaseOrder
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *mockPurchaseOrderRepository) UpdateStatus(id uuid.UUID, from, to domain.PurchaseOrderStatus) (bool, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

// Mock SalesOrderRepository for testing
type mockSalesOrderRepository struct {
	orders map[uuid.UUID]*domain.SalesOrder
}

func newMockSalesOrderRepository() *mockSalesOrderRepository {
	return &mockSalesOrderRepository{orders: make(map[uuid.UUID]*domain.SalesOrder)}
}

func (m *mockSalesOrderRepository) Create(order *domain.SalesOrder) error {
	order.CreatedAt = time.Now()
	m.orders[order.ID] = order
	return nil
}

func (m *mockSalesOrderRepository) GetByID(id uuid.UUID) (*domain.SalesOrder, error) {
	return m.orders[id], nil
}

func (m *mockSalesOrderRepository) List() ([]*domain.SalesOrder, error) {
	var result []*domain.SalesOrder
	for _, o := range m.orders {
		result = append(result, o)
	}
	return result, nil
}

func (m *mockSalesOrderRepository) UpdateStatus(id uuid.UUID, from, to domain.SalesOrderStatus) (bool, error) {
	order, ok := m.orders[id]
	if !ok || order.Status != from {
		return false, nil
	}
	order.Status = to
	return true, nil
}

// Mock StockEventPublisher for testing
type mockEventPublisher struct {
	mu        sync.Mutex
	inEvents  []*domain.StockEvent
	outEvents []*domain.StockEvent
	failAfter int // 发布N条后开始失败，0表示永不失败
}

func (m *mockEventPublisher) PublishStockIn(event *domain.StockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter > 0 && len(m.inEvents)+len(m.outEvents) >= m.failAfter {
		return domain.ErrBadRequest
	}
	m.inEvents = append(m.inEvents, event)
	return nil
}

func (m *mockEventPublisher) PublishStockOut(event *domain.StockEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failAfter > 0 && len(m.inEvents)+len(m.outEvents) >= m.failAfter {
		return domain.ErrBadRequest
	}
	m.outEvents = append(m.outEvents, event)
	return nil
}
