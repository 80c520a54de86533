package service

import (
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

type stockFixture struct {
	svc       StockService
	stockRepo *mockStockRepository
	notifier  *mockNotifier
	monitor   *LowStockMonitor

	product   *domain.Product
	warehouse *domain.Warehouse
	secondWH  *domain.Warehouse
}

func newStockFixture(t *testing.T) *stockFixture {
	t.Helper()

	stockRepo := newMockStockRepository()
	productRepo := newMockProductRepository()
	warehouseRepo := newMockWarehouseRepository()

	product := &domain.Product{
		ID:           uuid.New(),
		SKU:          "WID-001",
		Name:         "Widget",
		ReorderLevel: 10,
		IsActive:     true,
	}
	productRepo.add(product)

	warehouse := &domain.Warehouse{ID: uuid.New(), Name: "Main", Location: "North"}
	secondWH := &domain.Warehouse{ID: uuid.New(), Name: "Backup", Location: "South"}
	warehouseRepo.add(warehouse)
	warehouseRepo.add(secondWH)

	notifier := &mockNotifier{}
	monitor := NewLowStockMonitor(notifier, zap.NewNop(), 16)
	monitor.Start()
	t.Cleanup(monitor.Stop)

	svc := NewStockService(stockRepo, productRepo, warehouseRepo, monitor, zap.NewNop())
	return &stockFixture{
		svc:       svc,
		stockRepo: stockRepo,
		notifier:  notifier,
		monitor:   monitor,
		product:   product,
		warehouse: warehouse,
		secondWH:  secondWH,
	}
}

func (f *stockFixture) adjust(t *testing.T, delta int) *domain.StockLevel {
	t.Helper()
	level, err := f.svc.Adjust(&domain.StockAdjustRequest{
		ProductID:   f.product.ID,
		WarehouseID: f.warehouse.ID,
		Quantity:    delta,
		Reason:      "cycle count",
	})
	if err != nil {
		t.Fatalf("Adjust(%d) failed: %v", delta, err)
	}
	return level
}

func TestStockService_AdjustCreatesCellLazily(t *testing.T) {
	f := newStockFixture(t)

	// 从未有过流水的单元读出数量0
	level, err := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if err != nil {
		t.Fatalf("GetLevel failed: %v", err)
	}
	if level.Quantity != 0 {
		t.Errorf("fresh cell quantity = %d, want 0", level.Quantity)
	}

	level = f.adjust(t, 20)
	if level.Quantity != 20 {
		t.Errorf("quantity after +20 = %d, want 20", level.Quantity)
	}

	movements := f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)
	if len(movements) != 1 {
		t.Fatalf("movement count = %d, want 1", len(movements))
	}
	if movements[0].Type != domain.MovementAdjust || movements[0].Quantity != 20 {
		t.Errorf("movement = %s/%d, want ADJUST/20", movements[0].Type, movements[0].Quantity)
	}
}

func TestStockService_AdjustNegativeDeltaRecordsMagnitude(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 50)

	level := f.adjust(t, -15)
	if level.Quantity != 35 {
		t.Errorf("quantity = %d, want 35", level.Quantity)
	}

	movements := f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)
	last := movements[len(movements)-1]
	if last.Quantity != 15 {
		t.Errorf("movement quantity = %d, want magnitude 15", last.Quantity)
	}
}

func TestStockService_AdjustInsufficientStock(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 20)

	_, err := f.svc.Adjust(&domain.StockAdjustRequest{
		ProductID:   f.product.ID,
		WarehouseID: f.warehouse.ID,
		Quantity:    -25,
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	// 失败不留痕迹：数量不变，流水只有成功那一条
	level, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if level.Quantity != 20 {
		t.Errorf("quantity after failed adjust = %d, want 20", level.Quantity)
	}
	if n := len(f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)); n != 1 {
		t.Errorf("movement count = %d, want 1", n)
	}
}

func TestStockService_AdjustZeroDelta(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 30)

	level, err := f.svc.Adjust(&domain.StockAdjustRequest{
		ProductID:   f.product.ID,
		WarehouseID: f.warehouse.ID,
		Quantity:    0,
	})
	if err != nil {
		t.Fatalf("zero-delta adjust failed: %v", err)
	}
	if level.Quantity != 30 {
		t.Errorf("quantity = %d, want 30", level.Quantity)
	}
	if n := len(f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)); n != 1 {
		t.Errorf("zero delta must not append movement, count = %d", n)
	}
}

// 零增量调整同样触发低库存检查，盘点确认低库存时也要发告警。
func TestStockService_AdjustZeroDeltaChecksLowStock(t *testing.T) {
	f := newStockFixture(t)
	f.stockRepo.seed(f.product.ID, f.warehouse.ID, 5)

	if _, err := f.svc.Adjust(&domain.StockAdjustRequest{
		ProductID:   f.product.ID,
		WarehouseID: f.warehouse.ID,
		Quantity:    0,
	}); err != nil {
		t.Fatalf("zero-delta adjust failed: %v", err)
	}

	f.monitor.Stop()
	if n := len(f.notifier.received()); n != 1 {
		t.Errorf("alerts = %d, want 1", n)
	}
}

func TestStockService_AdjustUnknownReferences(t *testing.T) {
	f := newStockFixture(t)

	_, err := f.svc.Adjust(&domain.StockAdjustRequest{
		ProductID:   uuid.New(),
		WarehouseID: f.warehouse.ID,
		Quantity:    5,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown product: expected ErrNotFound, got %v", err)
	}

	_, err = f.svc.Adjust(&domain.StockAdjustRequest{
		ProductID:   f.product.ID,
		WarehouseID: uuid.New(),
		Quantity:    5,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown warehouse: expected ErrNotFound, got %v", err)
	}
}

func TestStockService_TransferMovesStockAtomically(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 40)

	dst, err := f.svc.Transfer(&domain.StockTransferRequest{
		ProductID:              f.product.ID,
		SourceWarehouseID:      f.warehouse.ID,
		DestinationWarehouseID: f.secondWH.ID,
		Quantity:               15,
		Reason:                 "rebalance",
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}
	if dst.Quantity != 15 {
		t.Errorf("destination quantity = %d, want 15", dst.Quantity)
	}

	src, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if src.Quantity != 25 {
		t.Errorf("source quantity = %d, want 25", src.Quantity)
	}

	// 两条流水通过同一个 referenceID 关联
	out := f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)
	in := f.stockRepo.movementsFor(f.product.ID, f.secondWH.ID)
	lastOut := out[len(out)-1]
	if lastOut.Type != domain.MovementTransferOut {
		t.Fatalf("source movement type = %s, want TRANSFER_OUT", lastOut.Type)
	}
	if len(in) != 1 || in[0].Type != domain.MovementTransferIn {
		t.Fatalf("destination movements = %+v, want single TRANSFER_IN", in)
	}
	if lastOut.ReferenceID == nil || in[0].ReferenceID == nil || *lastOut.ReferenceID != *in[0].ReferenceID {
		t.Error("transfer movements must share the same reference id")
	}
}

func TestStockService_TransferSameWarehouse(t *testing.T) {
	f := newStockFixture(t)

	_, err := f.svc.Transfer(&domain.StockTransferRequest{
		ProductID:              f.product.ID,
		SourceWarehouseID:      f.warehouse.ID,
		DestinationWarehouseID: f.warehouse.ID,
		Quantity:               5,
	})
	if !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("expected ErrBadRequest, got %v", err)
	}
}

func TestStockService_TransferMissingSourceCell(t *testing.T) {
	f := newStockFixture(t)

	_, err := f.svc.Transfer(&domain.StockTransferRequest{
		ProductID:              f.product.ID,
		SourceWarehouseID:      f.warehouse.ID,
		DestinationWarehouseID: f.secondWH.ID,
		Quantity:               5,
	})
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing source cell, got %v", err)
	}
}

func TestStockService_TransferInsufficientIsAllOrNothing(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 10)

	_, err := f.svc.Transfer(&domain.StockTransferRequest{
		ProductID:              f.product.ID,
		SourceWarehouseID:      f.warehouse.ID,
		DestinationWarehouseID: f.secondWH.ID,
		Quantity:               25,
	})
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	src, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	dst, _ := f.svc.GetLevel(f.product.ID, f.secondWH.ID)
	if src.Quantity != 10 || dst.Quantity != 0 {
		t.Errorf("levels after failed transfer = %d/%d, want 10/0", src.Quantity, dst.Quantity)
	}
	if n := len(f.stockRepo.movementsFor(f.product.ID, f.secondWH.ID)); n != 0 {
		t.Errorf("failed transfer must not write movements, got %d", n)
	}
}

func TestStockService_LowStockAlertFiresAtBoundary(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 12)

	// 12 -> 8 跨过阈值10，恰好一条告警
	f.adjust(t, -4)
	f.monitor.Stop()

	alerts := f.notifier.received()
	if len(alerts) != 1 {
		t.Fatalf("alert count = %d, want 1", len(alerts))
	}
	alert := alerts[0]
	if alert.ProductID != f.product.ID || alert.WarehouseID != f.warehouse.ID {
		t.Error("alert carries wrong product/warehouse")
	}
	if alert.CurrentQuantity != 8 || alert.ReorderLevel != 10 {
		t.Errorf("alert = %d/%d, want 8/10", alert.CurrentQuantity, alert.ReorderLevel)
	}
}

func TestStockService_NoAlertAboveReorderLevel(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 20)

	// 20 -> 15 仍在阈值之上
	f.adjust(t, -5)
	f.monitor.Stop()

	if alerts := f.notifier.received(); len(alerts) != 0 {
		t.Errorf("alert count = %d, want 0", len(alerts))
	}
}

func TestStockService_ConcurrentAdjusts(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 1000)

	const workers = 40
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		delta := 5
		if i%2 == 1 {
			delta = -5
		}
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			if _, err := f.svc.Adjust(&domain.StockAdjustRequest{
				ProductID:   f.product.ID,
				WarehouseID: f.warehouse.ID,
				Quantity:    d,
			}); err != nil {
				t.Errorf("concurrent adjust failed: %v", err)
			}
		}(delta)
	}
	wg.Wait()

	// 增减对冲，最终数量必须回到起点
	level, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if level.Quantity != 1000 {
		t.Errorf("final quantity = %d, want 1000", level.Quantity)
	}
	if level.Quantity < 0 {
		t.Error("quantity must never be negative")
	}
}

func TestStockService_ApplyInboundEvent(t *testing.T) {
	f := newStockFixture(t)

	orderID := uuid.New()
	event := domain.NewStockInEvent(f.product.ID, f.warehouse.ID, 30, orderID)
	if err := f.svc.ApplyInboundEvent(event); err != nil {
		t.Fatalf("ApplyInboundEvent failed: %v", err)
	}

	level, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if level.Quantity != 30 {
		t.Errorf("quantity = %d, want 30", level.Quantity)
	}

	movements := f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)
	if len(movements) != 1 {
		t.Fatalf("movement count = %d, want 1", len(movements))
	}
	m := movements[0]
	if m.Type != domain.MovementIn {
		t.Errorf("movement type = %s, want IN", m.Type)
	}
	if m.Reason != "Purchase order received" {
		t.Errorf("movement reason = %q", m.Reason)
	}
	if m.ReferenceID == nil || *m.ReferenceID != orderID {
		t.Error("movement must reference the source order")
	}
}

func TestStockService_ApplyOutboundEvent(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 12)

	orderID := uuid.New()
	event := domain.NewStockOutEvent(f.product.ID, f.warehouse.ID, 4, orderID)
	if err := f.svc.ApplyOutboundEvent(event); err != nil {
		t.Fatalf("ApplyOutboundEvent failed: %v", err)
	}

	level, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if level.Quantity != 8 {
		t.Errorf("quantity = %d, want 8", level.Quantity)
	}

	movements := f.stockRepo.movementsFor(f.product.ID, f.warehouse.ID)
	last := movements[len(movements)-1]
	if last.Type != domain.MovementOut || last.Reason != "Sales order confirmed" {
		t.Errorf("movement = %s/%q", last.Type, last.Reason)
	}

	// 出库把数量压到阈值以下，应触发低库存告警
	f.monitor.Stop()
	if alerts := f.notifier.received(); len(alerts) != 1 {
		t.Errorf("alert count = %d, want 1", len(alerts))
	}
}

func TestStockService_ApplyOutboundEventInsufficient(t *testing.T) {
	f := newStockFixture(t)
	f.adjust(t, 3)

	event := domain.NewStockOutEvent(f.product.ID, f.warehouse.ID, 10, uuid.New())
	err := f.svc.ApplyOutboundEvent(event)
	if !errors.Is(err, domain.ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock, got %v", err)
	}

	level, _ := f.svc.GetLevel(f.product.ID, f.warehouse.ID)
	if level.Quantity != 3 {
		t.Errorf("quantity = %d, want unchanged 3", level.Quantity)
	}
}
