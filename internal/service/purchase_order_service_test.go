package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

func newPurchaseOrderFixture() (PurchaseOrderService, *mockPurchaseOrderRepository, *mockEventPublisher) {
	repo := newMockPurchaseOrderRepository()
	publisher := &mockEventPublisher{}
	svc := NewPurchaseOrderService(repo, publisher, zap.NewNop())
	return svc, repo, publisher
}

func purchaseRequest(items int) *domain.CreatePurchaseOrderRequest {
	req := &domain.CreatePurchaseOrderRequest{SupplierName: "Acme Supply"}
	for i := 0; i < items; i++ {
		req.Items = append(req.Items, &domain.OrderItemRequest{
			ProductID:   uuid.New(),
			WarehouseID: uuid.New(),
			Quantity:    10 + i,
			UnitAmount:  2.5,
		})
	}
	return req
}

func TestPurchaseOrderService_Create(t *testing.T) {
	svc, _, _ := newPurchaseOrderFixture()

	order, err := svc.Create(purchaseRequest(2))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if order.Status != domain.PurchaseOrderCreated {
		t.Errorf("status = %s, want CREATED", order.Status)
	}
	if len(order.Items) != 2 {
		t.Errorf("item count = %d, want 2", len(order.Items))
	}
	for _, item := range order.Items {
		if item.OrderID != order.ID {
			t.Error("item must reference its order")
		}
	}
}

func TestPurchaseOrderService_CreateValidation(t *testing.T) {
	svc, _, _ := newPurchaseOrderFixture()

	tests := []struct {
		name string
		req  *domain.CreatePurchaseOrderRequest
	}{
		{
			name: "no items",
			req:  &domain.CreatePurchaseOrderRequest{SupplierName: "Acme Supply"},
		},
		{
			name: "non-positive quantity",
			req: &domain.CreatePurchaseOrderRequest{
				SupplierName: "Acme Supply",
				Items: []*domain.OrderItemRequest{
					{ProductID: uuid.New(), WarehouseID: uuid.New(), Quantity: 0},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(tt.req); !errors.Is(err, domain.ErrBadRequest) {
				t.Errorf("expected ErrBadRequest, got %v", err)
			}
		})
	}
}

func TestPurchaseOrderService_ReceiveEmitsEventPerItem(t *testing.T) {
	svc, _, publisher := newPurchaseOrderFixture()

	order, err := svc.Create(purchaseRequest(3))
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	received, err := svc.Receive(order.ID)
	if err != nil {
		t.Fatalf("Receive failed: %v", err)
	}
	if received.Status != domain.PurchaseOrderReceived {
		t.Errorf("status = %s, want RECEIVED", received.Status)
	}

	if len(publisher.inEvents) != 3 {
		t.Fatalf("stock-in event count = %d, want 3", len(publisher.inEvents))
	}
	seen := make(map[uuid.UUID]bool)
	for i, event := range publisher.inEvents {
		if event.EventType != domain.StockInEvent {
			t.Errorf("event %d type = %s, want STOCK_IN_EVENT", i, event.EventType)
		}
		if event.ReferenceID != order.ID {
			t.Errorf("event %d must reference the order id", i)
		}
		if seen[event.EventID] {
			t.Errorf("event %d reuses an eventId", i)
		}
		seen[event.EventID] = true
	}
}

func TestPurchaseOrderService_ReceiveTwiceRejected(t *testing.T) {
	svc, _, publisher := newPurchaseOrderFixture()

	order, _ := svc.Create(purchaseRequest(1))
	if _, err := svc.Receive(order.ID); err != nil {
		t.Fatalf("first Receive failed: %v", err)
	}

	if _, err := svc.Receive(order.ID); !errors.Is(err, domain.ErrBadRequest) {
		t.Errorf("second Receive: expected ErrBadRequest, got %v", err)
	}
	if len(publisher.inEvents) != 1 {
		t.Errorf("rejected receive must not emit events, count = %d", len(publisher.inEvents))
	}
}

func TestPurchaseOrderService_ReceiveUnknownOrder(t *testing.T) {
	svc, _, _ := newPurchaseOrderFixture()

	if _, err := svc.Receive(uuid.New()); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// 发布中途失败：状态已迁移，已发出的事件不回收，剩余行项继续尝试。
func TestPurchaseOrderService_ReceivePartialEmission(t *testing.T) {
	repo := newMockPurchaseOrderRepository()
	publisher := &mockEventPublisher{failAfter: 1}
	svc := NewPurchaseOrderService(repo, publisher, zap.NewNop())

	order, _ := svc.Create(purchaseRequest(3))
	received, err := svc.Receive(order.ID)
	if err != nil {
		t.Fatalf("Receive must not fail on publish errors: %v", err)
	}
	if received.Status != domain.PurchaseOrderReceived {
		t.Errorf("status = %s, want RECEIVED despite publish failures", received.Status)
	}
	if len(publisher.inEvents) != 1 {
		t.Errorf("emitted events = %d, want 1", len(publisher.inEvents))
	}
}
