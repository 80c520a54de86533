package service

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
)

func TestLowStockMonitor_ThresholdIsInclusive(t *testing.T) {
	product := &domain.Product{ID: uuid.New(), SKU: "WID-001", Name: "Widget", ReorderLevel: 10}
	warehouse := &domain.Warehouse{ID: uuid.New(), Name: "Main"}

	tests := []struct {
		name      string
		quantity  int
		wantAlert bool
	}{
		{"below threshold", 8, true},
		{"at threshold", 10, true},
		{"above threshold", 11, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &mockNotifier{}
			monitor := NewLowStockMonitor(notifier, zap.NewNop(), 4)
			monitor.Start()

			monitor.Check(product, warehouse, tt.quantity)
			monitor.Stop()

			got := len(notifier.received()) == 1
			if got != tt.wantAlert {
				t.Errorf("alert fired = %v, want %v", got, tt.wantAlert)
			}
		})
	}
}

func TestLowStockMonitor_DropsWhenQueueFull(t *testing.T) {
	notifier := &mockNotifier{}
	monitor := NewLowStockMonitor(notifier, zap.NewNop(), 2)
	product := &domain.Product{ID: uuid.New(), SKU: "WID-001", ReorderLevel: 10}

	// 未启动消费协程，只有通道容量内的告警能入队，溢出的被丢弃且不阻塞
	for i := 0; i < 5; i++ {
		monitor.Check(product, nil, 3)
	}

	monitor.Start()
	monitor.Stop()

	if n := len(notifier.received()); n != 2 {
		t.Errorf("delivered alerts = %d, want 2 (queue capacity)", n)
	}
}

// 停止后的 Check 调用丢弃告警而不是向已关闭通道发送。
func TestLowStockMonitor_CheckAfterStopDoesNotPanic(t *testing.T) {
	notifier := &mockNotifier{}
	monitor := NewLowStockMonitor(notifier, zap.NewNop(), 4)
	monitor.Start()
	monitor.Stop()

	product := &domain.Product{ID: uuid.New(), SKU: "WID-001", ReorderLevel: 10}
	monitor.Check(product, nil, 1)

	if n := len(notifier.received()); n != 0 {
		t.Errorf("alerts after stop = %d, want 0", n)
	}
}

func TestLowStockMonitor_LogNotifier(t *testing.T) {
	monitor := NewLowStockMonitor(NewLogNotifier(zap.NewNop()), zap.NewNop(), 4)
	monitor.Start()

	product := &domain.Product{ID: uuid.New(), SKU: "WID-001", ReorderLevel: 10}
	warehouse := &domain.Warehouse{ID: uuid.New(), Name: "Main"}

	// 日志通知器永不失败，仅验证全链路不恐慌
	monitor.Check(product, warehouse, 0)
	monitor.Stop()
}

func TestLowStockMonitor_NotifierFailureIsSwallowed(t *testing.T) {
	notifier := &mockNotifier{err: errors.New("broker down")}
	monitor := NewLowStockMonitor(notifier, zap.NewNop(), 4)
	monitor.Start()

	product := &domain.Product{ID: uuid.New(), SKU: "WID-001", ReorderLevel: 10}

	// 通知失败只记日志，Check 与 Stop 均不受影响
	monitor.Check(product, nil, 1)
	monitor.Stop()
}
