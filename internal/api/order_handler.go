// Package api 提供采购/销售订单相关的HTTP API处理器实现。
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/middleware"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/service"
)

// OrderHandler 订单相关的HTTP处理器
type OrderHandler struct {
	purchaseService service.PurchaseOrderService
	salesService    service.SalesOrderService
	logger          *zap.Logger
}

// NewOrderHandler 创建订单处理器实例
func NewOrderHandler(
	purchaseService service.PurchaseOrderService,
	salesService service.SalesOrderService,
	logger *zap.Logger,
) *OrderHandler {
	return &OrderHandler{
		purchaseService: purchaseService,
		salesService:    salesService,
		logger:          logger,
	}
}

// CreatePurchaseOrder 创建采购订单
// POST /api/v1/purchase-orders
func (h *OrderHandler) CreatePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreatePurchaseOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	order, err := h.purchaseService.Create(&req)
	if err != nil {
		h.writeOrderError(w, err, "create purchase order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// GetPurchaseOrder 获取采购订单详情
// GET /api/v1/purchase-orders/{id}
func (h *OrderHandler) GetPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := parsePathID(w, r, "purchase-orders", reqID)
	if !ok {
		return
	}

	order, err := h.purchaseService.GetByID(id)
	if err != nil {
		h.writeOrderError(w, err, "get purchase order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// ListPurchaseOrders 列出采购订单
// GET /api/v1/purchase-orders
func (h *OrderHandler) ListPurchaseOrders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	orders, err := h.purchaseService.List()
	if err != nil {
		h.logger.Error("list purchase orders failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list purchase orders failed", reqID, "")
		return
	}

	resp.OK(w, orders, reqID, "")
}

// ReceivePurchaseOrder 采购订单收货，逐行发出入库事件
// POST /api/v1/purchase-orders/{id}/receive
// 需要管理员或库管权限
func (h *OrderHandler) ReceivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := parsePathID(w, r, "purchase-orders", reqID)
	if !ok {
		return
	}

	order, err := h.purchaseService.Receive(id)
	if err != nil {
		h.writeOrderError(w, err, "receive purchase order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// CreateSalesOrder 创建销售订单
// POST /api/v1/sales-orders
func (h *OrderHandler) CreateSalesOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateSalesOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	order, err := h.salesService.Create(&req)
	if err != nil {
		h.writeOrderError(w, err, "create sales order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// GetSalesOrder 获取销售订单详情
// GET /api/v1/sales-orders/{id}
func (h *OrderHandler) GetSalesOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := parsePathID(w, r, "sales-orders", reqID)
	if !ok {
		return
	}

	order, err := h.salesService.GetByID(id)
	if err != nil {
		h.writeOrderError(w, err, "get sales order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// ListSalesOrders 列出销售订单
// GET /api/v1/sales-orders
func (h *OrderHandler) ListSalesOrders(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	orders, err := h.salesService.List()
	if err != nil {
		h.logger.Error("list sales orders failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list sales orders failed", reqID, "")
		return
	}

	resp.OK(w, orders, reqID, "")
}

// ConfirmSalesOrder 确认销售订单，逐行发出出库事件
// POST /api/v1/sales-orders/{id}/confirm
// 需要管理员或库管权限
func (h *OrderHandler) ConfirmSalesOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := parsePathID(w, r, "sales-orders", reqID)
	if !ok {
		return
	}

	order, err := h.salesService.Confirm(id)
	if err != nil {
		h.writeOrderError(w, err, "confirm sales order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// CancelSalesOrder 取消销售订单，不发出任何事件
// POST /api/v1/sales-orders/{id}/cancel
// 需要管理员或库管权限
func (h *OrderHandler) CancelSalesOrder(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, ok := parsePathID(w, r, "sales-orders", reqID)
	if !ok {
		return
	}

	order, err := h.salesService.Cancel(id)
	if err != nil {
		h.writeOrderError(w, err, "cancel sales order failed", reqID)
		return
	}

	resp.OK(w, order, reqID, "")
}

// writeOrderError 将订单业务错误映射为HTTP响应
func (h *OrderHandler) writeOrderError(w http.ResponseWriter, err error, fallback, reqID string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "order not found", reqID, "")
	case errors.Is(err, domain.ErrBadRequest):
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}

// parsePathID 从URL路径中提取resource后面的UUID段，失败时写出400响应
func parsePathID(w http.ResponseWriter, r *http.Request, resource, reqID string) (uuid.UUID, bool) {
	segments := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
	for i, segment := range segments {
		if segment == resource && i+1 < len(segments) {
			id, err := uuid.Parse(segments[i+1])
			if err != nil {
				resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid order id", reqID, "")
				return uuid.Nil, false
			}
			return id, true
		}
	}

	resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "order id is required", reqID, "")
	return uuid.Nil, false
}
