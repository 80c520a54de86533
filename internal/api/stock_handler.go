// Package api 提供库存台账相关的HTTP API处理器实现。
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/middleware"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/service"
)

// StockHandler 库存台账相关的HTTP处理器
type StockHandler struct {
	stockService service.StockService
	logger       *zap.Logger
}

// NewStockHandler 创建库存处理器实例
func NewStockHandler(stockService service.StockService, logger *zap.Logger) *StockHandler {
	return &StockHandler{
		stockService: stockService,
		logger:       logger,
	}
}

// GetLevel 查询单个 (商品, 仓库) 单元的数量
// GET /api/v1/stock/level?product_id=&warehouse_id=
func (h *StockHandler) GetLevel(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	productID, ok := parseUUIDQuery(w, r, "product_id", reqID)
	if !ok {
		return
	}
	warehouseID, ok := parseUUIDQuery(w, r, "warehouse_id", reqID)
	if !ok {
		return
	}

	level, err := h.stockService.GetLevel(productID, warehouseID)
	if err != nil {
		h.logger.Error("get stock level failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get stock level failed", reqID, "")
		return
	}

	resp.OK(w, level, reqID, "")
}

// ListLevels 按商品或仓库维度列出库存
// GET /api/v1/stock/levels?product_id= 或 ?warehouse_id=
func (h *StockHandler) ListLevels(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	productParam := r.URL.Query().Get("product_id")
	warehouseParam := r.URL.Query().Get("warehouse_id")

	switch {
	case productParam != "":
		productID, err := uuid.Parse(productParam)
		if err != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product_id", reqID, "")
			return
		}
		levels, err := h.stockService.ListLevelsByProduct(productID)
		if err != nil {
			h.logger.Error("list stock levels failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list stock levels failed", reqID, "")
			return
		}
		resp.OK(w, levels, reqID, "")

	case warehouseParam != "":
		warehouseID, err := uuid.Parse(warehouseParam)
		if err != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid warehouse_id", reqID, "")
			return
		}
		levels, err := h.stockService.ListLevelsByWarehouse(warehouseID)
		if err != nil {
			h.logger.Error("list stock levels failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list stock levels failed", reqID, "")
			return
		}
		resp.OK(w, levels, reqID, "")

	default:
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "product_id or warehouse_id is required", reqID, "")
	}
}

// AdjustStock 人工调整库存数量
// POST /api/v1/stock/adjust
// 需要管理员或库管权限
func (h *StockHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.StockAdjustRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.ProductID == uuid.Nil || req.WarehouseID == uuid.Nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "product_id and warehouse_id are required", reqID, "")
		return
	}

	level, err := h.stockService.Adjust(&req)
	if err != nil {
		h.writeStockError(w, err, "adjust stock failed", reqID)
		return
	}

	resp.OK(w, level, reqID, "")
}

// TransferStock 跨仓库调拨库存
// POST /api/v1/stock/transfer
// 需要管理员或库管权限
func (h *StockHandler) TransferStock(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.StockTransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.ProductID == uuid.Nil || req.SourceWarehouseID == uuid.Nil || req.DestinationWarehouseID == uuid.Nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "product_id and warehouse ids are required", reqID, "")
		return
	}

	level, err := h.stockService.Transfer(&req)
	if err != nil {
		h.writeStockError(w, err, "transfer stock failed", reqID)
		return
	}

	resp.OK(w, level, reqID, "")
}

// ListMovements 按写入顺序分页查询库存流水
// GET /api/v1/stock/movements?product_id=&warehouse_id=&page=&page_size=
func (h *StockHandler) ListMovements(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.MovementListRequest{}
	query := r.URL.Query()

	if v := query.Get("product_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product_id", reqID, "")
			return
		}
		req.ProductID = &id
	}

	if v := query.Get("warehouse_id"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid warehouse_id", reqID, "")
			return
		}
		req.WarehouseID = &id
	}

	if v := query.Get("page"); v != "" {
		page, err := strconv.Atoi(v)
		if err != nil || page < 1 {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid page", reqID, "")
			return
		}
		req.Page = page
	}

	if v := query.Get("page_size"); v != "" {
		size, err := strconv.Atoi(v)
		if err != nil || size < 1 {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid page_size", reqID, "")
			return
		}
		req.PageSize = size
	}

	movements, err := h.stockService.ListMovements(req)
	if err != nil {
		h.logger.Error("list movements failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list movements failed", reqID, "")
		return
	}

	resp.OK(w, movements, reqID, "")
}

// writeStockError 将库存业务错误映射为HTTP响应
func (h *StockHandler) writeStockError(w http.ResponseWriter, err error, fallback, reqID string) {
	switch {
	case errors.Is(err, domain.ErrInsufficientStock):
		resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "insufficient stock", reqID, "")
	case errors.Is(err, domain.ErrNotFound):
		resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, err.Error(), reqID, "")
	case errors.Is(err, domain.ErrBadRequest):
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
	default:
		h.logger.Error(fallback, zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, fallback, reqID, "")
	}
}

// parseUUIDQuery 解析必填的UUID查询参数，失败时写出400响应
func parseUUIDQuery(w http.ResponseWriter, r *http.Request, name, reqID string) (uuid.UUID, bool) {
	v := r.URL.Query().Get(name)
	if v == "" {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, name+" is required", reqID, "")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(v)
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid "+name, reqID, "")
		return uuid.Nil, false
	}

	return id, true
}
