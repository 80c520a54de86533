// Package api 提供商品和仓库目录的只读HTTP API。
package api

import (
	"net/http"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/domain"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/middleware"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/repo"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/resp"
)

// CatalogHandler 商品/仓库目录处理器。目录是只读参照数据，直接走仓储层。
type CatalogHandler struct {
	productRepo   repo.ProductRepository
	warehouseRepo repo.WarehouseRepository
	logger        *zap.Logger
}

// NewCatalogHandler 创建目录处理器实例
func NewCatalogHandler(
	productRepo repo.ProductRepository,
	warehouseRepo repo.WarehouseRepository,
	logger *zap.Logger,
) *CatalogHandler {
	return &CatalogHandler{
		productRepo:   productRepo,
		warehouseRepo: warehouseRepo,
		logger:        logger,
	}
}

// ListProducts 列出所有在售商品
// GET /api/v1/products
func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	products, err := h.productRepo.List()
	if err != nil {
		h.logger.Error("list products failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list products failed", reqID, "")
		return
	}

	resp.OK(w, products, reqID, "")
}

// GetProduct 按ID或SKU获取商品
// GET /api/v1/products/{id}?by=sku 时按SKU查询
func (h *CatalogHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	key := lastPathSegment(r.URL.Path)
	if key == "" {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "product id is required", reqID, "")
		return
	}

	var product *domain.Product
	var err error

	if r.URL.Query().Get("by") == "sku" {
		product, err = h.productRepo.GetBySKU(key)
	} else {
		id, parseErr := uuid.Parse(key)
		if parseErr != nil {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid product id", reqID, "")
			return
		}
		product, err = h.productRepo.GetByID(id)
	}

	if err != nil {
		h.logger.Error("get product failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get product failed", reqID, "")
		return
	}

	if product == nil {
		resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "product not found", reqID, "")
		return
	}

	resp.OK(w, product, reqID, "")
}

// ListWarehouses 列出所有仓库
// GET /api/v1/warehouses
func (h *CatalogHandler) ListWarehouses(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	warehouses, err := h.warehouseRepo.List()
	if err != nil {
		h.logger.Error("list warehouses failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list warehouses failed", reqID, "")
		return
	}

	resp.OK(w, warehouses, reqID, "")
}

// GetWarehouse 获取仓库详情
// GET /api/v1/warehouses/{id}
func (h *CatalogHandler) GetWarehouse(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := uuid.Parse(lastPathSegment(r.URL.Path))
	if err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid warehouse id", reqID, "")
		return
	}

	warehouse, err := h.warehouseRepo.GetByID(id)
	if err != nil {
		h.logger.Error("get warehouse failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get warehouse failed", reqID, "")
		return
	}

	if warehouse == nil {
		resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "warehouse not found", reqID, "")
		return
	}

	resp.OK(w, warehouse, reqID, "")
}

// lastPathSegment 返回URL路径的最后一段
func lastPathSegment(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if len(segments) == 0 {
		return ""
	}
	return segments[len(segments)-1]
}
