// Package router 提供 HTTP 路由设置和中间件配置功能
package router

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/api"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/config"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/limiter"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/middleware"
)

// Dependencies 包含路由设置所需的所有依赖
type Dependencies struct {
	StockHandler   *api.StockHandler
	OrderHandler   *api.OrderHandler
	CatalogHandler *api.CatalogHandler

	// WriteLimiter 为空时不启用写接口限流
	WriteLimiter limiter.Limiter
}

// Router 路由器接口
type Router interface {
	Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler
}

// GinRouter Gin路由器实现
type GinRouter struct {
	engine *gin.Engine
	cfg    *config.Config
	deps   *Dependencies
	logger *zap.Logger
}

// New 创建新的路由器实例
func New() Router {
	return &GinRouter{}
}

// Setup 设置路由和中间件
func (r *GinRouter) Setup(cfg *config.Config, deps *Dependencies, lg *zap.Logger) http.Handler {
	if cfg.App.Env == "prod" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	r.engine = gin.New()
	r.cfg = cfg
	r.deps = deps
	r.logger = lg

	r.setupMiddleware(cfg)
	r.setupRoutes(cfg)

	// 进程级中间件按标准库方式叠在 gin 引擎外侧。
	// Timeout 基于 http.TimeoutHandler，内层 handler 在独立协程中执行，
	// 只能包住完整的 handler，不能放进 gin 链。
	var handler http.Handler = r.engine
	handler = middleware.Recovery(lg)(handler)
	handler = middleware.Timeout(cfg.App.RequestTimeout)(handler)
	handler = middleware.AccessLog(lg)(handler)
	handler = middleware.RequestID(handler)
	return handler
}

// setupMiddleware 设置引擎内的全局中间件
func (r *GinRouter) setupMiddleware(cfg *config.Config) {
	r.engine.Use(r.corsMiddleware(cfg))
}

// setupRoutes 设置所有路由
func (r *GinRouter) setupRoutes(cfg *config.Config) {
	r.engine.GET("/healthz", r.healthCheck)

	auth := adaptMiddleware(middleware.AuthMiddleware(cfg.JWT.Secret, cfg.JWT.Issuer, r.logger))
	writeRoles := adaptMiddleware(middleware.RequireRoles(r.logger, middleware.RoleAdmin, middleware.RoleManager))

	writeGuards := []gin.HandlerFunc{auth, writeRoles}
	if r.deps.WriteLimiter != nil {
		writeGuards = append(writeGuards, limiter.WriteRateLimitMiddleware(r.deps.WriteLimiter))
	}

	v1 := r.engine.Group("/api/v1")
	{
		// 目录路由（公开只读）
		if r.deps.CatalogHandler != nil {
			products := v1.Group("/products")
			{
				products.GET("", gin.WrapF(r.deps.CatalogHandler.ListProducts))
				products.GET("/:id", gin.WrapF(r.deps.CatalogHandler.GetProduct))
			}

			warehouses := v1.Group("/warehouses")
			{
				warehouses.GET("", gin.WrapF(r.deps.CatalogHandler.ListWarehouses))
				warehouses.GET("/:id", gin.WrapF(r.deps.CatalogHandler.GetWarehouse))
			}
		}

		// 库存路由：查询需要认证，变更需要库管权限
		if r.deps.StockHandler != nil {
			stock := v1.Group("/stock")
			stock.Use(auth)
			{
				stock.GET("/level", gin.WrapF(r.deps.StockHandler.GetLevel))
				stock.GET("/levels", gin.WrapF(r.deps.StockHandler.ListLevels))
				stock.GET("/movements", gin.WrapF(r.deps.StockHandler.ListMovements))
			}

			stockAdmin := v1.Group("/stock")
			stockAdmin.Use(writeGuards...)
			{
				stockAdmin.POST("/adjust", gin.WrapF(r.deps.StockHandler.AdjustStock))
				stockAdmin.POST("/transfer", gin.WrapF(r.deps.StockHandler.TransferStock))
			}
		}

		// 订单路由
		if r.deps.OrderHandler != nil {
			purchase := v1.Group("/purchase-orders")
			purchase.Use(auth)
			{
				purchase.GET("", gin.WrapF(r.deps.OrderHandler.ListPurchaseOrders))
				purchase.GET("/:id", gin.WrapF(r.deps.OrderHandler.GetPurchaseOrder))
				purchase.POST("", gin.WrapF(r.deps.OrderHandler.CreatePurchaseOrder))
			}

			purchaseAdmin := v1.Group("/purchase-orders")
			purchaseAdmin.Use(writeGuards...)
			{
				purchaseAdmin.POST("/:id/receive", gin.WrapF(r.deps.OrderHandler.ReceivePurchaseOrder))
			}

			sales := v1.Group("/sales-orders")
			sales.Use(auth)
			{
				sales.GET("", gin.WrapF(r.deps.OrderHandler.ListSalesOrders))
				sales.GET("/:id", gin.WrapF(r.deps.OrderHandler.GetSalesOrder))
				sales.POST("", gin.WrapF(r.deps.OrderHandler.CreateSalesOrder))
			}

			salesAdmin := v1.Group("/sales-orders")
			salesAdmin.Use(writeGuards...)
			{
				salesAdmin.POST("/:id/confirm", gin.WrapF(r.deps.OrderHandler.ConfirmSalesOrder))
				salesAdmin.POST("/:id/cancel", gin.WrapF(r.deps.OrderHandler.CancelSalesOrder))
			}
		}
	}
}

// healthCheck 健康检查处理器
func (r *GinRouter) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"name":    r.cfg.App.Name,
		"version": r.cfg.App.Version,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// corsMiddleware CORS 中间件
func (r *GinRouter) corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	origins := "*"
	if len(cfg.CORS.AllowedOrigins) > 0 {
		origins = strings.Join(cfg.CORS.AllowedOrigins, ", ")
	}
	methods := "GET, POST, PUT, DELETE, OPTIONS"
	if len(cfg.CORS.AllowedMethods) > 0 {
		methods = strings.Join(cfg.CORS.AllowedMethods, ", ")
	}
	headers := "Content-Type, Authorization"
	if len(cfg.CORS.AllowedHeaders) > 0 {
		headers = strings.Join(cfg.CORS.AllowedHeaders, ", ")
	}

	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", origins)
		c.Header("Access-Control-Allow-Methods", methods)
		c.Header("Access-Control-Allow-Headers", headers)

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// adaptMiddleware 将标准库风格的中间件适配为 gin.HandlerFunc，
// 仅限认证这类在当前协程内同步完成的中间件；
// 内层handler未被调用说明中间件已写出响应，终止后续链路。
func adaptMiddleware(mw func(http.Handler) http.Handler) gin.HandlerFunc {
	return func(c *gin.Context) {
		passed := false
		mw(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			passed = true
			c.Request = req
			c.Next()
		})).ServeHTTP(c.Writer, c.Request)

		if !passed {
			c.Abort()
		}
	}
}
