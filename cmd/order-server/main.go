// Package main 是订单服务入口：管理采购/销售订单生命周期，
// 并在收货/确认时向库存侧发布入库/出库事件。
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/api"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/config"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/database"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/logger"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/mq"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/repo"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/router"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/service"
)

// initConfigAndLogger 初始化配置和日志器
func initConfigAndLogger() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %v", err)
	}

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, "order-service", cfg.App.Version)
	if err != nil {
		return nil, nil, fmt.Errorf("init logger: %v", err)
	}

	return cfg, lg, nil
}

// initDatabase 初始化数据库连接并执行迁移
func initDatabase(cfg *config.Config, lg *zap.Logger) (*database.DB, error) {
	db, err := database.New(cfg, lg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %v", err)
	}

	if err := db.RunMigrations(cfg.Migrations.Dir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initMQ 建立RabbitMQ连接
func initMQ(cfg *config.Config, lg *zap.Logger) (*mq.ConnectionManager, error) {
	mqCfg := mq.DefaultConfig()
	mqCfg.Host = cfg.MQ.Host
	mqCfg.Port = cfg.MQ.Port
	mqCfg.Username = cfg.MQ.Username
	mqCfg.Password = cfg.MQ.Password
	mqCfg.VHost = cfg.MQ.VHost

	if err := mqCfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid mq config: %v", err)
	}

	cm := mq.NewConnectionManager(mqCfg, lg)
	if err := cm.Connect(); err != nil {
		return nil, err
	}

	return cm, nil
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger) {
	addr := fmt.Sprintf(":%d", cfg.App.Port)
	lg.Sugar().Infow("server starting", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 5 * time.Second}

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt)
	select {
	case err := <-serverErrCh:
		if err != nil && err != http.ErrServerClosed {
			lg.Sugar().Fatalw("server error", "err", err)
		}
	case <-quit:
		lg.Sugar().Infow("shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		lg.Sugar().Errorw("server shutdown error", "err", err)
	}
	lg.Sugar().Infow("server exited")
}

func main() {
	cfg, lg, err := initConfigAndLogger()
	if err != nil {
		log.Fatalf("failed to initialize config and logger: %v", err)
	}

	db, err := initDatabase(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize database", "err", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			lg.Sugar().Errorw("failed to close database connection", "err", err)
		}
	}()

	cm, err := initMQ(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to connect to message queue", "err", err)
	}
	defer cm.Close()

	// 事件发布器，声明队列拓扑后供订单服务使用
	publisher, err := mq.NewStockEventProducer(cm, nil, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to initialize event producer", "err", err)
	}
	defer publisher.Close()

	// 仓储层和服务层
	purchaseRepo := repo.NewPurchaseOrderRepository(db.DB)
	salesRepo := repo.NewSalesOrderRepository(db.DB)

	purchaseService := service.NewPurchaseOrderService(purchaseRepo, publisher, lg)
	salesService := service.NewSalesOrderService(salesRepo, publisher, lg)

	orderHandler := api.NewOrderHandler(purchaseService, salesService, lg)

	handler := router.New().Setup(cfg, &router.Dependencies{
		OrderHandler: orderHandler,
	}, lg)

	startServer(cfg, handler, lg)
}
