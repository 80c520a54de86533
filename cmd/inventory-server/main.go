// Package main 是库存台账服务入口：对外提供库存HTTP API，
// 并消费订单侧发出的入库/出库事件。
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/KavyaDhyani/Inventory-Management-System/internal/api"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/cache"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/config"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/database"
	"github.com/KavyaDhyani/Inventory-Management-System/internal/limiter"
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

	lg, err := logger.New(cfg.App.Env, cfg.Log.Level, cfg.Log.Encoding, cfg.App.Name, cfg.App.Version)
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

	// HTTP服务器启动前先完成迁移，保证表结构就绪
	migrationsDir := cfg.Migrations.Dir
	lg.Sugar().Infow("using migrations directory", "path", migrationsDir)

	if err := db.RunMigrations(migrationsDir); err != nil {
		return nil, fmt.Errorf("failed to run database migrations: %v", err)
	}

	return db, nil
}

// initCache 初始化缓存实例
func initCache(cfg *config.Config, lg *zap.Logger) cache.Cache {
	if !cfg.Cache.Enabled {
		lg.Sugar().Infow("cache disabled, event dedup is off")
		return cache.NewNullCache()
	}

	switch cfg.Cache.Type {
	case "redis":
		redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
		redisCache, err := cache.NewRedisCache(redisAddr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			lg.Sugar().Warnw("failed to connect to Redis, falling back to memory cache", "error", err)
			return cache.NewMemoryCache()
		}
		lg.Sugar().Infow("cache enabled", "type", "redis", "addr", redisAddr)
		return redisCache
	case "memory":
		lg.Sugar().Infow("cache enabled", "type", "memory")
		return cache.NewMemoryCache()
	default:
		lg.Sugar().Warnw("unknown cache type, using memory cache", "type", cfg.Cache.Type)
		return cache.NewMemoryCache()
	}
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

// initWriteLimiter 基于Redis创建写接口限流器，Redis不可用时不限流
func initWriteLimiter(cfg *config.Config, lg *zap.Logger) limiter.Limiter {
	if cfg.Redis.Host == "" {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		lg.Sugar().Warnw("redis unavailable, write rate limiting disabled", "error", err)
		return nil
	}

	return limiter.NewTokenBucketLimiter(client, &limiter.Config{
		Rate:   100,
		Window: time.Minute,
		Burst:  20,
	})
}

// startServer 启动服务器并处理优雅关闭
func startServer(cfg *config.Config, handler http.Handler, lg *zap.Logger, onShutdown func()) {
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

	if onShutdown != nil {
		onShutdown()
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

	cacheInstance := initCache(cfg, lg)
	defer cacheInstance.Close()

	cm, err := initMQ(cfg, lg)
	if err != nil {
		lg.Sugar().Fatalw("failed to connect to message queue", "err", err)
	}
	defer cm.Close()

	// 仓储层
	stockRepo := repo.NewStockRepository(db.DB)
	baseProductRepo := repo.NewProductRepository(db.DB)
	warehouseRepo := repo.NewWarehouseRepository(db.DB)

	var productRepo repo.ProductRepository = baseProductRepo
	if cfg.Cache.Enabled {
		productRepo = repo.NewCachedProductRepository(baseProductRepo, cacheInstance, cfg.Cache.TTL)
	}

	// 低库存监视器：告警发布到MQ，供外部补货流程订阅
	alertPublisher := mq.NewAlertPublisher(cm, nil, lg)
	defer alertPublisher.Close()

	monitor := service.NewLowStockMonitor(alertPublisher, lg, 0)
	monitor.Start()
	defer monitor.Stop()

	// 服务层和处理器
	stockService := service.NewStockService(stockRepo, productRepo, warehouseRepo, monitor, lg)
	stockHandler := api.NewStockHandler(stockService, lg)
	catalogHandler := api.NewCatalogHandler(productRepo, warehouseRepo, lg)

	// 事件消费：订单侧的入库/出库事件落到台账
	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	consumer := mq.NewStockEventConsumer(cm, stockService, cacheInstance, nil, lg)
	if err := consumer.StartConsumers(consumerCtx); err != nil {
		lg.Sugar().Fatalw("failed to start event consumers", "err", err)
	}

	handler := router.New().Setup(cfg, &router.Dependencies{
		StockHandler:   stockHandler,
		CatalogHandler: catalogHandler,
		WriteLimiter:   initWriteLimiter(cfg, lg),
	}, lg)

	startServer(cfg, handler, lg, func() {
		consumer.StopConsumers()
	})
}
