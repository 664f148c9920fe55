package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"maintenance-ops/backend/config"
	"maintenance-ops/backend/internal/api/handler"
	"maintenance-ops/backend/internal/api/router"
	"maintenance-ops/backend/internal/realtime"
	"maintenance-ops/backend/internal/repository"
	"maintenance-ops/backend/internal/service"
	"maintenance-ops/backend/pkg/database"
	applogger "maintenance-ops/backend/pkg/logger"
	"maintenance-ops/backend/pkg/metrics"
	"maintenance-ops/backend/pkg/redis"
)

func main() {
	// 1. 加载配置
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("应用启动中...",
		zap.Int("port", cfg.Server.Port),
		zap.String("log_level", cfg.Log.Level),
		zap.String("scheduler_tz", cfg.Scheduler.Location().String()),
	)

	// 3. 连接数据库
	db, err := database.NewDB(&cfg.Database, logger)
	if err != nil {
		logger.Fatal("数据库连接失败", zap.Error(err))
	}
	logger.Info("数据库连接成功")

	// 3.1 执行数据库迁移
	sqlDB, err := db.DB()
	if err != nil {
		logger.Fatal("获取底层 sql.DB 失败", zap.Error(err))
	}
	if err := database.RunMigrations(sqlDB, logger); err != nil {
		logger.Fatal("数据库迁移失败", zap.Error(err))
	}

	// 3.2 连接池背压守卫
	guard := database.NewPoolGuard(cfg.Database.MaxOpenConns, cfg.Database.MaxWaitQueue, cfg.Database.AcquireTimeout)

	// 4. 连接 Redis（可选：连接失败时降级为进程内限流）
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = redis.NewClient(&cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis 连接失败，限流退回本地令牌桶", zap.Error(err))
			rdb = nil
		}
	}

	// 5. 指标与实时推送
	m := metrics.New(prometheus.DefaultRegisterer)
	hub := realtime.NewHub(&cfg.Realtime, m, logger)

	// 6. 依赖注入: Repository → Service → Handler
	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, hub, guard, m, logger)
	h := handler.NewHandler(svc, hub, logger)

	// 7. 启动通知调度器
	if cfg.Scheduler.Enabled {
		if err := svc.Scheduler.Start(); err != nil {
			logger.Fatal("通知调度器启动失败", zap.Error(err))
		}
	} else {
		logger.Info("通知调度器已禁用")
	}

	// 8. 初始化路由
	engine := router.Setup(cfg, h, guard, rdb, db, logger)

	// 9. 启动 HTTP 服务器（优雅关闭）
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("HTTP 服务器已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP 服务器异常", zap.Error(err))
		}
	}()

	// 10. 监听系统信号，优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	logger.Info("收到关闭信号，开始优雅关闭...", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// 先停调度器，等待进行中的扫描结束
	svc.Scheduler.Stop(ctx)

	// WebSocket 连接被 Hijack，不受 Shutdown 管理
	hub.CloseAll()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("服务器关闭异常", zap.Error(err))
	}

	if err := sqlDB.Close(); err != nil {
		logger.Error("关闭数据库连接失败", zap.Error(err))
	}

	if rdb != nil {
		rdb.Close()
	}

	logger.Info("服务器已关闭")
}
