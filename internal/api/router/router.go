package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"maintenance-ops/backend/config"
	"maintenance-ops/backend/internal/api/handler"
	"maintenance-ops/backend/internal/api/middleware"
	"maintenance-ops/backend/pkg/redis"
)

// Setup 初始化并返回 Gin 路由引擎
// guard 为数据库槽位守卫，rdb 可为 nil
func Setup(cfg *config.Config, h *handler.Handler, guard middleware.SlotAcquirer, rdb *redis.Client, db *gorm.DB, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimit))

	// ── 探针 ──
	r.GET("/health", healthHandler(db, rdb))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// ── 实时推送（长连接不占数据库槽位）──
	r.GET("/ws", h.Notification.ServeWS)

	// ── 业务接口 ──
	api := r.Group("")
	api.Use(middleware.PoolGuard(guard))

	writes := []gin.HandlerFunc{}
	if cfg.Server.RateLimit.Enabled {
		writes = append(writes, middleware.RateLimit(rdb, cfg.Server.RateLimit.Limit, cfg.Server.RateLimit.Window, logger))
	}
	w := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, writes...), hf)
	}

	// 维护排程
	schedules := api.Group("/maintenance-schedules")
	{
		schedules.GET("", h.Schedule.List)
		schedules.POST("", w(h.Schedule.Create)...)
		schedules.GET("/:id", h.Schedule.Get)
		schedules.PUT("/:id", w(h.Schedule.Update)...)
		schedules.POST("/:id/transition", w(h.Schedule.Transition)...)
		schedules.POST("/:id/convert-to-service-order", w(h.Schedule.ConvertToServiceOrder)...)
		schedules.GET("/:id/service-order", h.Schedule.GetServiceOrder)
		schedules.GET("/:id/audit-events", h.Schedule.ListAuditEvents)
		schedules.POST("/:id/audit-events/detach", w(h.Schedule.DetachAuditEvents)...)
	}

	// 工单
	orders := api.Group("/service-orders")
	{
		orders.GET("", h.ServiceOrder.List)
		orders.GET("/:id", h.ServiceOrder.Get)
		orders.POST("/:id/transition", w(h.ServiceOrder.Transition)...)
		orders.GET("/:id/audit-events", h.ServiceOrder.ListAuditEvents)
	}

	// 审计
	api.POST("/audit-events", w(h.Audit.Create)...)
	api.GET("/equipment/:id/audit-events", h.Audit.ListByEquipment)
	api.DELETE("/equipment/:id/audit-events", w(h.Audit.DeleteByEquipment)...)

	// 收件箱
	notifications := api.Group("/notifications")
	{
		notifications.GET("", h.Notification.List)
		notifications.GET("/unread-count", h.Notification.CountUnread)
		notifications.PATCH("/read-all", w(h.Notification.MarkAllRead)...)
		notifications.PATCH("/:id/read", w(h.Notification.MarkRead)...)
	}

	return r
}

func healthHandler(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		status := gin.H{"status": "ok", "database": "ok"}
		code := http.StatusOK

		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["status"] = "degraded"
			status["database"] = err.Error()
			code = http.StatusServiceUnavailable
		}

		switch {
		case rdb == nil:
			status["redis"] = "disabled"
		case rdb.Ping(ctx) != nil:
			status["redis"] = "unreachable"
		default:
			status["redis"] = "ok"
		}

		c.JSON(code, status)
	}
}
