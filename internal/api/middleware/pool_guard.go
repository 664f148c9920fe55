package middleware

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"

	pkgerrors "maintenance-ops/backend/pkg/errors"
	"maintenance-ops/backend/pkg/response"
)

// SlotAcquirer 数据库连接槽位，由 database.PoolGuard 实现
type SlotAcquirer interface {
	Acquire(ctx context.Context) (func(), error)
}

// PoolGuard 请求在整个处理期间占用一个数据库槽位，
// 连接池饱和时快速返回 503 而不是挂起等待
func PoolGuard(guard SlotAcquirer) gin.HandlerFunc {
	return func(c *gin.Context) {
		release, err := guard.Acquire(c.Request.Context())
		if err != nil {
			if errors.Is(err, pkgerrors.ErrBackpressure) {
				c.Header("Retry-After", "1")
				response.ServiceUnavailable(c, 10503, err.Error())
			} else {
				// 客户端已断开
				c.Status(499)
			}
			c.Abort()
			return
		}
		defer release()

		c.Next()
	}
}
