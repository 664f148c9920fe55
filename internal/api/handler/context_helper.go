package handler

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"

	pkgerrors "maintenance-ops/backend/pkg/errors"
	"maintenance-ops/backend/pkg/response"
)

// MustParseID 解析路径中的正整数 ID，失败时写入 400 响应。
// 调用方应在 ok=false 时直接 return。
func MustParseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		response.BadRequest(c, 10001, param+" 必须为正整数")
		return 0, false
	}
	return id, true
}

// handleServiceError 按错误分类映射 HTTP 状态码
func handleServiceError(c *gin.Context, err error) {
	var conflict *pkgerrors.ConflictError
	switch {
	case errors.As(err, &conflict):
		response.Conflict(c, 13201, conflict.Error(), "AlreadyConverted", gin.H{
			"scheduleId":     conflict.ScheduleID,
			"serviceOrderId": conflict.ServiceOrderID,
			"orderNumber":    conflict.OrderNumber,
		})
	case errors.Is(err, pkgerrors.ErrAlreadyConverted):
		response.Conflict(c, 13201, err.Error(), "AlreadyConverted", nil)
	case errors.Is(err, pkgerrors.ErrValidation):
		response.BadRequest(c, 10001, err.Error())
	case errors.Is(err, pkgerrors.ErrNotFound):
		response.NotFound(c, 10004, err.Error())
	case errors.Is(err, pkgerrors.ErrInvalidTransition):
		response.Conflict(c, 13202, err.Error(), "InvalidTransition", nil)
	case errors.Is(err, pkgerrors.ErrInvalidState):
		response.Conflict(c, 13203, err.Error(), "InvalidState", nil)
	case errors.Is(err, pkgerrors.ErrOptimisticLock):
		response.Conflict(c, 10009, err.Error(), "OptimisticLock", nil)
	case errors.Is(err, pkgerrors.ErrForbidden):
		response.Forbidden(c, 10003, err.Error())
	case errors.Is(err, pkgerrors.ErrBackpressure):
		response.ServiceUnavailable(c, 10503, err.Error())
	default:
		response.InternalError(c)
	}
}
