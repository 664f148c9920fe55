package errors

import (
	"errors"
	"fmt"
)

// ── 错误分类 ──
// 业务层的具体错误均包装其中之一，Handler 通过 errors.Is 映射 HTTP 状态码。

var (
	// ErrNotFound 引用的排程/工单/设备/用户不存在
	ErrNotFound = errors.New("资源不存在")
	// ErrInvalidTransition 状态机不允许的迁移
	ErrInvalidTransition = errors.New("非法的状态迁移")
	// ErrInvalidState 当前状态不满足操作前置条件
	ErrInvalidState = errors.New("当前状态不允许此操作")
	// ErrAlreadyConverted 排程已生成工单
	ErrAlreadyConverted = errors.New("排程已转换为工单")
	// ErrValidation 输入格式错误，如未知的枚举字面量
	ErrValidation = errors.New("参数校验失败")
	// ErrBackpressure 数据库连接池饱和
	ErrBackpressure = errors.New("服务繁忙，请稍后重试")
	// ErrForbidden 操作者无权访问该资源
	ErrForbidden = errors.New("无权操作该资源")
)

// ErrOptimisticLock 乐观锁冲突：记录已被其他操作修改
var ErrOptimisticLock = errors.New("数据已被其他操作修改，请刷新后重试")

// Validationf 构造包装 ErrValidation 的错误
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// ConflictError 转换冲突，携带已存在的工单信息，便于客户端提示“已转换，见工单 X”
type ConflictError struct {
	ScheduleID     int64
	ServiceOrderID int64
	OrderNumber    string
}

func (e *ConflictError) Error() string {
	if e.OrderNumber == "" {
		return fmt.Sprintf("排程 %d 已转换为工单", e.ScheduleID)
	}
	return fmt.Sprintf("排程 %d 已转换为工单 %s", e.ScheduleID, e.OrderNumber)
}

// Unwrap 使 errors.Is(err, ErrAlreadyConverted) 成立
func (e *ConflictError) Unwrap() error { return ErrAlreadyConverted }
