package model

import (
	"strings"

	pkgerrors "maintenance-ops/backend/pkg/errors"
)

// ════════════════════════════════════════════════════════════
// 排程状态
// ════════════════════════════════════════════════════════════

// ScheduleStatus 排程状态（存储值即对外字面量，不可更改）
type ScheduleStatus string

const (
	ScheduleScheduled             ScheduleStatus = "SCHEDULED"
	ScheduleInProgress            ScheduleStatus = "IN_PROGRESS"
	ScheduleCompleted             ScheduleStatus = "COMPLETED"
	ScheduleCancelled             ScheduleStatus = "CANCELLED"
	ScheduleServiceOrderGenerated ScheduleStatus = "SERVICE_ORDER_GENERATED"
)

// 历史数据与旧版前端中出现过的写法 → 规范值
var scheduleStatusAliases = map[string]ScheduleStatus{
	"scheduled":               ScheduleScheduled,
	"agendado":                ScheduleScheduled,
	"agendada":                ScheduleScheduled,
	"pendente":                ScheduleScheduled,
	"in_progress":             ScheduleInProgress,
	"em_andamento":            ScheduleInProgress,
	"em_execucao":             ScheduleInProgress,
	"completed":               ScheduleCompleted,
	"concluido":               ScheduleCompleted,
	"concluida":               ScheduleCompleted,
	"cancelled":               ScheduleCancelled,
	"canceled":                ScheduleCancelled,
	"cancelado":               ScheduleCancelled,
	"cancelada":               ScheduleCancelled,
	"service_order_generated": ScheduleServiceOrderGenerated,
	"os_gerada":               ScheduleServiceOrderGenerated,
	"os_gerado":               ScheduleServiceOrderGenerated,
}

// 规范值 → 旧版字面量
var scheduleLegacyLabels = map[ScheduleStatus]string{
	ScheduleScheduled:             "agendado",
	ScheduleInProgress:            "em_andamento",
	ScheduleCompleted:             "concluido",
	ScheduleCancelled:             "cancelado",
	ScheduleServiceOrderGenerated: "os_gerada",
}

// ParseScheduleStatus 在输入边界把任意大小写/语言的状态字面量归一化
func ParseScheduleStatus(raw string) (ScheduleStatus, error) {
	if st, ok := scheduleStatusAliases[normalizeLiteral(raw)]; ok {
		return st, nil
	}
	return "", pkgerrors.Validationf("未知的排程状态 %q", raw)
}

// LegacyLabel 旧版系统使用的字面量
func (s ScheduleStatus) LegacyLabel() string { return scheduleLegacyLabels[s] }

// IsTerminal 是否为终态
func (s ScheduleStatus) IsTerminal() bool {
	return s == ScheduleCancelled || s == ScheduleServiceOrderGenerated
}

// scheduleTransitions 状态迁移表：from → to → 审计动作
var scheduleTransitions = map[ScheduleStatus]map[ScheduleStatus]AuditAction{
	ScheduleScheduled: {
		ScheduleInProgress: ActionScheduleStarted,
		ScheduleCancelled:  ActionScheduleCancelled,
	},
	ScheduleInProgress: {
		ScheduleCompleted: ActionScheduleCompleted,
		ScheduleCancelled: ActionScheduleCancelled,
	},
	ScheduleCompleted: {
		ScheduleServiceOrderGenerated: ActionServiceOrderGenerated,
	},
}

// ScheduleTransitionAction 返回迁移对应的审计动作；边不存在时 ok=false
func ScheduleTransitionAction(from, to ScheduleStatus) (AuditAction, bool) {
	action, ok := scheduleTransitions[from][to]
	return action, ok
}

// ════════════════════════════════════════════════════════════
// 工单状态
// ════════════════════════════════════════════════════════════

// ServiceOrderStatus 工单状态
type ServiceOrderStatus string

const (
	OrderOpen             ServiceOrderStatus = "ABERTA"
	OrderInProgress       ServiceOrderStatus = "EM_ANDAMENTO"
	OrderAwaitingApproval ServiceOrderStatus = "AGUARDANDO_APROVACAO"
	OrderApproved         ServiceOrderStatus = "APROVADA"
	OrderRejected         ServiceOrderStatus = "REJEITADA"
	OrderCompleted        ServiceOrderStatus = "CONCLUIDA"
	OrderCancelled        ServiceOrderStatus = "CANCELADA"
)

var orderStatusAliases = map[string]ServiceOrderStatus{
	"aberta":               OrderOpen,
	"aberto":               OrderOpen,
	"open":                 OrderOpen,
	"em_andamento":         OrderInProgress,
	"in_progress":          OrderInProgress,
	"aguardando_aprovacao": OrderAwaitingApproval,
	"awaiting_approval":    OrderAwaitingApproval,
	"pending_approval":     OrderAwaitingApproval,
	"aprovada":             OrderApproved,
	"approved":             OrderApproved,
	"rejeitada":            OrderRejected,
	"rejected":             OrderRejected,
	"concluida":            OrderCompleted,
	"concluido":            OrderCompleted,
	"completed":            OrderCompleted,
	"cancelada":            OrderCancelled,
	"cancelado":            OrderCancelled,
	"cancelled":            OrderCancelled,
	"canceled":             OrderCancelled,
}

// ParseServiceOrderStatus 归一化工单状态字面量
func ParseServiceOrderStatus(raw string) (ServiceOrderStatus, error) {
	if st, ok := orderStatusAliases[normalizeLiteral(raw)]; ok {
		return st, nil
	}
	return "", pkgerrors.Validationf("未知的工单状态 %q", raw)
}

var orderTransitions = map[ServiceOrderStatus][]ServiceOrderStatus{
	OrderOpen:             {OrderInProgress, OrderCancelled},
	OrderInProgress:       {OrderAwaitingApproval, OrderCompleted, OrderCancelled},
	OrderAwaitingApproval: {OrderApproved, OrderRejected},
	OrderApproved:         {OrderInProgress, OrderCompleted},
	OrderRejected:         {OrderInProgress, OrderCancelled},
}

// CanTransitionOrder 工单迁移是否合法
func CanTransitionOrder(from, to ServiceOrderStatus) bool {
	for _, next := range orderTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// OrderTransitionAction 工单迁移需要记录的审计动作，仅开工与完工两条边有对应动作
func OrderTransitionAction(from, to ServiceOrderStatus) (AuditAction, bool) {
	switch {
	case from == OrderOpen && to == OrderInProgress:
		return ActionServiceOrderStarted, true
	case to == OrderCompleted:
		return ActionServiceOrderCompleted, true
	}
	return "", false
}

// ════════════════════════════════════════════════════════════
// 优先级
// ════════════════════════════════════════════════════════════

// Priority 优先级
type Priority string

const (
	PriorityLow      Priority = "LOW"
	PriorityMedium   Priority = "MEDIUM"
	PriorityHigh     Priority = "HIGH"
	PriorityCritical Priority = "CRITICAL"
)

var priorityAliases = map[string]Priority{
	"low":      PriorityLow,
	"baixa":    PriorityLow,
	"medium":   PriorityMedium,
	"media":    PriorityMedium,
	"normal":   PriorityMedium,
	"high":     PriorityHigh,
	"alta":     PriorityHigh,
	"critical": PriorityCritical,
	"critica":  PriorityCritical,
	"urgente":  PriorityCritical,
}

// ParsePriority 归一化优先级，空串取 MEDIUM
func ParsePriority(raw string) (Priority, error) {
	if strings.TrimSpace(raw) == "" {
		return PriorityMedium, nil
	}
	if p, ok := priorityAliases[normalizeLiteral(raw)]; ok {
		return p, nil
	}
	return "", pkgerrors.Validationf("未知的优先级 %q", raw)
}

// normalizeLiteral 小写、去空白、空格和连字符统一为下划线、去掉常见重音
func normalizeLiteral(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.NewReplacer(" ", "_", "-", "_",
		"á", "a", "à", "a", "ã", "a", "â", "a",
		"é", "e", "ê", "e", "í", "i",
		"ó", "o", "õ", "o", "ô", "o", "ú", "u", "ç", "c",
	).Replace(s)
	return s
}
