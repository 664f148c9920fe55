package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics 维护生命周期子系统的运行指标
type Metrics struct {
	Conversions          *prometheus.CounterVec
	Transitions          *prometheus.CounterVec
	SchedulerTicks       *prometheus.CounterVec
	NotificationsCreated *prometheus.CounterVec
	DeliveryFailures     prometheus.Counter
	LiveConnections      prometheus.Gauge
}

// New 创建指标并注册到 reg；reg 为 nil 时不注册（测试用）
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Conversions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maintenance",
			Name:      "conversions_total",
			Help:      "Schedule to service-order conversions by outcome.",
		}, []string{"outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maintenance",
			Name:      "schedule_transitions_total",
			Help:      "Successful schedule status transitions by target status.",
		}, []string{"to"}),
		SchedulerTicks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maintenance",
			Name:      "scheduler_ticks_total",
			Help:      "Notification scheduler scans by result.",
		}, []string{"result"}),
		NotificationsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "maintenance",
			Name:      "notifications_created_total",
			Help:      "Notifications persisted by type.",
		}, []string{"type"}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "maintenance",
			Name:      "notification_delivery_failures_total",
			Help:      "Per-session push failures.",
		}),
		LiveConnections: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "maintenance",
			Name:      "realtime_live_connections",
			Help:      "Currently registered realtime sessions.",
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.Conversions,
			m.Transitions,
			m.SchedulerTicks,
			m.NotificationsCreated,
			m.DeliveryFailures,
			m.LiveConnections,
		)
	}
	return m
}

// Nop 不注册任何 Registry 的指标实例
func Nop() *Metrics {
	return New(nil)
}
