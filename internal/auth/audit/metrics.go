package audit

import (
	"context"

	"github.com/aussiebroadwan/adminauth/internal/auth/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// MetricsSink counts events by action and status, and the events the
// emitter had to drop.
type MetricsSink struct {
	events  *prometheus.CounterVec
	dropped *prometheus.CounterVec
}

// NewMetricsSink registers adminauth_auth_events_total and
// adminauth_audit_events_dropped_total on reg.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	events := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "auth_events_total",
			Help:      "Authentication events by action and status.",
		},
		[]string{"action", "status"},
	)
	dropped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "adminauth",
			Name:      "audit_events_dropped_total",
			Help:      "Audit events dropped because the delivery queue was full.",
		},
		[]string{"action"},
	)
	for _, c := range []prometheus.Collector{events, dropped} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return &MetricsSink{events: events, dropped: dropped}, nil
}

func (m *MetricsSink) Write(_ context.Context, e domain.AuditEvent) error {
	m.events.WithLabelValues(e.Action, e.Status).Inc()
	return nil
}

// Dropped counts an event the emitter could not queue. It fits
// EmitterOptions.OnDrop.
func (m *MetricsSink) Dropped(e domain.AuditEvent) {
	m.dropped.WithLabelValues(e.Action).Inc()
}
