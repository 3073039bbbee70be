package observability

import (
	"context"
	"net/http"

	"github.com/YOKOPOKE/yokopoke-sub000/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "yokopoke"

// Metrics holds the bot's collectors.
type Metrics struct {
	registry *prometheus.Registry

	messages     *prometheus.CounterVec
	drops        *prometheus.CounterVec
	turns        *prometheus.CounterVec
	turnDuration prometheus.Histogram
	modeChanges  *prometheus.CounterVec
	orders       *prometheus.CounterVec
	orderTotal   prometheus.Counter
	reclaimed    prometheus.Counter
	sendFailures prometheus.Counter
}

// NewMetrics creates and registers every collector, plus the Go runtime and
// process collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_received_total",
			Help:      "Inbound messages accepted for processing, by kind.",
		}, []string{"kind"}),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "messages_dropped_total",
			Help:      "Inbound messages discarded, by reason.",
		}, []string{"reason"}),
		turns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Processing passes, by mode and result.",
		}, []string{"mode", "result"}),
		turnDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_duration_seconds",
			Help:      "Duration of a processing pass, debounce excluded.",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		modeChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Conversation mode transitions.",
		}, []string{"from", "to"}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_committed_total",
			Help:      "Orders inserted, by status.",
		}, []string{"status"}),
		orderTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_revenue_pesos_total",
			Help:      "Sum of committed order totals in pesos.",
		}),
		reclaimed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_locks_reclaimed_total",
			Help:      "Processing locks force-acquired after going stale.",
		}),
		sendFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "send_failures_total",
			Help:      "Outbound messages that failed after retries.",
		}),
	}
	m.registry.MustRegister(
		m.messages, m.drops, m.turns, m.turnDuration, m.modeChanges,
		m.orders, m.orderTotal, m.reclaimed, m.sendFailures,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Hooks returns lifecycle hooks that record into m.
func (m *Metrics) Hooks() domain.Hooks {
	return domain.Hooks{
		OnMessage: func(_ context.Context, kind domain.MessageKind) {
			m.messages.WithLabelValues(string(kind)).Inc()
		},
		OnDrop: func(_ context.Context, e *domain.DropEvent) {
			m.drops.WithLabelValues(string(e.Reason)).Inc()
		},
		OnTurn: func(_ context.Context, e *domain.TurnEvent) {
			result := "ok"
			if e.Err != nil {
				result = "error"
			}
			m.turns.WithLabelValues(string(e.Mode), result).Inc()
			m.turnDuration.Observe(e.Duration.Seconds())
		},
		OnModeChange: func(_ context.Context, e *domain.ModeEvent) {
			m.modeChanges.WithLabelValues(string(e.From), string(e.To)).Inc()
		},
		OnOrderCommitted: func(_ context.Context, e *domain.OrderEvent) {
			m.orders.WithLabelValues(string(e.Status)).Inc()
			m.orderTotal.Add(float64(e.Total) / 100)
		},
		OnLockReclaimed: func(context.Context, *domain.LockEvent) {
			m.reclaimed.Inc()
		},
		OnSendFailure: func(context.Context, error) {
			m.sendFailures.Inc()
		},
	}
}
