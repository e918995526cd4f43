// Package metrics holds the Prometheus collectors of the exchange service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultLocked   = "locked"
	ResultFailed   = "failed"
)

type Metrics struct {
	registry *prometheus.Registry

	transactionsCreated prometheus.Counter
	approvals           prometheus.Counter
	verifications       *prometheus.CounterVec
	settlements         *prometheus.CounterVec
	pointsAwarded       *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		transactionsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camptrade_transactions_created_total",
			Help: "Exchange transactions requested by buyers.",
		}),
		approvals: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camptrade_transactions_approved_total",
			Help: "Exchange transactions approved by sellers.",
		}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camptrade_verifications_total",
			Help: "Hand-off verification attempts by code kind and result.",
		}, []string{"kind", "result"}),
		settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camptrade_settlements_total",
			Help: "Settlement runs by result.",
		}, []string{"result"}),
		pointsAwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camptrade_reward_points_awarded_total",
			Help: "Reward points credited by role.",
		}, []string{"role"}),
	}

	m.registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		m.transactionsCreated,
		m.approvals,
		m.verifications,
		m.settlements,
		m.pointsAwarded,
	)

	return m
}

func (m *Metrics) TransactionCreated() {
	m.transactionsCreated.Inc()
}

func (m *Metrics) TransactionApproved() {
	m.approvals.Inc()
}

func (m *Metrics) Verification(kind, result string) {
	m.verifications.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) Settlement(result string) {
	m.settlements.WithLabelValues(result).Inc()
}

func (m *Metrics) PointsAwarded(role string, points int64) {
	m.pointsAwarded.WithLabelValues(role).Add(float64(points))
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
