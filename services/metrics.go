package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts ledger activity. A nil Registerer builds unregistered
// collectors, which is what tests use.
type Metrics struct {
	PointsCredited       prometheus.Counter
	Redemptions          *prometheus.CounterVec
	HistoryWriteFailures prometheus.Counter
	Classifications      *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PointsCredited: f.NewCounter(prometheus.CounterOpts{
			Name: "rewards_points_credited_total",
			Help: "Points credited to accounts.",
		}),
		Redemptions: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_redemptions_total",
			Help: "Redemption attempts by outcome.",
		}, []string{"outcome"}),
		HistoryWriteFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "rewards_history_write_failures_total",
			Help: "Ledger events that could not be written.",
		}),
		Classifications: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rewards_classifications_total",
			Help: "Scan classifications by predicted label.",
		}, []string{"label"}),
	}
}

func metricsOrDefault(m *Metrics) *Metrics {
	if m == nil {
		return NewMetrics(nil)
	}
	return m
}
