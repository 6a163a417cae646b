package observability

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups all Prometheus instruments used by the service.
type Metrics struct {
	Actions          *prometheus.CounterVec
	NarrationLatency prometheus.Histogram
	TurnTimeouts     prometheus.Counter
	TurnViolations   prometheus.Counter
	ConnectedClients prometheus.Gauge
	Broadcasts       *prometheus.CounterVec
}

func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Actions: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actions_total",
			Help:      "Action events by outcome.",
		}, []string{"outcome"}),
		NarrationLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "narration_latency_seconds",
			Help:      "Latency of narration service calls in seconds.",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60},
		}),
		TurnTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_timeouts_total",
			Help:      "Turns skipped by the timeout supervisor.",
		}),
		TurnViolations: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turn_violations_total",
			Help:      "Actions rejected for acting out of turn.",
		}),
		ConnectedClients: promauto.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "connected_clients",
			Help:      "Clients currently connected to the game channel.",
		}),
		Broadcasts: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcasts_total",
			Help:      "Outbound game channel broadcasts by message type.",
		}, []string{"type"}),
	}
}

func (m *Metrics) ObserveNarrationLatency(d time.Duration) {
	m.NarrationLatency.Observe(d.Seconds())
}

func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
