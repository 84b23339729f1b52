// Package observability provides the service's Prometheus metrics.
package observability

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Battlator Prometheus metrics.
type Metrics struct {
	// Planner metrics
	PlanRequests  prometheus.Counter
	PlanDuration  prometheus.Histogram
	PathsReturned prometheus.Histogram

	// Threat metrics
	EnemiesAdmitted   *prometheus.CounterVec
	ThreatAreasActive prometheus.Gauge

	// Mission metrics
	MissionsStarted prometheus.Counter
	MissionsStopped prometheus.Counter

	// WebSocket metrics
	WebSocketConnections prometheus.Gauge
	PositionsBroadcast   prometheus.Counter
	BroadcastErrors      prometheus.Counter
}

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// GetMetrics returns the process-wide metrics, registering them on first use.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			PlanRequests: promauto.NewCounter(prometheus.CounterOpts{
				Name: "battlator_plan_requests_total",
				Help: "Route planning requests received.",
			}),
			PlanDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "battlator_plan_duration_seconds",
				Help:    "Wall time of a full multi-path planning call.",
				Buckets: prometheus.DefBuckets,
			}),
			PathsReturned: promauto.NewHistogram(prometheus.HistogramOpts{
				Name:    "battlator_paths_returned",
				Help:    "Distinct paths returned per planning call.",
				Buckets: []float64{0, 1, 2, 3, 4, 5},
			}),
			EnemiesAdmitted: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "battlator_enemies_admitted_total",
				Help: "Admitted enemy reports by unit type.",
			}, []string{"type"}),
			ThreatAreasActive: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "battlator_threat_areas_active",
				Help: "Threat polygons retained after merging.",
			}),
			MissionsStarted: promauto.NewCounter(prometheus.CounterOpts{
				Name: "battlator_missions_started_total",
				Help: "Missions started or resumed.",
			}),
			MissionsStopped: promauto.NewCounter(prometheus.CounterOpts{
				Name: "battlator_missions_stopped_total",
				Help: "Mission stop requests.",
			}),
			WebSocketConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "battlator_websocket_connections",
				Help: "Open position WebSocket connections.",
			}),
			PositionsBroadcast: promauto.NewCounter(prometheus.CounterOpts{
				Name: "battlator_positions_broadcast_total",
				Help: "Blue-force positions pushed to WebSocket clients.",
			}),
			BroadcastErrors: promauto.NewCounter(prometheus.CounterOpts{
				Name: "battlator_broadcast_errors_total",
				Help: "WebSocket sends that failed and dropped the client.",
			}),
		}
	})
	return globalMetrics
}

// Handler returns the /metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
