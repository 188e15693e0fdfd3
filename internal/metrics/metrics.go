// Package metrics exposes Prometheus instrumentation for the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder records bridge-level metrics.
type Recorder struct {
	requestsTotal     *prometheus.CounterVec
	minerQueriesTotal *prometheus.CounterVec
	queryDuration     prometheus.Histogram
	activeMiners      prometheus.Gauge
}

// New creates a Recorder registered on reg. A nil reg uses the default
// registerer.
func New(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_requests_total",
				Help: "Total protocol requests handled, by action and status",
			},
			[]string{"action", "status"},
		),
		minerQueriesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "bridge_miner_queries_total",
				Help: "Total per-miner prediction sub-calls, by result",
			},
			[]string{"result"},
		),
		queryDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "bridge_query_duration_seconds",
				Help:    "Duration of fan-out prediction queries in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		activeMiners: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "bridge_active_miners",
				Help: "Active miners in the last roster snapshot",
			},
		),
	}
}

// RecordRequest records one handled protocol request.
func (r *Recorder) RecordRequest(action string, success bool) {
	status := "ok"
	if !success {
		status = "error"
	}
	r.requestsTotal.WithLabelValues(action, status).Inc()
}

// RecordMinerQuery records one per-miner sub-call outcome.
func (r *Recorder) RecordMinerQuery(ok bool) {
	result := "ok"
	if !ok {
		result = "unreachable"
	}
	r.minerQueriesTotal.WithLabelValues(result).Inc()
}

// RecordQueryDuration records the wall time of one fan-out query.
func (r *Recorder) RecordQueryDuration(seconds float64) {
	r.queryDuration.Observe(seconds)
}

// SetActiveMiners records the active miner count from a roster refresh.
func (r *Recorder) SetActiveMiners(n int) {
	r.activeMiners.Set(float64(n))
}

// Handler returns the HTTP handler serving the default gatherer.
func Handler() http.Handler {
	return promhttp.Handler()
}
