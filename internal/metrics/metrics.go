package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "retailhub"

// Recorder holds the counters for trash lifecycle operations and HTTP traffic.
type Recorder struct {
	operations  *prometheus.CounterVec
	purged      *prometheus.CounterVec
	requests    *prometheus.CounterVec
	reqDuration *prometheus.HistogramVec
}

// New builds the collectors and registers them with reg. A nil reg leaves
// them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		operations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "lifecycle_operations_total",
				Help:      "Soft delete, restore, purge and reset operations by kind and outcome",
			},
			[]string{"op", "kind", "outcome"},
		),
		purged: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "purged_records_total",
				Help:      "Trashed records permanently removed by the retention sweep",
			},
			[]string{"kind"},
		),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "HTTP requests by method, route and status class",
			},
			[]string{"method", "route", "status"},
		),
		reqDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request latency",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
	}
	if reg != nil {
		reg.MustRegister(r.operations, r.purged, r.requests, r.reqDuration)
	}
	return r
}

// Operation counts one lifecycle call. A nil Recorder is a no-op.
func (r *Recorder) Operation(op string, kind string, outcome string) {
	if r == nil {
		return
	}
	r.operations.WithLabelValues(op, kind, outcome).Inc()
}

func (r *Recorder) Purged(kind string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.purged.WithLabelValues(kind).Add(float64(n))
}

func (r *Recorder) Request(method string, route string, status string, seconds float64) {
	if r == nil {
		return
	}
	r.requests.WithLabelValues(method, route, status).Inc()
	r.reqDuration.WithLabelValues(method, route).Observe(seconds)
}
