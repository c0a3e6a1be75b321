package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service.
	Registry = prometheus.NewRegistry()

	// HTTPRequests counts requests by method, route pattern and status.
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "path", "status"},
	)

	// OperationDuration tracks obs.Time spans by operation and outcome.
	OperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "operation_duration_seconds", Help: "Duration of timed internal operations.", Buckets: prometheus.DefBuckets},
		[]string{"op", "outcome"},
	)

	// OracleCalls counts distance oracle lookups by source (remote, cache) and outcome.
	OracleCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "oracle_calls_total", Help: "Distance oracle lookups."},
		[]string{"source", "outcome"},
	)

	// Variants counts built route variants by outcome (ok, failed).
	Variants = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "route_variants_total", Help: "Route variants built."},
		[]string{"outcome"},
	)

	// SegmentTransitions counts segment state changes by target state.
	SegmentTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "segment_transitions_total", Help: "Segment lifecycle transitions."},
		[]string{"to"},
	)

	// Notifications counts outbound best-effort notifications by target and outcome.
	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "notifications_total", Help: "Outbound notifications."},
		[]string{"target", "outcome"},
	)
)

var regOnce sync.Once

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(OperationDuration)
		Registry.MustRegister(OracleCalls)
		Registry.MustRegister(Variants)
		Registry.MustRegister(SegmentTransitions)
		Registry.MustRegister(Notifications)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

func ObserveOperation(op string, d time.Duration, err error) {
	OperationDuration.WithLabelValues(op, Outcome(err)).Observe(d.Seconds())
}
