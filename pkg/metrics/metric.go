package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry holds every amodpower collector, served on /metrics and dumped by the cli.
	Registry = prometheus.NewRegistry()

	// StageDuration seconds spent per pipeline stage: routes, assemble, solve.
	StageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "amodpower_stage_duration_seconds", Help: "Pipeline stage duration in seconds.", Buckets: prometheus.ExponentialBuckets(0.001, 4, 10)},
		[]string{"stage"},
	)
	// LPSize last assembled problem size by dimension: variables, equality_rows, inequality_rows, nonzeros, dead_variables.
	LPSize = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Name: "amodpower_lp_size", Help: "Size of the last assembled linear program."},
		[]string{"dimension"},
	)
	// Solves counts solver outcomes by status.
	Solves = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "amodpower_solves_total", Help: "Solver runs by status."},
		[]string{"status"},
	)
	// RelaxedDemand passenger demand left unserved by the last relaxed solve.
	RelaxedDemand = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "amodpower_relaxed_demand", Help: "Demand served by relaxation variables in the last solve."},
	)
	// SuspiciousRoutes charge-feasible routes crossing a zero-capacity road link.
	SuspiciousRoutes = prometheus.NewGauge(
		prometheus.GaugeOpts{Name: "amodpower_suspicious_routes", Help: "Routes that use a zero-capacity road link."},
	)

	// HTTPRequests counts requests by method, route template and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "route", "status"},
	)
	// HTTPDuration records request durations in seconds
	HTTPDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"method", "route", "status"},
	)
)

var regOnce sync.Once

// RegisterDefault registers every collector on Registry once.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(StageDuration)
		Registry.MustRegister(LPSize)
		Registry.MustRegister(Solves)
		Registry.MustRegister(RelaxedDemand)
		Registry.MustRegister(SuspiciousRoutes)
		Registry.MustRegister(HTTPRequests)
		Registry.MustRegister(HTTPDuration)
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

// WriteTextfile dumps Registry in the text exposition format, for the node exporter textfile collector.
func WriteTextfile(filename string) error {
	RegisterDefault()
	return prometheus.WriteToTextfile(filename, Registry)
}
