package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

var (
	// Registry is the dedicated Prometheus registry for the service
	Registry = prometheus.NewRegistry()

	// PollTicks counts viewport poll ticks by outcome (ok, error, stale)
	PollTicks = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleet_poll_ticks_total", Help: "Viewport poll ticks by outcome."},
		[]string{"outcome"},
	)
	// FetchDuration records fleet-query latencies in seconds
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "fleet_fetch_duration_seconds", Help: "Fleet-query fetch duration in seconds.", Buckets: prometheus.DefBuckets},
		[]string{"kind"},
	)
	// RouteEstimates counts per-vehicle route computations by outcome
	RouteEstimates = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "fleet_route_estimates_total", Help: "Route computations by outcome."},
		[]string{"outcome"},
	)
	// RouteDuration records route-provider latencies in seconds
	RouteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{Name: "fleet_route_duration_seconds", Help: "Route-provider call duration in seconds.", Buckets: prometheus.DefBuckets},
	)
	// HTTPRequests counts API requests by method, path, and status
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests."},
		[]string{"method", "path", "status"},
	)
)

// RegisterDefault registers collectors to the service registry.
func RegisterDefault() {
	regOnce.Do(func() {
		Registry.MustRegister(PollTicks)
		Registry.MustRegister(FetchDuration)
		Registry.MustRegister(RouteEstimates)
		Registry.MustRegister(RouteDuration)
		Registry.MustRegister(HTTPRequests)
		// Go/process collectors on our registry
		Registry.MustRegister(collectors.NewGoCollector())
		Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	})
}

var regOnce sync.Once
