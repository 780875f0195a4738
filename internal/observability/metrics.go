package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec
	verdictsTotal     *prometheus.CounterVec
	verdictCacheTotal *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used for API observability.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsguard_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsguard_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsguard_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		verdictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsguard_verdicts_total",
			Help: "Number of verdicts produced, by label.",
		}, []string{"label"})

		verdictCacheTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsguard_verdict_cache_total",
			Help: "Verdict cache lookups by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, verdictsTotal, verdictCacheTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Verdicts exposes the counter for produced verdicts.
func Verdicts() *prometheus.CounterVec {
	RegisterMetrics()
	return verdictsTotal
}

// VerdictCache exposes the counter for verdict cache lookups.
func VerdictCache() *prometheus.CounterVec {
	RegisterMetrics()
	return verdictCacheTotal
}
