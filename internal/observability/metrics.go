package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce           sync.Once
	requestsTotal          *prometheus.CounterVec
	latencySeconds         *prometheus.HistogramVec
	errorsTotal            *prometheus.CounterVec
	statisticsComputations *prometheus.CounterVec
	statisticsCacheLookups *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		requestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		latencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "moderation_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		statisticsComputations = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_statistics_computations_total",
			Help: "Statistics summaries computed from stored marking scores.",
		}, []string{"formula", "result"})

		statisticsCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "moderation_statistics_cache_lookups_total",
			Help: "Statistics cache lookups by outcome.",
		}, []string{"outcome"})

		prometheus.MustRegister(requestsTotal, latencySeconds, errorsTotal, statisticsComputations, statisticsCacheLookups)
	})
}

// Requests exposes the request counter.
func Requests() *prometheus.CounterVec {
	RegisterMetrics()
	return requestsTotal
}

// Latency exposes the request latency histogram.
func Latency() *prometheus.HistogramVec {
	RegisterMetrics()
	return latencySeconds
}

// Errors exposes the counter for error responses.
func Errors() *prometheus.CounterVec {
	RegisterMetrics()
	return errorsTotal
}

// StatisticsComputations counts engine runs labelled by formula and result.
func StatisticsComputations() *prometheus.CounterVec {
	RegisterMetrics()
	return statisticsComputations
}

// StatisticsCacheLookups counts cache hits and misses.
func StatisticsCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return statisticsCacheLookups
}
