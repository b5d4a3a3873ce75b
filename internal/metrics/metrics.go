package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomfinder",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint and status class.",
		},
		[]string{"endpoint", "status"},
	)

	queryResults = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "roomfinder",
			Name:      "query_results",
			Help:      "Number of records returned per successful query.",
			Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100, 250},
		},
		[]string{"endpoint"},
	)

	storeErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomfinder",
			Name:      "store_errors_total",
			Help:      "Count of interval store failures by endpoint.",
		},
		[]string{"endpoint"},
	)

	cacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "roomfinder",
			Name:      "cache_lookups_total",
			Help:      "Count of Redis cache lookups by result.",
		},
		[]string{"result"},
	)

	staleResponses = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "roomfinder",
			Name:      "client_stale_responses_total",
			Help:      "Count of client responses discarded because a newer query superseded them.",
		},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, queryResults, storeErrors, cacheLookups, staleResponses)
	})
}

func IncHTTP(endpoint, status string) {
	httpRequests.WithLabelValues(endpoint, status).Inc()
}

func ObserveResults(endpoint string, n int) {
	queryResults.WithLabelValues(endpoint).Observe(float64(n))
}

func IncStoreError(endpoint string) {
	storeErrors.WithLabelValues(endpoint).Inc()
}

// IncCache records a cache lookup; result is "hit", "miss" or "error".
func IncCache(result string) {
	cacheLookups.WithLabelValues(result).Inc()
}

func IncStale() {
	staleResponses.Inc()
}
