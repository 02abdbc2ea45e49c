package utils

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reel_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	// KarmaOperations counts ledger operations by kind and outcome.
	KarmaOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_karma_operations_total",
		Help: "Karma ledger operations by kind and result",
	}, []string{"operation", "result"})

	// KarmaPointsMoved sums points credited and debited.
	KarmaPointsMoved = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reel_karma_points_total",
		Help: "Karma points moved, by direction and transaction kind",
	}, []string{"direction", "kind"})
)

// ObserveKarma records the outcome of one ledger operation.
func ObserveKarma(operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	KarmaOperations.WithLabelValues(operation, result).Inc()
}
