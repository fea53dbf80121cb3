package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Number of handled HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Time taken to handle HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	Purchases = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_purchases_total",
			Help: "Purchase sagas by outcome",
		},
		[]string{"outcome"},
	)

	Compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "saga_compensations_total",
			Help: "Compensating actions run by the purchase saga",
		},
		[]string{"step", "result"},
	)

	LedgerMutations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "privilege_ledger_mutations_total",
			Help: "Balance mutations applied by the privilege ledger",
		},
		[]string{"operation", "applied"},
	)
)

var registerOnce sync.Once

func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(HTTPRequests, HTTPRequestDuration, Purchases, Compensations, LedgerMutations)
	})
}
