package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ReservationsSubmittedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_submitted_total",
		Help: "Total number of reservation requests accepted at intake",
	})

	ReservationsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_rejected_total",
		Help: "Total number of reservation requests rejected at intake",
	}, []string{"reason"})

	ReservationsConfirmedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_confirmed_total",
		Help: "Total number of reservations confirmed by the consumer",
	})

	ReservationsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "reservations_failed_total",
		Help: "Total number of reservation requests resolved as failed",
	}, []string{"reason"})

	ReservationsRedeliveredTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "reservations_redelivered_total",
		Help: "Total number of redelivered messages skipped as already terminal",
	})

	PoisonMessagesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "poison_messages_total",
		Help: "Total number of unprocessable messages dropped from the queue",
	})

	InvariantViolationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "invariant_violations_total",
		Help: "Total number of detected terminal-state or overlap invariant violations",
	})

	ResolutionLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "reservation_resolution_latency_seconds",
		Help:    "Latency of consumer-side reservation resolution",
		Buckets: prometheus.DefBuckets,
	})

	QuotesCalculatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "quotes_calculated_total",
		Help: "Total number of price quotes calculated",
	})

	CatalogCacheHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_cache_total",
		Help: "Catalog lookup cache hits and misses",
	}, []string{"result"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
