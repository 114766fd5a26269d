package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_created_total",
		Help: "Total number of orders created",
	})

	OrdersFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_failed_total",
		Help: "Total number of rejected order requests",
	}, []string{"reason"})

	ReturnsRequestedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "returns_requested_total",
		Help: "Total number of returns submitted",
	})

	ReturnsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_failed_total",
		Help: "Total number of rejected return requests",
	}, []string{"reason"})

	ReturnsResolvedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "returns_resolved_total",
		Help: "Total number of returns resolved, by terminal status",
	}, []string{"status"})

	ReturnResolveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "return_resolve_latency_seconds",
		Help:    "Latency of return resolution transactions",
		Buckets: prometheus.DefBuckets,
	})

	LedgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ledger_entries_total",
		Help: "Total number of ledger entries appended, by type",
	}, []string{"type"})

	SideEffectsFailedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "side_effects_failed_total",
		Help: "Total number of deferred side effects that failed after commit",
	}, []string{"label"})

	ProductCacheHitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_cache_hits_total",
		Help: "Total number of product cache hits",
	})

	ProductCacheMissesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "product_cache_misses_total",
		Help: "Total number of product cache misses",
	})

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
