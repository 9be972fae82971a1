// Package metrics holds the Prometheus collectors shared across the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ProviderRequests counts calls to external providers by outcome
	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchduo",
		Name:      "provider_requests_total",
		Help:      "External provider calls by provider and result.",
	}, []string{"provider", "result"})

	// EnrichmentSteps counts enrichment subtasks by step and outcome
	EnrichmentSteps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchduo",
		Name:      "enrichment_steps_total",
		Help:      "Enrichment subtasks by step and outcome.",
	}, []string{"step", "outcome"})

	// PersistenceFailures counts store writes that failed after an optimistic update
	PersistenceFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchduo",
		Name:      "persistence_failures_total",
		Help:      "Failed store writes by operation.",
	}, []string{"op"})

	// SearchCache counts search cache lookups
	SearchCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "watchduo",
		Name:      "search_cache_total",
		Help:      "Search cache lookups by result.",
	}, []string{"result"})
)

// ObserveProvider records one provider call
func ObserveProvider(provider string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	ProviderRequests.WithLabelValues(provider, result).Inc()
}
