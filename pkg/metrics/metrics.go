// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package metrics exposes the Prometheus series backing C0's
// admin/metrics() surface: request volume and latency per tier, failover
// events, resident model count, and conversation memory pressure.
//
// Within this module the service records requests and all-providers-failed
// outcomes, and the failover manager records hops. Nothing in this module
// calls SetResidentModels, RecordMemoryFreed, SetConversationsActive or
// RecordComplexity, so those four series stay at zero unless an embedding
// program calls them.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestsTotal counts every generate() call by tier, the provider
	// that ultimately served it, and whether it succeeded.
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corerouter_requests_total",
		Help: "Total generate() requests by tier, provider and outcome.",
	}, []string{"tier", "provider", "status"})

	// GenerateDuration is the wall-clock time of a generate() call,
	// from tier selection through the provider's response.
	GenerateDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corerouter_generate_duration_seconds",
		Help:    "generate() latency by tier and provider.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tier", "provider"})

	// FailoverTotal counts every hop the failover manager takes from
	// one provider to the next within a single request.
	FailoverTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "corerouter_failover_total",
		Help: "Failover hops from one provider to the next.",
	}, []string{"from_provider", "to_provider"})

	// AllProvidersFailedTotal counts requests that exhausted the entire
	// failover chain and received the apology response.
	AllProvidersFailedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corerouter_all_providers_failed_total",
		Help: "Requests where every provider in the failover chain failed.",
	})

	// ResidentModels is the number of models currently LOADED in GPU
	// memory, per C4.
	ResidentModels = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "corerouter_resident_models",
		Help: "Models currently resident in GPU memory.",
	})

	// MemoryFreedMBTotal accumulates GPU memory reclaimed by every
	// optimize_memory sweep.
	MemoryFreedMBTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "corerouter_memory_freed_mb_total",
		Help: "Cumulative GPU memory (MB) reclaimed by optimize_memory sweeps.",
	})

	// ConversationsActive is the number of distinct conversation IDs
	// currently held in the context store.
	ConversationsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "corerouter_conversations_active",
		Help: "Distinct conversations currently tracked by the context store.",
	})

	// ComplexityScore observes the analyzer's raw score per routed
	// request, labeled by the tier it resolved to.
	ComplexityScore = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "corerouter_complexity_score",
		Help:    "Query complexity score by resolved tier.",
		Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}, []string{"tier"})
)

// RecordRequest records a completed generate() call.
func RecordRequest(tier, provider, status string, d time.Duration) {
	RequestsTotal.WithLabelValues(tier, provider, status).Inc()
	GenerateDuration.WithLabelValues(tier, provider).Observe(d.Seconds())
}

// RecordFailover records one hop in the failover chain.
func RecordFailover(fromProvider, toProvider string) {
	FailoverTotal.WithLabelValues(fromProvider, toProvider).Inc()
}

// RecordAllProvidersFailed records a request that exhausted the chain.
func RecordAllProvidersFailed() {
	AllProvidersFailedTotal.Inc()
}

// SetResidentModels reports C4's current loaded-model count.
func SetResidentModels(n int) {
	ResidentModels.Set(float64(n))
}

// RecordMemoryFreed accumulates GPU memory reclaimed by one sweep.
func RecordMemoryFreed(mb int) {
	MemoryFreedMBTotal.Add(float64(mb))
}

// SetConversationsActive reports C7's current conversation count.
func SetConversationsActive(n int) {
	ConversationsActive.Set(float64(n))
}

// RecordComplexity observes C1's score for the tier it resolved to.
func RecordComplexity(tier string, score float64) {
	ComplexityScore.WithLabelValues(tier).Observe(score)
}
