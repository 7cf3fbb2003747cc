// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRequest_IncrementsCounterAndHistogram(t *testing.T) {
	initial := testutil.ToFloat64(RequestsTotal.WithLabelValues("fast", "ollama", "ok"))

	RecordRequest("fast", "ollama", "ok", 120*time.Millisecond)

	after := testutil.ToFloat64(RequestsTotal.WithLabelValues("fast", "ollama", "ok"))
	assert.Equal(t, initial+1.0, after)
}

func TestRecordFailover_IncrementsCounter(t *testing.T) {
	initial := testutil.ToFloat64(FailoverTotal.WithLabelValues("ollama", "anthropic"))

	RecordFailover("ollama", "anthropic")

	after := testutil.ToFloat64(FailoverTotal.WithLabelValues("ollama", "anthropic"))
	assert.Equal(t, initial+1.0, after)
}

func TestRecordAllProvidersFailed_IncrementsCounter(t *testing.T) {
	initial := testutil.ToFloat64(AllProvidersFailedTotal)

	RecordAllProvidersFailed()

	after := testutil.ToFloat64(AllProvidersFailedTotal)
	assert.Equal(t, initial+1.0, after)
}

func TestSetResidentModels_SetsGaugeValue(t *testing.T) {
	SetResidentModels(3)
	assert.Equal(t, 3.0, testutil.ToFloat64(ResidentModels))

	SetResidentModels(1)
	assert.Equal(t, 1.0, testutil.ToFloat64(ResidentModels))
}

func TestRecordMemoryFreed_AccumulatesAcrossSweeps(t *testing.T) {
	initial := testutil.ToFloat64(MemoryFreedMBTotal)

	RecordMemoryFreed(500)
	RecordMemoryFreed(250)

	after := testutil.ToFloat64(MemoryFreedMBTotal)
	assert.Equal(t, initial+750.0, after)
}

func TestSetConversationsActive_SetsGaugeValue(t *testing.T) {
	SetConversationsActive(42)
	assert.Equal(t, 42.0, testutil.ToFloat64(ConversationsActive))
}

func TestRecordComplexity_ObservesIntoHistogram(t *testing.T) {
	RecordComplexity("balanced", 5.5)

	metric := &dto.Metric{}
	require.NoError(t, ComplexityScore.WithLabelValues("balanced").(prometheus.Metric).Write(metric))
	assert.GreaterOrEqual(t, metric.GetHistogram().GetSampleCount(), uint64(1))
}
