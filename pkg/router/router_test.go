// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package router

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/complexity"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/testprovider"
	"github.com/teradata-labs/corerouter/pkg/modelregistry"
	"github.com/teradata-labs/corerouter/pkg/types"
)

func newTestRouter(t *testing.T) (*Router, *lifecycle.Manager, *modelregistry.Registry) {
	t.Helper()
	registry := modelregistry.New(nil)
	lm := lifecycle.New(lifecycle.DefaultConfig(), lifecycle.NoopProbe{})
	for _, cfg := range registry.All() {
		lm.Register(cfg.ModelName, testprovider.New(string(cfg.Tier), cfg.ModelName), cfg.GPUMemoryMB)
	}
	r := New(complexity.New(), registry, lm)
	return r, lm, registry
}

func TestRoute_SimpleGoesFast(t *testing.T) {
	r, _, _ := newTestRouter(t)
	decision, err := r.Route("Summarize this text", nil)
	require.NoError(t, err)
	assert.Equal(t, types.TierFast, decision.SelectedTier)
	assert.Nil(t, decision.FallbackTier)
}

func TestRoute_CriticalStaysOnPowerfulDespiteTimeSensitivity(t *testing.T) {
	r, _, _ := newTestRouter(t)
	decision, err := r.Route("urgent: design a comprehensive multi-step algorithm to integrate multiple systems", nil)
	require.NoError(t, err)
	assert.Equal(t, types.TierPowerful, decision.SelectedTier)
}

func TestRoute_TimeSensitiveDowngradesBalancedToFast(t *testing.T) {
	r, _, _ := newTestRouter(t)
	decision, err := r.Route("compare these two options quickly", nil)
	require.NoError(t, err)
	assert.Equal(t, types.TierFast, decision.SelectedTier)
}

func TestGenerate_Success(t *testing.T) {
	r, _, _ := newTestRouter(t)
	resp, err := r.Generate(context.Background(), "Summarize this text", nil)
	require.NoError(t, err)
	assert.False(t, resp.FallbackUsed)
	assert.NotEmpty(t, resp.Content)
}

func TestGenerate_FallsBackOnProviderFailure(t *testing.T) {
	r, lm, registry := newTestRouter(t)
	powerfulCfg, err := registry.Get(types.TierPowerful)
	require.NoError(t, err)
	p, _ := lm.Provider(powerfulCfg.ModelName)
	p.(*testprovider.Provider).GenerateErr = assert.AnError

	resp, err := r.Generate(context.Background(), "design a comprehensive multi-step algorithm to integrate multiple systems", nil)
	require.NoError(t, err)
	assert.True(t, resp.FallbackUsed)
	assert.Equal(t, "balanced", resp.RoutingMetadata["selected_tier"])
}

func TestGenerate_AllProvidersFailed(t *testing.T) {
	r, lm, registry := newTestRouter(t)
	for _, tier := range []types.Tier{types.TierPowerful, types.TierBalanced} {
		cfg, err := registry.Get(tier)
		require.NoError(t, err)
		p, _ := lm.Provider(cfg.ModelName)
		p.(*testprovider.Provider).GenerateErr = assert.AnError
	}

	_, err := r.Generate(context.Background(), "design a comprehensive multi-step algorithm to integrate multiple systems", nil)
	assert.Error(t, err)
}

func TestMetrics_ReportsShape(t *testing.T) {
	r, _, _ := newTestRouter(t)
	_, err := r.Generate(context.Background(), "Summarize this text", nil)
	require.NoError(t, err)

	metrics := r.Metrics()
	assert.Contains(t, metrics, "tier_performance")
	assert.Contains(t, metrics, "current_load")
	assert.Contains(t, metrics, "memory_efficiency")
}
