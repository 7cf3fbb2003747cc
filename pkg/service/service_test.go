// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/complexity"
	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/failover"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/testprovider"
	"github.com/teradata-labs/corerouter/pkg/maintenance"
	"github.com/teradata-labs/corerouter/pkg/memory"
	"github.com/teradata-labs/corerouter/pkg/modelregistry"
	"github.com/teradata-labs/corerouter/pkg/router"
	"github.com/teradata-labs/corerouter/pkg/types"
)

func factoryFor(p *testprovider.Provider) failover.Factory {
	return func(ctx context.Context) (llmprovider.Provider, error) { return p, nil }
}

func newTestService(t *testing.T, backup *testprovider.Provider, localErr error) (*Service, *lifecycle.Manager) {
	t.Helper()
	ctx := context.Background()

	registry := modelregistry.New(nil)
	lm := lifecycle.New(lifecycle.DefaultConfig(), lifecycle.NoopProbe{})
	for _, mc := range registry.All() {
		p := testprovider.New("local", mc.ModelName)
		p.GenerateErr = localErr
		lm.Register(mc.ModelName, p, mc.GPUMemoryMB)
	}

	rt := router.New(complexity.New(), registry, lm)
	store := contextstore.New(ctx, contextstore.DefaultConfig())
	fo := failover.New(ctx, failover.DefaultConfig(), store, factoryFor(backup))
	mem := memory.New(memory.DefaultConfig())
	sweeper := maintenance.New(maintenance.DefaultConfig(), lm, store)

	return New(registry, lm, rt, fo, store, mem, sweeper), lm
}

func TestGenerate_SucceedsThroughLocalTier(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	resp, err := svc.Generate(context.Background(), "define a word", "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "local", resp.Provider)
	assert.Zero(t, backup.GenerateCalls)
}

func TestGenerate_EscalatesToFailoverWhenAllLocalTiersFail(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, errors.New("local backend unreachable"))

	resp, err := svc.Generate(context.Background(), "define a word", "conv-2")
	require.NoError(t, err)
	assert.Equal(t, "backup", resp.Provider)
	assert.Greater(t, backup.GenerateCalls, 0)
}

func TestGenerate_PersistsConversationAndMemory(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	_, err := svc.Generate(context.Background(), "I prefer concise answers.", "conv-3")
	require.NoError(t, err)

	cc, err := svc.store.Get(context.Background(), "conv-3")
	require.NoError(t, err)
	assert.Len(t, cc.Messages, 2)
	assert.NotEmpty(t, cc.UserPreferences)
}

func TestRouteOnly_ReturnsDecisionWithoutCallingProvider(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	decision, err := svc.RouteOnly(context.Background(), "define a word", "conv-4")
	require.NoError(t, err)
	assert.NotEmpty(t, decision.SelectedTier)
}

func TestGenerate_SynthesizesConversationIDWhenOmitted(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	resp, err := svc.Generate(context.Background(), "define a word", "")
	require.NoError(t, err)
	assert.NotEmpty(t, resp.ConversationID)

	cc, err := svc.store.Get(context.Background(), resp.ConversationID)
	require.NoError(t, err)
	assert.Len(t, cc.Messages, 2)
}

func TestRouteOnly_SynthesizesConversationIDWhenOmitted(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	decision, err := svc.RouteOnly(context.Background(), "define a word", "")
	require.NoError(t, err)
	assert.NotEmpty(t, decision.SelectedTier)
}

func TestLoadModel_MakesTierResident(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, lm := newTestService(t, backup, nil)

	ok, err := svc.LoadModel(context.Background(), types.TierFast, false)
	require.NoError(t, err)
	assert.True(t, ok)

	info, found := lm.Status("fast")
	require.True(t, found)
	assert.Equal(t, types.StatusLoaded, info.Status)
}

func TestHealth_OKWithHealthyStoreAndFailover(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	assert.NoError(t, svc.Health(context.Background()))
}

func TestMetrics_ReportsModelsAndFailover(t *testing.T) {
	backup := testprovider.New("backup", "backup-model")
	svc, _ := newTestService(t, backup, nil)

	m := svc.Metrics(context.Background())
	assert.Contains(t, m, "models")
	assert.Contains(t, m, "failover")
}
