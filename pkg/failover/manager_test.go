// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package failover

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/testprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
)

func factoryFor(p llmprovider.Provider) Factory {
	return func(ctx context.Context) (llmprovider.Provider, error) { return p, nil }
}

func newTestManager(t *testing.T, factories ...Factory) (*Manager, *contextstore.Store) {
	t.Helper()
	store := contextstore.New(context.Background(), contextstore.DefaultConfig())
	return New(context.Background(), DefaultConfig(), store, factories...), store
}

func TestGenerate_FirstProviderSucceeds(t *testing.T) {
	primary := testprovider.New("primary", "model-a")
	m, _ := newTestManager(t, factoryFor(primary))

	resp, err := m.Generate(context.Background(), "hello", "conv-1", types.TierBalanced)
	require.NoError(t, err)
	assert.False(t, resp.FallbackUsed)
	assert.Equal(t, 1, primary.GenerateCalls)
}

func TestGenerate_FallsBackToSecondProvider(t *testing.T) {
	primary := testprovider.New("primary", "model-a")
	primary.GenerateErr = assert.AnError
	secondary := testprovider.New("secondary", "model-b")

	m, _ := newTestManager(t, factoryFor(primary), factoryFor(secondary))
	resp, err := m.Generate(context.Background(), "hello", "conv-2", types.TierBalanced)
	require.NoError(t, err)
	assert.True(t, resp.FallbackUsed)
	assert.Equal(t, 1, secondary.GenerateCalls)

	metrics := m.Metrics()
	assert.EqualValues(t, 1, metrics["fallback_requests"])
	assert.EqualValues(t, 1, metrics["successful_requests"])
}

func TestGenerate_AllProvidersFailReturnsApology(t *testing.T) {
	primary := testprovider.New("primary", "model-a")
	primary.GenerateErr = assert.AnError
	secondary := testprovider.New("secondary", "model-b")
	secondary.GenerateErr = assert.AnError

	m, _ := newTestManager(t, factoryFor(primary), factoryFor(secondary))
	resp, err := m.Generate(context.Background(), "hello", "conv-3", types.TierBalanced)
	require.NoError(t, err)
	assert.Equal(t, "none", resp.Provider)
	assert.True(t, resp.FallbackUsed)
	assert.NotEmpty(t, resp.Error)
}

func TestNew_DropsProvidersThatFailConstruction(t *testing.T) {
	failing := func(ctx context.Context) (llmprovider.Provider, error) { return nil, assert.AnError }
	working := factoryFor(testprovider.New("ok", "model-a"))

	m, _ := newTestManager(t, failing, working)
	assert.Len(t, m.providers, 1)
}

func TestGenerate_PersistsConversationTurns(t *testing.T) {
	primary := testprovider.New("primary", "model-a")
	m, store := newTestManager(t, factoryFor(primary))

	_, err := m.Generate(context.Background(), "hello", "conv-4", types.TierBalanced)
	require.NoError(t, err)

	cc, err := store.Get(context.Background(), "conv-4")
	require.NoError(t, err)
	require.Len(t, cc.Messages, 2)
	assert.Equal(t, types.RoleUser, cc.Messages[0].Role)
	assert.Equal(t, types.RoleAssistant, cc.Messages[1].Role)
}

func TestDeadlineFor_PowerfulTierGetsCriticalTimeout(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Greater(t, m.deadlineFor(types.TierPowerful), m.deadlineFor(types.TierBalanced))
}

func TestHealth_NoProvidersIsUnhealthy(t *testing.T) {
	m, _ := newTestManager(t)
	assert.Error(t, m.Health(context.Background()))
}

func TestHealth_OneHealthyProviderIsEnough(t *testing.T) {
	p := testprovider.New("primary", "model-a")
	m, _ := newTestManager(t, factoryFor(p))
	assert.NoError(t, m.Health(context.Background()))
}
