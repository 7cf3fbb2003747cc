// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package maintenance

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/testprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
)

func newTestSweeper(t *testing.T) *Sweeper {
	t.Helper()
	lm := lifecycle.New(lifecycle.DefaultConfig(), lifecycle.NoopProbe{})
	lm.Register("model-a", testprovider.New("primary", "model-a"), 1000)
	store := contextstore.New(context.Background(), contextstore.DefaultConfig())
	return New(DefaultConfig(), lm, store)
}

func TestTriggerOptimizeNow_RunsImmediately(t *testing.T) {
	s := newTestSweeper(t)
	_, err := s.lifecycle.Load(context.Background(), "model-a", false)
	require.NoError(t, err)

	result, err := s.TriggerOptimizeNow(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, result)
}

func TestTriggerCleanupNow_RunsImmediately(t *testing.T) {
	s := newTestSweeper(t)
	require.NoError(t, s.store.Update(context.Background(), "conv-1", types.NewConversationContext("conv-1")))

	removed := s.TriggerCleanupNow(context.Background())
	assert.GreaterOrEqual(t, removed, 0)
}

func TestStart_RegistersCronJobs(t *testing.T) {
	s := newTestSweeper(t)
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.Len(t, s.cron.Entries(), 2)
}
