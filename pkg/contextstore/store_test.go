// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package contextstore

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/types"
)

func newTestStore(t *testing.T, cfg Config) *Store {
	t.Helper()
	return New(context.Background(), cfg)
}

func TestGet_CreatesEmptyContextWhenAbsent(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	cc, err := s.Get(context.Background(), "conv-1")
	require.NoError(t, err)
	assert.Equal(t, "conv-1", cc.ConversationID)
	assert.Empty(t, cc.Messages)
}

func TestGet_EmptyIDIsInvalid(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	_, err := s.Get(context.Background(), "")
	assert.Error(t, err)
}

func TestUpdate_RoundTrip(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	cc := types.NewConversationContext("conv-2")
	cc.AddMessage(types.RoleUser, "hello")

	require.NoError(t, s.Update(context.Background(), "conv-2", cc))

	got, err := s.Get(context.Background(), "conv-2")
	require.NoError(t, err)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, "hello", got.Messages[0].Content)
	assert.Equal(t, 1, got.Metadata.TotalMessages)
}

func TestUpdate_TruncatesOversizedMessage(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessageSize = 10
	s := newTestStore(t, cfg)

	cc := types.NewConversationContext("conv-3")
	cc.Messages = append(cc.Messages, types.Message{Role: types.RoleUser, Content: strings.Repeat("x", 50)})

	require.NoError(t, s.Update(context.Background(), "conv-3", cc))
	got, err := s.Get(context.Background(), "conv-3")
	require.NoError(t, err)
	assert.Len(t, got.Messages[0].Content, 10)
	assert.True(t, got.Messages[0].Truncated)
}

func TestUpdate_PrunesOverMaxMessages(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessages = 5
	s := newTestStore(t, cfg)

	cc := types.NewConversationContext("conv-4")
	for i := 0; i < 12; i++ {
		cc.Messages = append(cc.Messages, types.Message{Role: types.RoleUser, Content: "turn"})
	}

	require.NoError(t, s.Update(context.Background(), "conv-4", cc))
	got, err := s.Get(context.Background(), "conv-4")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 5)
	assert.Equal(t, 12, got.Metadata.OriginalMessageCount)
	assert.False(t, got.Metadata.PrunedAt.IsZero())
}

func TestUpdate_CompressesBeyondTailSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxMessages = 1000
	s := newTestStore(t, cfg)

	cc := types.NewConversationContext("conv-5")
	for i := 0; i < 30; i++ {
		cc.Messages = append(cc.Messages, types.Message{Role: types.RoleUser, Content: "turn"})
	}

	require.NoError(t, s.Update(context.Background(), "conv-5", cc))
	got, err := s.Get(context.Background(), "conv-5")
	require.NoError(t, err)
	assert.Len(t, got.Messages, 30)
	assert.True(t, got.Messages[0].Truncated)
	assert.LessOrEqual(t, len(got.Messages[0].Content), compressedBudget)
}

func TestClear_RemovesConversation(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	require.NoError(t, s.Update(context.Background(), "conv-6", types.NewConversationContext("conv-6")))
	require.NoError(t, s.Clear(context.Background(), "conv-6"))

	cc, err := s.Get(context.Background(), "conv-6")
	require.NoError(t, err)
	assert.Empty(t, cc.Messages)
}

func TestMemoryUsage_ReportsFallbackShape(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	require.NoError(t, s.Update(context.Background(), "conv-7", types.NewConversationContext("conv-7")))

	usage, err := s.MemoryUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memstore", usage["backend"])
}

func TestCleanupExpired_DelegatesToFallback(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	n := s.CleanupExpired(context.Background())
	assert.GreaterOrEqual(t, n, 0)
}

func TestHealth_OKWithInProcessBackend(t *testing.T) {
	s := newTestStore(t, DefaultConfig())
	assert.NoError(t, s.Health(context.Background()))
}

func TestNew_FallsBackWhenRedisUnreachable(t *testing.T) {
	cfg := DefaultConfig()
	cfg.RedisAddr = "127.0.0.1:1" // nothing listens here
	s := newTestStore(t, cfg)

	require.NoError(t, s.Update(context.Background(), "conv-8", types.NewConversationContext("conv-8")))
	cc, err := s.Get(context.Background(), "conv-8")
	require.NoError(t, err)
	assert.Equal(t, "conv-8", cc.ConversationID)
}

func TestNew_UsesSQLiteFallbackWhenConfigured(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SQLitePath = filepath.Join(t.TempDir(), "contexts.db")
	s := newTestStore(t, cfg)

	require.NoError(t, s.Update(context.Background(), "conv-9", types.NewConversationContext("conv-9")))
	usage, err := s.MemoryUsage(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sqlitefallback", usage["backend"])
	assert.Equal(t, 1, usage["live_entries"])
}
