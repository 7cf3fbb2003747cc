// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package memory

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/types"
)

func TestProcessTurn_ExtractsPreference(t *testing.T) {
	e := New(DefaultConfig())
	cc := types.NewConversationContext("conv-1")
	cc.AddMessage(types.RoleUser, "I prefer dark mode in every app I use.")

	e.ProcessTurn(cc, 1)
	require.NotEmpty(t, cc.UserPreferences)
	for _, p := range cc.UserPreferences {
		assert.Greater(t, p.Confidence, 0.5)
	}
}

func TestProcessTurn_ExtractsFact(t *testing.T) {
	e := New(DefaultConfig())
	cc := types.NewConversationContext("conv-2")
	cc.AddMessage(types.RoleUser, "Important: the deploy window closes at 5pm.")

	e.ProcessTurn(cc, 1)
	require.NotEmpty(t, cc.KeyFacts)
}

func TestProcessTurn_NoMessagesIsNoop(t *testing.T) {
	e := New(DefaultConfig())
	cc := types.NewConversationContext("conv-3")
	got := e.ProcessTurn(cc, 1)
	assert.Empty(t, got.Messages)
	assert.Empty(t, got.UserPreferences)
}

func TestProcessTurn_KeywordsAreCapped(t *testing.T) {
	cfg := Config{MaxPreferences: 50, MaxFacts: 100, MaxKeywords: 5}
	e := New(cfg)
	cc := types.NewConversationContext("conv-4")
	cc.AddMessage(types.RoleUser, "I prefer coffee, tea, biking, reading, painting, cooking and hiking.")

	e.ProcessTurn(cc, 1)
	assert.LessOrEqual(t, len(cc.MemoryKeywords), 5)
}

func Test100ConsecutiveTurns_StaysWithinCaps(t *testing.T) {
	e := New(DefaultConfig())
	cc := types.NewConversationContext("conv-5")

	for i := 0; i < 100; i++ {
		cc.AddMessage(types.RoleUser, fmt.Sprintf("I prefer option %d and I always pick it first. Important: turn %d matters.", i, i))
		e.ProcessTurn(cc, i)
	}

	assert.LessOrEqual(t, len(cc.UserPreferences), 50)
	assert.LessOrEqual(t, len(cc.KeyFacts), 100)
	assert.LessOrEqual(t, len(cc.MemoryKeywords), 50)
}

func TestExtractKeywords_FiltersStopWordsAndShortTokens(t *testing.T) {
	keywords := extractKeywords("the quick fox and a cat are friends")
	for _, k := range keywords {
		assert.Greater(t, len(k), 2)
	}
	assert.NotContains(t, keywords, "the")
	assert.NotContains(t, keywords, "and")
}

func TestSummarizeConversation_PrefersImportantSentences(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleUser, Content: "The weather is nice today"},
		{Role: types.RoleUser, Content: "I really need help with this important problem"},
	}
	summary := summarizeConversation(messages)
	assert.Contains(t, summary, "need help")
}

func TestSummarizeConversation_FallsBackWithoutImportantSentences(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleUser, Content: "This is a plain message with nothing special in it"},
	}
	summary := summarizeConversation(messages)
	assert.NotEmpty(t, summary)
}
