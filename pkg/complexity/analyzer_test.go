// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package complexity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/types"
)

func TestAnalyze_SimpleQuery(t *testing.T) {
	a := New()
	result := a.Analyze("Summarize this text briefly", nil)

	require.Equal(t, types.ComplexitySimple, result.Complexity)
	assert.False(t, result.RequiresPlanning)
	assert.Greater(t, result.Confidence, 0.0)
}

func TestAnalyze_CriticalQuery(t *testing.T) {
	a := New()
	result := a.Analyze("Develop an advanced multi-step comprehensive algorithm to integrate multiple systems", nil)

	require.Equal(t, types.ComplexityCritical, result.Complexity)
	assert.True(t, result.RequiresPlanning)
	assert.Equal(t, 0.9, result.Confidence)
}

func TestAnalyze_CriticalRoutingScenario(t *testing.T) {
	a := New()
	result := a.Analyze("Develop an advanced multi-agent system with complex reasoning", nil)

	require.Equal(t, types.ComplexityCritical, result.Complexity)
	assert.True(t, result.RequiresPlanning)
}

func TestAnalyze_ContextUpgrade(t *testing.T) {
	a := New()
	ctx := types.NewConversationContext("c1")
	for i := 0; i < 6; i++ {
		ctx.AddMessage(types.RoleUser, "hello")
	}

	result := a.Analyze("list the items", ctx)
	require.Equal(t, types.ComplexityModerate, result.Complexity)
	assert.Contains(t, result.ReasoningIndicators, "context_upgrade")
}

func TestAnalyze_EmptyQuery(t *testing.T) {
	a := New()
	result := a.Analyze("", nil)
	assert.Equal(t, types.ComplexitySimple, result.Complexity)
}

func TestAnalyze_EstimatedTokensFloor(t *testing.T) {
	a := New()
	result := a.Analyze("hi", nil)
	assert.GreaterOrEqual(t, result.EstimatedTokens, 50)
}

func TestAnalyze_ConfidenceClamped(t *testing.T) {
	a := New()
	result := a.Analyze("analyze analyze analyze compare compare optimize optimize design design design algorithm integrate multi-step comprehensive architecture", nil)
	assert.LessOrEqual(t, result.Confidence, 1.0)
	assert.GreaterOrEqual(t, result.Confidence, 0.0)
}
