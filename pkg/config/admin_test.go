// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAdmin_ReadsExistingFile(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)

	a, err := OpenAdmin(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ollama", "anthropic"}, a.ProviderOrder())
}

func TestSetTierOverrideField_PersistsToFile(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	a, err := OpenAdmin(path)
	require.NoError(t, err)

	require.NoError(t, a.SetTierOverrideField("balanced", "max_tokens", 2048))

	got, ok := a.TierOverrideField("balanced", "max_tokens")
	require.True(t, ok)
	assert.EqualValues(t, 2048, got)

	reloaded, err := OpenAdmin(path)
	require.NoError(t, err)
	got, ok = reloaded.TierOverrideField("balanced", "max_tokens")
	require.True(t, ok)
	assert.EqualValues(t, 2048, got)
}

func TestTierOverrideField_UnsetReturnsFalse(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	a, err := OpenAdmin(path)
	require.NoError(t, err)

	_, ok := a.TierOverrideField("powerful", "gpu_memory_mb")
	assert.False(t, ok)
}

func TestSetProviderCredential_PersistsToFile(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	a, err := OpenAdmin(path)
	require.NoError(t, err)

	require.NoError(t, a.SetProviderCredential("anthropic", "model", "claude-3-7-sonnet"))

	reloaded, err := a.Reload()
	require.NoError(t, err)
	require.NotNil(t, reloaded.Spec.Providers.Anthropic)
	assert.Equal(t, "claude-3-7-sonnet", reloaded.Spec.Providers.Anthropic.Model)
}

func TestSetProviderOrder_PersistsNewOrder(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	a, err := OpenAdmin(path)
	require.NoError(t, err)

	require.NoError(t, a.SetProviderOrder([]string{"anthropic", "ollama"}))
	assert.Equal(t, []string{"anthropic", "ollama"}, a.ProviderOrder())
}
