// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teradata-labs/corerouter/pkg/failover"
	"github.com/teradata-labs/corerouter/pkg/types"
)

const sampleYAML = `
apiVersion: corerouter/v1
kind: Deployment
metadata:
  name: sample
spec:
  providers:
    order: [ollama, anthropic]
    ollama:
      endpoint: http://localhost:11434
      model: llama3.2
    anthropic:
      api_key: ${TEST_ANTHROPIC_KEY}
      model: claude-3-5-haiku
  tiers:
    fast:
      max_tokens: 1024
  failover:
    primary_timeout_seconds: 3.5
`

func writeFixture(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_ParsesAndExpandsEnvVars(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)

	d, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "sample", d.Metadata.Name)
	assert.Equal(t, []string{"ollama", "anthropic"}, d.Spec.Providers.Order)
	require.NotNil(t, d.Spec.Providers.Anthropic)
	assert.Equal(t, "sk-test-123", d.Spec.Providers.Anthropic.APIKey)
}

func TestLoad_MissingNameIsInvalid(t *testing.T) {
	path := writeFixture(t, "apiVersion: corerouter/v1\nkind: Deployment\nspec:\n  providers:\n    order: [ollama]\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_UnknownProviderIsInvalid(t *testing.T) {
	path := writeFixture(t, "metadata:\n  name: sample\nspec:\n  providers:\n    order: [made-up]\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_UnknownTierIsInvalid(t *testing.T) {
	path := writeFixture(t, "metadata:\n  name: sample\nspec:\n  providers:\n    order: [ollama]\n  tiers:\n    extreme:\n      max_tokens: 10\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileIsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestModelOverrides_ConvertsTierMap(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	d, err := Load(path)
	require.NoError(t, err)

	overrides := d.ModelOverrides()
	require.Contains(t, overrides, types.TierFast)
	assert.Equal(t, 1024, overrides[types.TierFast].MaxTokens)
}

func TestFailoverConfig_AppliesOverrideOverDefault(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	d, err := Load(path)
	require.NoError(t, err)

	cfg := d.FailoverConfig()
	assert.Equal(t, 3.5, cfg.PrimaryTimeoutSeconds)
	assert.Equal(t, failover.DefaultConfig().CriticalTimeoutSeconds, cfg.CriticalTimeoutSeconds)
}

func TestContextStoreConfig_CarriesSQLiteFallbackPath(t *testing.T) {
	path := writeFixture(t, "metadata:\n  name: sample\nspec:\n  providers:\n    order: [ollama]\n  context_store:\n    sqlite_path: /var/lib/corerouter/contexts.db\n")
	d, err := Load(path)
	require.NoError(t, err)

	cfg := d.ContextStoreConfig()
	assert.Equal(t, "/var/lib/corerouter/contexts.db", cfg.SQLitePath)
}

func TestLifecycleConfig_FallsBackToDefaultsWhenSectionAbsent(t *testing.T) {
	path := writeFixture(t, "metadata:\n  name: sample\nspec:\n  providers:\n    order: [ollama]\n")
	d, err := Load(path)
	require.NoError(t, err)

	cfg := d.LifecycleConfig()
	assert.Equal(t, 3, cfg.MaxConcurrentModels)
}

func TestLocalProviderName_DefaultsToOllama(t *testing.T) {
	path := writeFixture(t, "metadata:\n  name: sample\nspec:\n  providers:\n    order: [ollama]\n")
	d, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ollama", d.LocalProviderName())
}

func TestProviderFactoryConfig_CarriesBackendCredentials(t *testing.T) {
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")
	path := writeFixture(t, sampleYAML)
	d, err := Load(path)
	require.NoError(t, err)

	fc := d.ProviderFactoryConfig()
	assert.Equal(t, "http://localhost:11434", fc.OllamaEndpoint)
	assert.Equal(t, "sk-test-123", fc.AnthropicAPIKey)
}
