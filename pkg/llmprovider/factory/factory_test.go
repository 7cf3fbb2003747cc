// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package factory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Ollama(t *testing.T) {
	p, err := New(context.Background(), "ollama", Config{OllamaModel: "llama3.2"})
	require.NoError(t, err)
	assert.Equal(t, "ollama", p.Name())
	assert.Equal(t, "llama3.2", p.Model())
}

func TestNew_AnthropicMissingKey(t *testing.T) {
	t.Setenv("ANTHROPIC_API_KEY", "")
	_, err := New(context.Background(), "anthropic", Config{})
	assert.Error(t, err)
}

func TestNew_AnthropicWithKey(t *testing.T) {
	p, err := New(context.Background(), "anthropic", Config{AnthropicAPIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "anthropic", p.Name())
}

func TestNew_UnsupportedProvider(t *testing.T) {
	_, err := New(context.Background(), "nonexistent", Config{})
	assert.Error(t, err)
}
