// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package factory dispatches a provider name and tier-specific settings to
// the concrete llmprovider.Provider constructor.
package factory

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/anthropic"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/bedrock"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/ollama"
)

// Config is the union of every backend's settings a deployment may supply;
// unused fields for a given provider are ignored.
type Config struct {
	AnthropicAPIKey string
	AnthropicModel  string

	BedrockRegion          string
	BedrockAccessKeyID     string
	BedrockSecretAccessKey string
	BedrockSessionToken    string
	BedrockProfile         string
	BedrockModelID         string

	OllamaEndpoint string
	OllamaModel    string

	MaxTokens   int
	Temperature float64
	Timeout     time.Duration

	RateLimiter llmprovider.RateLimiterConfig
}

// New builds the named provider ("ollama", "anthropic", "bedrock") from cfg.
func New(ctx context.Context, provider string, cfg Config) (llmprovider.Provider, error) {
	switch provider {
	case "ollama":
		return newOllama(cfg), nil
	case "anthropic":
		return newAnthropic(cfg)
	case "bedrock":
		return bedrock.NewClient(ctx, bedrock.Config{
			Region:          cfg.BedrockRegion,
			AccessKeyID:     cfg.BedrockAccessKeyID,
			SecretAccessKey: cfg.BedrockSecretAccessKey,
			SessionToken:    cfg.BedrockSessionToken,
			Profile:         cfg.BedrockProfile,
			ModelID:         cfg.BedrockModelID,
			MaxTokens:       cfg.MaxTokens,
			Temperature:     cfg.Temperature,
			RateLimiter:     cfg.RateLimiter,
		})
	default:
		return nil, fmt.Errorf("llmprovider/factory: unsupported provider %q", provider)
	}
}

func newOllama(cfg Config) llmprovider.Provider {
	endpoint := cfg.OllamaEndpoint
	if endpoint == "" {
		endpoint = os.Getenv("OLLAMA_ENDPOINT")
	}
	model := cfg.OllamaModel
	if model == "" {
		model = "llama3.2"
	}
	return ollama.NewClient(ollama.Config{
		Endpoint:    endpoint,
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		Timeout:     cfg.Timeout,
	})
}

func newAnthropic(cfg Config) (llmprovider.Provider, error) {
	apiKey := cfg.AnthropicAPIKey
	if apiKey == "" {
		apiKey = os.Getenv("ANTHROPIC_API_KEY")
	}
	model := cfg.AnthropicModel
	if model == "" {
		model = anthropic.DefaultModel
	}
	return anthropic.NewClient(anthropic.Config{
		APIKey:      apiKey,
		Model:       model,
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
		RateLimiter: cfg.RateLimiter,
	})
}
