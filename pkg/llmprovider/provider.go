// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package llmprovider defines the uniform Provider contract every backend
// (local Ollama, Anthropic direct, Anthropic-via-Bedrock) implements, so the
// lifecycle manager, router and failover manager never special-case a
// specific backend.
package llmprovider

import (
	"context"

	"github.com/teradata-labs/corerouter/pkg/types"
)

// Provider is a single LLM backend bound to one model. A Provider instance
// is owned by the lifecycle manager for exactly one ModelInfo entry; Load
// and Unload bracket its place in that state machine.
type Provider interface {
	// Name is the provider identifier ("ollama", "anthropic", "bedrock", ...).
	Name() string

	// Model is the concrete model identifier this provider was built for.
	Model() string

	// Load prepares the provider to serve traffic: for a local backend this
	// warms the model into memory, for a remote backend it is typically a
	// connectivity check. Load is called at most once per lifecycle LOADING
	// transition.
	Load(ctx context.Context) error

	// Unload releases any resources Load acquired. Called on the lifecycle
	// manager's UNLOADING transition.
	Unload(ctx context.Context) error

	// Generate sends messages and returns the model's reply in the uniform
	// LLMResponse shape. Callers are expected to have already applied a
	// context deadline (§7's per-tier timeout policy).
	Generate(ctx context.Context, messages []types.Message, params types.GenerateParams) (*types.LLMResponse, error)

	// Health reports whether the backend is currently reachable. Used by
	// the failover manager's readiness probe ahead of a failover hop.
	Health(ctx context.Context) error
}

// Config is the common subset of fields every concrete provider accepts,
// layered with backend-specific fields in each sub-package's own Config.
type Config struct {
	Model       string
	MaxTokens   int
	Temperature float64
}
