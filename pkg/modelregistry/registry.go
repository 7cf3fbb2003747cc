// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package modelregistry is the static, immutable catalog of per-tier model
// configurations the router and lifecycle manager consult.
package modelregistry

import (
	"fmt"

	"github.com/teradata-labs/corerouter/pkg/types"
)

// Registry is immutable once built; overrides are resolved at
// construction time via Overrides, not re-read per call.
type Registry struct {
	tiers map[types.Tier]types.ModelConfig
	order []types.Tier
}

// Overrides lets a deployment YAML replace any subset of a tier's fields.
// Zero-valued fields are left at the default.
type Overrides struct {
	ModelName          string
	MaxTokens          int
	ContextWindow      int
	GPUMemoryMB        int
	AvgTokensPerSecond float64
	ConcurrentCapacity int
	KeepAliveMinutes   int
}

func defaults() map[types.Tier]types.ModelConfig {
	return map[types.Tier]types.ModelConfig{
		types.TierFast: {
			ModelName:          "fast",
			Tier:               types.TierFast,
			MaxTokens:          2048,
			ContextWindow:      4096,
			GPUMemoryMB:        3000,
			AvgTokensPerSecond: 50,
			ConcurrentCapacity: 8,
			KeepAliveMinutes:   10,
		},
		types.TierBalanced: {
			ModelName:          "balanced",
			Tier:               types.TierBalanced,
			MaxTokens:          4096,
			ContextWindow:      8192,
			GPUMemoryMB:        8000,
			AvgTokensPerSecond: 25,
			ConcurrentCapacity: 4,
			KeepAliveMinutes:   15,
		},
		types.TierPowerful: {
			ModelName:          "powerful",
			Tier:               types.TierPowerful,
			MaxTokens:          8192,
			ContextWindow:      16384,
			GPUMemoryMB:        40000,
			AvgTokensPerSecond: 8,
			ConcurrentCapacity: 1,
			KeepAliveMinutes:   30,
		},
	}
}

// New builds a Registry from the baseline defaults in SPEC_FULL.md §4.2,
// applying any per-tier overrides supplied by the deployment config.
func New(overrides map[types.Tier]Overrides) *Registry {
	tiers := defaults()
	order := []types.Tier{types.TierFast, types.TierBalanced, types.TierPowerful}

	for tier, o := range overrides {
		cfg, ok := tiers[tier]
		if !ok {
			continue
		}
		if o.ModelName != "" {
			cfg.ModelName = o.ModelName
		}
		if o.MaxTokens != 0 {
			cfg.MaxTokens = o.MaxTokens
		}
		if o.ContextWindow != 0 {
			cfg.ContextWindow = o.ContextWindow
		}
		if o.GPUMemoryMB != 0 {
			cfg.GPUMemoryMB = o.GPUMemoryMB
		}
		if o.AvgTokensPerSecond != 0 {
			cfg.AvgTokensPerSecond = o.AvgTokensPerSecond
		}
		if o.ConcurrentCapacity != 0 {
			cfg.ConcurrentCapacity = o.ConcurrentCapacity
		}
		if o.KeepAliveMinutes != 0 {
			cfg.KeepAliveMinutes = o.KeepAliveMinutes
		}
		tiers[tier] = cfg
	}

	return &Registry{tiers: tiers, order: order}
}

// Get returns the ModelConfig for tier.
func (r *Registry) Get(tier types.Tier) (types.ModelConfig, error) {
	cfg, ok := r.tiers[tier]
	if !ok {
		return types.ModelConfig{}, fmt.Errorf("modelregistry: unknown tier %q", tier)
	}
	return cfg, nil
}

// All returns every ModelConfig in FAST, BALANCED, POWERFUL order.
func (r *Registry) All() []types.ModelConfig {
	out := make([]types.ModelConfig, 0, len(r.order))
	for _, t := range r.order {
		out = append(out, r.tiers[t])
	}
	return out
}
