// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package router combines the complexity analyzer (C1), the model
// registry (C2), and the lifecycle manager (C4) into tier selection and
// generation: the request-facing surface every external interface calls
// through.
package router

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/complexity"
	"github.com/teradata-labs/corerouter/pkg/corerrors"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
	"github.com/teradata-labs/corerouter/pkg/modelregistry"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// tierStat accumulates a moving sum used to compute average tokens/second
// and throughput-improvement metrics per tier.
type tierStat struct {
	mu           sync.Mutex
	totalTokens  int64
	totalSeconds float64
	count        int64
}

func (s *tierStat) record(tokens int, seconds float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTokens += int64(tokens)
	s.totalSeconds += seconds
	s.count++
}

func (s *tierStat) avgTokensPerSecond() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.totalSeconds == 0 {
		return 0
	}
	return float64(s.totalTokens) / s.totalSeconds
}

// Router selects a tier per request and drives generation through the
// lifecycle manager. Safe for concurrent use.
type Router struct {
	analyzer  *complexity.Analyzer
	registry  *modelregistry.Registry
	lifecycle *lifecycle.Manager
	log       *zap.Logger

	tierLoad  map[types.Tier]*atomic.Int64
	tierStats map[types.Tier]*tierStat
}

// New wires the three upstream components into a Router.
func New(analyzer *complexity.Analyzer, registry *modelregistry.Registry, lm *lifecycle.Manager) *Router {
	r := &Router{
		analyzer:  analyzer,
		registry:  registry,
		lifecycle: lm,
		log:       log.Named("router"),
		tierLoad:  make(map[types.Tier]*atomic.Int64),
		tierStats: make(map[types.Tier]*tierStat),
	}
	for _, cfg := range registry.All() {
		r.tierLoad[cfg.Tier] = &atomic.Int64{}
		r.tierStats[cfg.Tier] = &tierStat{}
	}
	return r
}

func (r *Router) capacity(tier types.Tier) int {
	cfg, err := r.registry.Get(tier)
	if err != nil {
		return 0
	}
	return cfg.ConcurrentCapacity
}

func (r *Router) loadOf(tier types.Tier) int64 {
	c, ok := r.tierLoad[tier]
	if !ok {
		return 0
	}
	return c.Load()
}

// baseTier maps a complexity level to its home tier.
func baseTier(level types.Complexity) types.Tier {
	switch level {
	case types.ComplexitySimple:
		return types.TierFast
	case types.ComplexityModerate:
		return types.TierBalanced
	default: // complex, critical
		return types.TierPowerful
	}
}

func fallbackFor(tier types.Tier) *types.Tier {
	var next types.Tier
	switch tier {
	case types.TierPowerful:
		next = types.TierBalanced
	case types.TierBalanced:
		next = types.TierFast
	default:
		return nil
	}
	return &next
}

// selectTier implements §4.5's _select_tier: base-from-complexity,
// time-sensitive downgrade, then load-based reassignment.
func (r *Router) selectTier(analysis types.QueryAnalysis) types.Tier {
	tier := baseTier(analysis.Complexity)

	if analysis.TimeSensitive {
		switch tier {
		case types.TierBalanced:
			tier = types.TierFast
		case types.TierPowerful:
			if analysis.Complexity != types.ComplexityCritical {
				tier = types.TierBalanced
			}
		}
	}

	if r.loadOf(tier) >= int64(r.capacity(tier)) {
		switch {
		case tier == types.TierFast && r.loadOf(types.TierBalanced) < int64(r.capacity(types.TierBalanced)):
			tier = types.TierBalanced
		case tier == types.TierBalanced &&
			r.loadOf(types.TierFast) < int64(r.capacity(types.TierFast)) &&
			(analysis.Complexity == types.ComplexitySimple || analysis.Complexity == types.ComplexityModerate):
			tier = types.TierFast
		}
	}

	return tier
}

// Route classifies query and returns the tier selection without
// generating a response.
func (r *Router) Route(query string, convCtx *types.ConversationContext) (types.RoutingDecision, error) {
	analysis := r.analyzer.Analyze(query, convCtx)
	tier := r.selectTier(analysis)

	cfg, err := r.registry.Get(tier)
	if err != nil {
		return types.RoutingDecision{}, fmt.Errorf("router: tier %q not in registry: %w", tier, err)
	}

	tokS := cfg.AvgTokensPerSecond
	if observed := r.tierStats[tier].avgTokensPerSecond(); observed > 0 {
		tokS = observed
	}
	load := r.loadOf(tier)
	estimatedSeconds := (float64(analysis.EstimatedTokens)/tokS + 0.5) * (1 + 0.2*float64(load))

	return types.RoutingDecision{
		SelectedTier:                 tier,
		ModelConfig:                  cfg,
		Reasoning:                    reasoning(analysis, tier),
		Confidence:                   analysis.Confidence,
		FallbackTier:                 fallbackFor(tier),
		EstimatedResponseTimeSeconds: estimatedSeconds,
	}, nil
}

func reasoning(analysis types.QueryAnalysis, tier types.Tier) string {
	return fmt.Sprintf("complexity=%s time_sensitive=%t -> tier=%s", analysis.Complexity, analysis.TimeSensitive, tier)
}

// Generate routes query, ensures the selected tier's model is resident,
// invokes generation, and falls back one tier on failure per §4.5.
func (r *Router) Generate(ctx context.Context, query string, convCtx *types.ConversationContext) (*types.LLMResponse, error) {
	decision, err := r.Route(query, convCtx)
	if err != nil {
		return nil, err
	}

	messages := buildMessages(query, convCtx)

	resp, err := r.generateWithTier(ctx, decision.SelectedTier, decision.ModelConfig, messages)
	if err == nil {
		if resp.RoutingMetadata == nil {
			resp.RoutingMetadata = make(map[string]any)
		}
		resp.RoutingMetadata["selected_tier"] = string(decision.SelectedTier)
		resp.RoutingMetadata["routing_confidence"] = decision.Confidence
		return resp, nil
	}

	if decision.FallbackTier == nil {
		return nil, err
	}

	fallbackCfg, cfgErr := r.registry.Get(*decision.FallbackTier)
	if cfgErr != nil {
		return nil, err
	}

	r.log.Warn("primary tier failed, attempting fallback",
		zap.String("primary_tier", string(decision.SelectedTier)),
		zap.String("fallback_tier", string(*decision.FallbackTier)),
		zap.Error(err))

	resp, fallbackErr := r.generateWithTier(ctx, *decision.FallbackTier, fallbackCfg, messages)
	if fallbackErr != nil {
		return nil, corerrors.NewAllProvidersFailed("router: primary and fallback tier both failed")
	}

	resp.FallbackUsed = true
	if resp.RoutingMetadata == nil {
		resp.RoutingMetadata = make(map[string]any)
	}
	resp.RoutingMetadata["selected_tier"] = string(*decision.FallbackTier)
	resp.RoutingMetadata["fallback_from_tier"] = string(decision.SelectedTier)
	return resp, nil
}

// generateWithTier mirrors §4.5 steps 2-4 for a single tier, with no
// further fallback. The caller is responsible for any fallback hop.
func (r *Router) generateWithTier(ctx context.Context, tier types.Tier, cfg types.ModelConfig, messages []types.Message) (*types.LLMResponse, error) {
	counter := r.tierLoad[tier]
	counter.Add(1)
	defer counter.Add(-1)

	if _, err := r.lifecycle.Load(ctx, cfg.ModelName, false); err != nil {
		return nil, fmt.Errorf("router: ensure model resident: %w", err)
	}

	provider, ok := r.lifecycle.Provider(cfg.ModelName)
	if !ok {
		return nil, corerrors.NewProviderUnavailable(fmt.Sprintf("router: no provider registered for %q", cfg.ModelName), nil)
	}

	start := time.Now()
	resp, err := provider.Generate(ctx, messages, types.GenerateParams{MaxTokens: cfg.MaxTokens})
	if err != nil {
		return nil, err
	}
	elapsed := time.Since(start)

	r.tierStats[tier].record(resp.TokenCount, elapsed.Seconds())
	return resp, nil
}

func buildMessages(query string, convCtx *types.ConversationContext) []types.Message {
	var messages []types.Message
	if convCtx != nil {
		messages = append(messages, convCtx.Messages...)
	}
	messages = append(messages, types.Message{Role: types.RoleUser, Content: query, Timestamp: time.Now()})
	return messages
}

// OptimizeGPUMemory delegates to the lifecycle manager's eviction sweep.
func (r *Router) OptimizeGPUMemory(ctx context.Context) (lifecycle.OptimizeResult, error) {
	return r.lifecycle.OptimizeMemory(ctx)
}

// Metrics reports routing stats, per-tier performance, current load,
// throughput improvement versus the BALANCED baseline, and memory
// efficiency across the catalog.
func (r *Router) Metrics() map[string]any {
	tierPerformance := make(map[string]float64, len(r.tierStats))
	for tier, stat := range r.tierStats {
		tierPerformance[string(tier)] = stat.avgTokensPerSecond()
	}

	currentLoad := make(map[string]int64, len(r.tierLoad))
	for tier, c := range r.tierLoad {
		currentLoad[string(tier)] = c.Load()
	}

	baseline, _ := r.registry.Get(types.TierBalanced)
	actualAvg := r.tierStats[types.TierBalanced].avgTokensPerSecond()
	improvement := 0.0
	if baseline.AvgTokensPerSecond > 0 && actualAvg > 0 && actualAvg < baseline.AvgTokensPerSecond {
		improvement = (baseline.AvgTokensPerSecond - actualAvg) / baseline.AvgTokensPerSecond * 100
	}

	var residentMB, catalogMB int
	for _, cfg := range r.registry.All() {
		catalogMB += cfg.GPUMemoryMB
		if info, ok := r.lifecycle.Status(cfg.ModelName); ok && info.Status == types.StatusLoaded {
			residentMB += cfg.GPUMemoryMB
		}
	}
	memoryEfficiency := 0.0
	if catalogMB > 0 {
		memoryEfficiency = (1 - float64(residentMB)/float64(catalogMB)) * 100
	}

	return map[string]any{
		"tier_performance":        tierPerformance,
		"current_load":            currentLoad,
		"throughput_improvement":  improvement,
		"memory_efficiency":       memoryEfficiency,
	}
}
