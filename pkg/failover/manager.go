// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package failover is the alternative request-facing entry point (C6)
// for deployments that want a fixed primary/secondary provider chain
// instead of C5's complexity-tiered routing — e.g. a cloud primary with
// a local model as the only fallback.
package failover

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/corerrors"
	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/metrics"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// apologyMessage is returned verbatim when every provider in the chain
// fails.
const apologyMessage = "I'm sorry, all language model providers are currently unavailable. Please try again shortly."

// Config controls per-call deadlines. The deadline is tier-dependent
// rather than global (DESIGN.md OQ-2): a request routed to the POWERFUL
// tier is assumed to be CRITICAL-complexity and gets the relaxed
// deadline; everything else gets the primary deadline.
type Config struct {
	PrimaryTimeoutSeconds  float64
	CriticalTimeoutSeconds float64
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{PrimaryTimeoutSeconds: 2.0, CriticalTimeoutSeconds: 30.0}
}

// Factory constructs a single chain member, returning an error when the
// provider cannot be constructed in this environment (missing
// credentials, unreachable endpoint). Manager logs a warning and drops
// any factory that errors rather than failing New outright.
type Factory func(ctx context.Context) (llmprovider.Provider, error)

// Manager drives a fixed, ordered provider chain under a per-call
// deadline, persisting conversation turns through the context store.
type Manager struct {
	cfg   Config
	store *contextstore.Store
	log   *zap.Logger

	providers []llmprovider.Provider

	successfulRequests atomic.Int64
	failedRequests     atomic.Int64
	fallbackRequests   atomic.Int64

	usageMu sync.Mutex
	usage   map[string]int64

	avgMu    sync.Mutex
	avgSecs  float64
	avgCount int64
}

// New constructs a Manager, running each factory in order and keeping
// only the providers that construct successfully.
func New(ctx context.Context, cfg Config, store *contextstore.Store, factories ...Factory) *Manager {
	m := &Manager{
		cfg:   cfg,
		store: store,
		log:   log.Named("failover"),
		usage: make(map[string]int64),
	}

	for _, f := range factories {
		p, err := f(ctx)
		if err != nil {
			m.log.Warn("dropping provider from failover chain: construction failed", zap.Error(err))
			continue
		}
		m.providers = append(m.providers, p)
	}
	return m
}

func (m *Manager) deadlineFor(tier types.Tier) time.Duration {
	seconds := m.cfg.PrimaryTimeoutSeconds
	if tier == types.TierPowerful {
		seconds = m.cfg.CriticalTimeoutSeconds
	}
	return time.Duration(seconds * float64(time.Second))
}

// Generate fetches/creates the conversation, appends the user turn, and
// tries each provider in the chain in order under deadlineFor(tier)
// until one succeeds. tier is the caller's complexity signal (typically
// C5's selected tier when failover sits behind the router); pass
// types.TierBalanced when there is none.
func (m *Manager) Generate(ctx context.Context, query, convID string, tier types.Tier) (*types.LLMResponse, error) {
	convCtx, err := m.store.Get(ctx, convID)
	if err != nil {
		return nil, err
	}
	convCtx.AddMessage(types.RoleUser, query)
	messages := append([]types.Message(nil), convCtx.Messages...)

	deadline := m.deadlineFor(tier)

	for i, p := range m.providers {
		resp, err := m.tryProvider(ctx, p, messages, deadline)
		if err != nil {
			m.failedRequests.Add(1)
			m.log.Warn("failover provider failed", zap.String("provider", p.Name()), zap.Error(err))
			if i+1 < len(m.providers) {
				metrics.RecordFailover(p.Name(), m.providers[i+1].Name())
			}
			continue
		}

		usedFallback := i > 0
		if usedFallback {
			m.fallbackRequests.Add(1)
		}
		m.successfulRequests.Add(1)
		m.recordUsage(p.Name())
		m.recordResponseTime(resp.ResponseTimeSeconds)

		resp.FallbackUsed = usedFallback
		convCtx.AddMessage(types.RoleAssistant, resp.Content)
		if updErr := m.store.Update(ctx, convID, convCtx); updErr != nil {
			m.log.Warn("failed to persist conversation after generation", zap.Error(updErr))
		}
		return resp, nil
	}

	return &types.LLMResponse{
		Content:      apologyMessage,
		Provider:     "none",
		Error:        "All LLM providers failed",
		FallbackUsed: true,
		Timestamp:    time.Now(),
	}, nil
}

func (m *Manager) tryProvider(ctx context.Context, p llmprovider.Provider, messages []types.Message, deadline time.Duration) (*types.LLMResponse, error) {
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	start := time.Now()
	resp, err := p.Generate(callCtx, messages, types.GenerateParams{})
	if err != nil {
		if callCtx.Err() != nil {
			return nil, corerrors.NewTimeout("failover: provider deadline exceeded", err)
		}
		return nil, corerrors.NewProviderUnavailable("failover: provider generate failed", err)
	}
	if resp.ResponseTimeSeconds == 0 {
		resp.ResponseTimeSeconds = time.Since(start).Seconds()
	}
	return resp, nil
}

func (m *Manager) recordUsage(provider string) {
	m.usageMu.Lock()
	defer m.usageMu.Unlock()
	m.usage[provider]++
}

func (m *Manager) recordResponseTime(seconds float64) {
	m.avgMu.Lock()
	defer m.avgMu.Unlock()
	m.avgCount++
	m.avgSecs += (seconds - m.avgSecs) / float64(m.avgCount)
}

// Metrics reports the counters kept across the chain's lifetime.
func (m *Manager) Metrics() map[string]any {
	m.usageMu.Lock()
	usage := make(map[string]int64, len(m.usage))
	for k, v := range m.usage {
		usage[k] = v
	}
	m.usageMu.Unlock()

	m.avgMu.Lock()
	avg := m.avgSecs
	m.avgMu.Unlock()

	return map[string]any{
		"successful_requests": m.successfulRequests.Load(),
		"failed_requests":     m.failedRequests.Load(),
		"fallback_requests":   m.fallbackRequests.Load(),
		"provider_usage":      usage,
		"avg_response_time":   avg,
	}
}

// Health reports an error if no provider in the chain is reachable.
func (m *Manager) Health(ctx context.Context) error {
	if len(m.providers) == 0 {
		return corerrors.NewProviderUnavailable("failover: no providers constructed", nil)
	}
	var lastErr error
	for _, p := range m.providers {
		err := p.Health(ctx)
		if err == nil {
			return nil
		}
		lastErr = err
	}
	return corerrors.NewProviderUnavailable("failover: no provider in chain is healthy", lastErr)
}
