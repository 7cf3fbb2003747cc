// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package service wires C1 through C8 into the one request-facing and
// admin-facing surface both cmd/corerouterd and cmd/coreroutectl build
// against: a Service value constructed once from config and held by
// reference, not package-level globals.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/complexity"
	"github.com/teradata-labs/corerouter/pkg/config"
	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/failover"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/factory"
	"github.com/teradata-labs/corerouter/pkg/maintenance"
	"github.com/teradata-labs/corerouter/pkg/memory"
	"github.com/teradata-labs/corerouter/pkg/metrics"
	"github.com/teradata-labs/corerouter/pkg/modelregistry"
	"github.com/teradata-labs/corerouter/pkg/router"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// Service is the dependency-injected façade over every component.
// Methods are safe for concurrent use; construction is not (build once,
// then share the pointer).
type Service struct {
	registry  *modelregistry.Registry
	lifecycle *lifecycle.Manager
	router    *router.Router
	failover  *failover.Manager
	store     *contextstore.Store
	memory    *memory.Extractor
	sweeper   *maintenance.Sweeper
	log       *zap.Logger
}

// New wires already-constructed components into a Service. Prefer Build
// for the common case of constructing everything from a config.Deployment.
func New(registry *modelregistry.Registry, lm *lifecycle.Manager, rt *router.Router, fo *failover.Manager, store *contextstore.Store, mem *memory.Extractor, sweeper *maintenance.Sweeper) *Service {
	return &Service{
		registry:  registry,
		lifecycle: lm,
		router:    rt,
		failover:  fo,
		store:     store,
		memory:    mem,
		sweeper:   sweeper,
		log:       log.Named("service"),
	}
}

// Build constructs every component from a parsed deployment config and
// returns the wired Service. The caller owns calling Start/Stop on the
// returned Service's maintenance sweeper.
func Build(ctx context.Context, d *config.Deployment) (*Service, error) {
	registry := modelregistry.New(d.ModelOverrides())
	lm := lifecycle.New(d.LifecycleConfig(), lifecycle.NoopProbe{})

	providerCfg := d.ProviderFactoryConfig()
	localName := d.LocalProviderName()
	for _, mc := range registry.All() {
		p, err := factory.New(ctx, localName, withModel(providerCfg, mc.ModelName))
		if err != nil {
			return nil, fmt.Errorf("service: construct local provider for tier %q: %w", mc.Tier, err)
		}
		lm.Register(mc.ModelName, p, mc.GPUMemoryMB)
	}

	rt := router.New(complexity.New(), registry, lm)

	store := contextstore.New(ctx, d.ContextStoreConfig())

	var factories []failover.Factory
	for _, name := range d.ProviderOrder() {
		name := name
		factories = append(factories, func(ctx context.Context) (llmprovider.Provider, error) {
			return factory.New(ctx, name, providerCfg)
		})
	}
	fo := failover.New(ctx, d.FailoverConfig(), store, factories...)

	mem := memory.New(d.MemoryConfig())
	sweeper := maintenance.New(d.MaintenanceConfig(), lm, store)

	return New(registry, lm, rt, fo, store, mem, sweeper), nil
}

func withModel(cfg factory.Config, model string) factory.Config {
	cfg.OllamaModel = model
	cfg.AnthropicModel = model
	cfg.BedrockModelID = model
	return cfg
}

// StartMaintenance begins the background optimize_memory/cleanup_expired
// sweeps. Callers that only need one-shot admin operations (coreroutectl)
// can skip this.
func (s *Service) StartMaintenance(ctx context.Context) error {
	return s.sweeper.Start(ctx)
}

// StopMaintenance stops the sweeps, waiting up to the configured grace
// period for an in-flight sweep to finish.
func (s *Service) StopMaintenance(ctx context.Context) {
	s.sweeper.Stop(ctx)
}

// Generate implements the full §2 data/control flow: C7 load, C1+C5
// tier selection and generation, C6 escalation if every local tier
// fails, C8 memory extraction, and C7 persistence with TTL refresh.
func (s *Service) Generate(ctx context.Context, query, convID string) (*types.LLMResponse, error) {
	start := time.Now()
	if convID == "" {
		convID = uuid.NewString()
		s.log.Debug("caller omitted conversation_id, synthesized one", zap.String("conversation_id", convID))
	}
	cc, err := s.store.Get(ctx, convID)
	if err != nil {
		return nil, fmt.Errorf("service: load conversation: %w", err)
	}
	cc.AddMessage(types.RoleUser, query)

	resp, tier, escalated, err := s.generateViaRouterOrFailover(ctx, query, convID, cc)
	if err != nil {
		metrics.RecordRequest(string(tier), "none", "error", time.Since(start))
		return nil, err
	}

	if escalated {
		// The failover chain already persisted its own user+assistant
		// turns (it manages the context store independently); reload
		// that canonical copy rather than layering our local edits
		// over a stale pre-escalation snapshot.
		reloaded, reloadErr := s.store.Get(ctx, convID)
		if reloadErr == nil {
			cc = reloaded
		}
	} else if resp.Provider != "" && resp.Error == "" {
		cc.AddMessage(types.RoleAssistant, resp.Content)
	}

	turnNumber := len(cc.Messages)
	cc = s.memory.ProcessTurn(cc, turnNumber)

	if err := s.store.Update(ctx, convID, cc); err != nil {
		s.log.Warn("failed to persist conversation after generate", zap.String("conversation_id", convID), zap.Error(err))
	}
	resp.ConversationID = convID

	status := "ok"
	if resp.Error != "" {
		status = "all_providers_failed"
		metrics.RecordAllProvidersFailed()
	}
	metrics.RecordRequest(string(tier), resp.Provider, status, time.Since(start))
	return resp, nil
}

// generateViaRouterOrFailover tries C5's tiered ladder first; only when
// that ladder is fully exhausted does it escalate into C6's provider
// chain (§2 step 5's "then C6's next provider").
func (s *Service) generateViaRouterOrFailover(ctx context.Context, query, convID string, cc *types.ConversationContext) (resp *types.LLMResponse, tier types.Tier, escalated bool, err error) {
	resp, err = s.router.Generate(ctx, query, cc)
	if err == nil {
		tier = types.TierBalanced
		if t, ok := resp.RoutingMetadata["selected_tier"].(string); ok {
			tier = types.Tier(t)
		}
		return resp, tier, false, nil
	}

	decision, routeErr := s.router.Route(query, cc)
	tier = types.TierBalanced
	if routeErr == nil {
		tier = decision.SelectedTier
	}

	s.log.Warn("tiered router exhausted its own fallback ladder, escalating to failover chain",
		zap.String("conversation_id", convID), zap.Error(err))

	resp, err = s.failover.Generate(ctx, query, convID, tier)
	if err != nil {
		return nil, tier, true, err
	}
	return resp, tier, true, nil
}

// RouteOnly runs C1+C5's tier selection without generating a response,
// for callers that only want the routing decision (e.g. a dry-run CLI).
func (s *Service) RouteOnly(ctx context.Context, query, convID string) (types.RoutingDecision, error) {
	if convID == "" {
		convID = uuid.NewString()
	}
	cc, err := s.store.Get(ctx, convID)
	if err != nil {
		return types.RoutingDecision{}, fmt.Errorf("service: load conversation: %w", err)
	}
	return s.router.Route(query, cc)
}

// LoadModel asks C4 to make a tier's model resident, under the same
// admission rule as any other load. force=true calls the provider's Load
// again even when the model is already LOADED.
func (s *Service) LoadModel(ctx context.Context, tier types.Tier, force bool) (bool, error) {
	cfg, err := s.registry.Get(tier)
	if err != nil {
		return false, err
	}
	return s.lifecycle.Load(ctx, cfg.ModelName, force)
}

// UnloadModel releases a tier's resident model.
func (s *Service) UnloadModel(ctx context.Context, tier types.Tier) (bool, error) {
	cfg, err := s.registry.Get(tier)
	if err != nil {
		return false, err
	}
	return s.lifecycle.Unload(ctx, cfg.ModelName)
}

// OptimizeMemoryNow runs C4's eviction sweep immediately.
func (s *Service) OptimizeMemoryNow(ctx context.Context) (lifecycle.OptimizeResult, error) {
	return s.sweeper.TriggerOptimizeNow(ctx)
}

// CleanupExpiredNow runs C7's expired-conversation sweep immediately.
func (s *Service) CleanupExpiredNow(ctx context.Context) int {
	return s.sweeper.TriggerCleanupNow(ctx)
}

// Metrics returns a snapshot combining C4's cumulative lifecycle
// counters, C6's failover counters, and C7's memory usage, for
// admin/metrics().
func (s *Service) Metrics(ctx context.Context) map[string]any {
	out := map[string]any{
		"models":   s.lifecycle.Snapshot(),
		"failover": s.failover.Metrics(),
	}
	if usage, err := s.store.MemoryUsage(ctx); err == nil {
		out["context_store"] = usage
	}
	return out
}

// Health reports whether the request-facing path is usable: the context
// store and at least one failover provider must be reachable.
func (s *Service) Health(ctx context.Context) error {
	if err := s.store.Health(ctx); err != nil {
		return fmt.Errorf("service: context store unhealthy: %w", err)
	}
	if err := s.failover.Health(ctx); err != nil {
		return fmt.Errorf("service: failover chain unhealthy: %w", err)
	}
	return nil
}
