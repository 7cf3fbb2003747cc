// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package lifecycle owns the per-model LOADED/UNLOADED state machine: load
// admission, idle eviction, usage-weighted preload selection, and the
// cumulative counters the admin surface reports.
package lifecycle

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/teradata-labs/corerouter/internal/csync"
	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/corerrors"
	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
	"go.uber.org/zap"
)

// GPUProbe abstracts resource-metric collection so tests and non-GPU
// deployments can supply a stub. A real deployment wires this to whatever
// local GPU/CPU/RAM introspection is available on the host.
type GPUProbe interface {
	Metrics(ctx context.Context) (ResourceMetrics, error)
}

// ResourceMetrics is the snapshot resource_metrics() reports.
type ResourceMetrics struct {
	GPUMemTotalMB int
	GPUMemUsedMB  int
	GPUMemFreeMB  int
	GPUUtilPercent float64
	CPUPercent     float64
	RAMUsedMB      int
	RAMTotalMB     int
	At             time.Time
}

// NoopProbe always reports zero utilization. Useful for CPU-only
// deployments or tests that don't exercise the memory-threshold admission
// rule.
type NoopProbe struct{}

func (NoopProbe) Metrics(ctx context.Context) (ResourceMetrics, error) {
	return ResourceMetrics{At: time.Now()}, nil
}

// Config holds the admission/eviction thresholds.
type Config struct {
	MaxConcurrentModels     int
	MemoryThresholdPercent  float64
	IdleTimeoutMinutes      int
	PreloadTopN             int
}

// DefaultConfig matches the documented defaults.
func DefaultConfig() Config {
	return Config{
		MaxConcurrentModels:    3,
		MemoryThresholdPercent: 0.85,
		IdleTimeoutMinutes:     15,
		PreloadTopN:            3,
	}
}

type entry struct {
	provider llmprovider.Provider
	gpuMemMB int
}

// Counters are the cumulative, process-lifetime stats the admin surface
// reports alongside per-model ModelInfo.
type Counters struct {
	ModelsLoaded   atomic.Int64
	ModelsUnloaded atomic.Int64
	CacheHits      atomic.Int64
	CacheMisses    atomic.Int64
	MemorySavedMB  atomic.Int64
	LoadTimeTotal  atomic.Int64 // milliseconds
}

// Manager is the lifecycle state machine. Safe for concurrent use.
type Manager struct {
	cfg   Config
	probe GPUProbe
	log   *zap.Logger

	entries *csync.Map[string, entry]
	info    *csync.Map[string, *types.ModelInfo]
	locks   *csync.Map[string, *sync.Mutex]

	usageMu sync.Mutex
	usage   map[string][]time.Time

	counters Counters
}

// New builds a Manager. probe may be nil, in which case NoopProbe is used.
func New(cfg Config, probe GPUProbe) *Manager {
	if cfg.MaxConcurrentModels == 0 {
		cfg.MaxConcurrentModels = 3
	}
	if cfg.MemoryThresholdPercent == 0 {
		cfg.MemoryThresholdPercent = 0.85
	}
	if cfg.IdleTimeoutMinutes == 0 {
		cfg.IdleTimeoutMinutes = 15
	}
	if cfg.PreloadTopN == 0 {
		cfg.PreloadTopN = 3
	}
	if probe == nil {
		probe = NoopProbe{}
	}
	return &Manager{
		cfg:     cfg,
		probe:   probe,
		log:     log.Named("lifecycle"),
		entries: csync.NewMap[string, entry](),
		info:    csync.NewMap[string, *types.ModelInfo](),
		locks:   csync.NewMap[string, *sync.Mutex](),
		usage:   make(map[string][]time.Time),
	}
}

// Register binds a model name to the Provider that serves it and the GPU
// memory the catalog entry reserves for it. Call once per model at
// startup, before any load/unload traffic.
func (m *Manager) Register(model string, p llmprovider.Provider, gpuMemMB int) {
	m.entries.Set(model, entry{provider: p, gpuMemMB: gpuMemMB})
	m.info.Set(model, &types.ModelInfo{ModelName: model, Status: types.StatusUnloaded})
}

func (m *Manager) lockFor(model string) *sync.Mutex {
	return m.locks.GetOrCreate(model, func() *sync.Mutex { return &sync.Mutex{} })
}

// Status returns a copy of the current ModelInfo, or false if model is
// unregistered.
func (m *Manager) Status(model string) (types.ModelInfo, bool) {
	info, ok := m.info.Get(model)
	if !ok {
		return types.ModelInfo{}, false
	}
	return *info, true
}

func (m *Manager) loadedModels() []string {
	var loaded []string
	for _, k := range m.info.Keys() {
		info, ok := m.info.Get(k)
		if ok && info.Status == types.StatusLoaded {
			loaded = append(loaded, k)
		}
	}
	return loaded
}

// canLoad applies the admission rule: concurrency cap and memory
// threshold. Load calls it while holding the loading model's own mutex;
// canLoad takes no per-model lock itself and only reads snapshot state.
func (m *Manager) canLoad(ctx context.Context) (bool, error) {
	if len(m.loadedModels()) >= m.cfg.MaxConcurrentModels {
		return false, nil
	}
	metrics, err := m.probe.Metrics(ctx)
	if err != nil {
		return false, fmt.Errorf("lifecycle: resource probe: %w", err)
	}
	if metrics.GPUMemTotalMB > 0 {
		used := float64(metrics.GPUMemUsedMB) / float64(metrics.GPUMemTotalMB)
		if used >= m.cfg.MemoryThresholdPercent {
			return false, nil
		}
	}
	return true, nil
}

// Load transitions model UNLOADED→LOADING→LOADED. If the model is already
// LOADED, Load records a cache hit and returns true without calling the
// provider again, unless force is true. Concurrent Load calls for the same
// model serialize on a per-model mutex; the later caller observes the
// post-transition state rather than re-entering the provider.
func (m *Manager) Load(ctx context.Context, model string, force bool) (bool, error) {
	lock := m.lockFor(model)
	lock.Lock()
	defer lock.Unlock()

	info, ok := m.info.Get(model)
	if !ok {
		return false, corerrors.NewInvalidInput(fmt.Sprintf("lifecycle: unknown model %q", model))
	}

	if info.Status == types.StatusLoaded && !force {
		info.LastUsed = time.Now()
		info.UsageCount++
		m.recordUsage(model)
		m.counters.CacheHits.Add(1)
		return true, nil
	}

	ok, err := m.canLoad(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, corerrors.NewResourceExhausted(fmt.Sprintf("lifecycle: cannot admit model %q", model))
	}

	ent, _ := m.entries.Get(model)
	info.Status = types.StatusLoading
	info.ErrorMessage = ""

	start := time.Now()
	loadErr := ent.provider.Load(ctx)
	elapsed := time.Since(start)

	if loadErr != nil {
		info.Status = types.StatusError
		info.ErrorMessage = loadErr.Error()
		m.log.Warn("model load failed", zap.String("model", model), zap.Error(loadErr))
		return false, corerrors.NewModelLoadFailed(fmt.Sprintf("lifecycle: load %q failed", model), loadErr)
	}

	info.Status = types.StatusLoaded
	info.LoadedAt = start
	info.LastUsed = start
	info.UsageCount++
	info.LoadTimeSeconds = elapsed.Seconds()
	info.MemoryUsageMB = ent.gpuMemMB

	m.recordUsage(model)
	m.counters.CacheMisses.Add(1)
	m.counters.ModelsLoaded.Add(1)
	m.counters.LoadTimeTotal.Add(elapsed.Milliseconds())

	return true, nil
}

// Unload transitions model LOADED→UNLOADING→UNLOADED.
func (m *Manager) Unload(ctx context.Context, model string) (bool, error) {
	lock := m.lockFor(model)
	lock.Lock()
	defer lock.Unlock()

	info, ok := m.info.Get(model)
	if !ok {
		return false, corerrors.NewInvalidInput(fmt.Sprintf("lifecycle: unknown model %q", model))
	}
	if info.Status != types.StatusLoaded {
		return false, nil
	}

	ent, _ := m.entries.Get(model)
	info.Status = types.StatusUnloading
	if err := ent.provider.Unload(ctx); err != nil {
		info.Status = types.StatusError
		info.ErrorMessage = err.Error()
		return false, corerrors.NewModelLoadFailed(fmt.Sprintf("lifecycle: unload %q failed", model), err)
	}

	freed := info.MemoryUsageMB
	info.Status = types.StatusUnloaded
	info.MemoryUsageMB = 0
	m.counters.ModelsUnloaded.Add(1)
	m.counters.MemorySavedMB.Add(int64(freed))

	return true, nil
}

func (m *Manager) recordUsage(model string) {
	now := time.Now()
	m.usageMu.Lock()
	defer m.usageMu.Unlock()
	cutoff := now.Add(-24 * time.Hour)
	window := m.usage[model]
	window = append(window, now)
	pruned := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			pruned = append(pruned, t)
		}
	}
	m.usage[model] = pruned
}

func (m *Manager) usageScore(model string) (recent, total int) {
	m.usageMu.Lock()
	defer m.usageMu.Unlock()
	window := m.usage[model]
	return len(window), len(window)
}

// OptimizeResult is the outcome of a memory-optimization sweep.
type OptimizeResult struct {
	Unloaded      []string
	MemoryFreedMB int
	KeptLoaded    []string
	Elapsed       time.Duration
}

// OptimizeMemory evicts idle LOADED models per the eviction rule, always
// keeping at least one model resident. Ties in "who to evict" are broken
// by most-recently-used: the least-recently-used idle model is evicted
// first (see DESIGN.md OQ-1).
func (m *Manager) OptimizeMemory(ctx context.Context) (OptimizeResult, error) {
	start := time.Now()
	idleCutoff := time.Duration(m.cfg.IdleTimeoutMinutes) * time.Minute

	type candidate struct {
		model    string
		lastUsed time.Time
	}
	var candidates []candidate
	loadedCount := 0

	for _, k := range m.info.Keys() {
		info, ok := m.info.Get(k)
		if !ok || info.Status != types.StatusLoaded {
			continue
		}
		loadedCount++
		idleFor := time.Since(info.LastUsed)
		if info.LastUsed.IsZero() || idleFor >= idleCutoff {
			candidates = append(candidates, candidate{model: k, lastUsed: info.LastUsed})
		}
	}

	// Most-recently-used retained: sort candidates oldest-first so the
	// least-recently-used model is evicted first when a floor applies.
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].lastUsed.Before(candidates[j].lastUsed)
	})

	maxEvictions := loadedCount - 1
	if maxEvictions < 0 {
		maxEvictions = 0
	}
	if len(candidates) > maxEvictions {
		candidates = candidates[:maxEvictions]
	}

	var (
		unloadedMu sync.Mutex
		unloaded   []string
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, c := range candidates {
		c := c
		g.Go(func() error {
			ok, err := m.Unload(gctx, c.model)
			if err != nil {
				m.log.Warn("optimize_memory: unload failed", zap.String("model", c.model), zap.Error(err))
				return nil
			}
			if ok {
				unloadedMu.Lock()
				unloaded = append(unloaded, c.model)
				unloadedMu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	// Preserve the oldest-first ordering candidates were computed in,
	// rather than the goroutine completion order.
	order := make(map[string]int, len(candidates))
	for i, c := range candidates {
		order[c.model] = i
	}
	sort.Slice(unloaded, func(i, j int) bool { return order[unloaded[i]] < order[unloaded[j]] })

	result := OptimizeResult{Unloaded: unloaded}

	for _, k := range m.info.Keys() {
		info, ok := m.info.Get(k)
		if ok && info.Status == types.StatusLoaded {
			result.KeptLoaded = append(result.KeptLoaded, k)
		}
	}

	ent := m.entries
	freed := 0
	for _, model := range result.Unloaded {
		if e, ok := ent.Get(model); ok {
			freed += e.gpuMemMB
		}
	}
	result.MemoryFreedMB = freed
	result.Elapsed = time.Since(start)
	return result, nil
}

// PreloadPopular loads the top-N models by weighted usage score (recent
// usage x2 + total usage) that are not already loaded, subject to the same
// admission rule as Load.
func (m *Manager) PreloadPopular(ctx context.Context) map[string]bool {
	type scored struct {
		model string
		score int
	}
	var all []scored
	for _, model := range m.entries.Keys() {
		if info, ok := m.info.Get(model); ok && info.Status == types.StatusLoaded {
			continue
		}
		recent, total := m.usageScore(model)
		all = append(all, scored{model: model, score: recent*2 + total})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score > all[j].score })

	n := m.cfg.PreloadTopN
	if n > len(all) {
		n = len(all)
	}

	results := make(map[string]bool)
	for _, s := range all[:n] {
		ok, err := m.Load(ctx, s.model, false)
		if err != nil {
			results[s.model] = false
			continue
		}
		results[s.model] = ok
	}
	return results
}

// ResourceMetricsSnapshot delegates to the injected GPUProbe.
func (m *Manager) ResourceMetricsSnapshot(ctx context.Context) (ResourceMetrics, error) {
	return m.probe.Metrics(ctx)
}

// Snapshot returns cumulative counters for the admin metrics surface.
func (m *Manager) Snapshot() map[string]int64 {
	return map[string]int64{
		"models_loaded":   m.counters.ModelsLoaded.Load(),
		"models_unloaded": m.counters.ModelsUnloaded.Load(),
		"cache_hits":      m.counters.CacheHits.Load(),
		"cache_misses":    m.counters.CacheMisses.Load(),
		"memory_saved_mb": m.counters.MemorySavedMB.Load(),
		"load_time_total_ms": m.counters.LoadTimeTotal.Load(),
	}
}

// Provider returns the Provider registered for model, for callers (the
// router) that need to invoke Generate directly once residency is assured.
func (m *Manager) Provider(model string) (llmprovider.Provider, bool) {
	ent, ok := m.entries.Get(model)
	if !ok {
		return nil, false
	}
	return ent.provider, true
}
