// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package maintenance runs the background sweep that keeps GPU residency
// and conversation storage trimmed without caller involvement: a
// periodic optimize_memory (C4) plus cleanup_expired (C7) pass.
package maintenance

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
)

// Config controls the two independent sweep schedules, each a standard
// five-field cron expression (or a `@every` shorthand).
type Config struct {
	OptimizeMemoryCron  string
	CleanupExpiredCron  string
	ShutdownGracePeriod time.Duration
}

// DefaultConfig sweeps memory every 5 minutes and expired conversations
// every 10.
func DefaultConfig() Config {
	return Config{
		OptimizeMemoryCron:  "@every 5m",
		CleanupExpiredCron:  "@every 10m",
		ShutdownGracePeriod: 30 * time.Second,
	}
}

// Sweeper owns a cron engine driving C4's and C7's maintenance passes.
type Sweeper struct {
	cfg       Config
	cron      *cron.Cron
	lifecycle *lifecycle.Manager
	store     *contextstore.Store
	log       *zap.Logger
}

// New wires a Sweeper. Start must be called to begin scheduling.
func New(cfg Config, lm *lifecycle.Manager, store *contextstore.Store) *Sweeper {
	return &Sweeper{
		cfg:       cfg,
		cron:      cron.New(),
		lifecycle: lm,
		store:     store,
		log:       log.Named("maintenance"),
	}
}

// Start registers both sweeps with the cron engine and begins running
// it in the background.
func (s *Sweeper) Start(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.cfg.OptimizeMemoryCron, func() { s.runOptimize(ctx) }); err != nil {
		return fmt.Errorf("maintenance: schedule optimize_memory: %w", err)
	}
	if _, err := s.cron.AddFunc(s.cfg.CleanupExpiredCron, func() { s.runCleanup(ctx) }); err != nil {
		return fmt.Errorf("maintenance: schedule cleanup_expired: %w", err)
	}
	s.cron.Start()
	s.log.Info("maintenance sweeper started",
		zap.String("optimize_memory_cron", s.cfg.OptimizeMemoryCron),
		zap.String("cleanup_expired_cron", s.cfg.CleanupExpiredCron))
	return nil
}

// Stop drains in-flight sweeps, waiting up to ShutdownGracePeriod.
func (s *Sweeper) Stop(ctx context.Context) {
	stopCtx := s.cron.Stop()
	grace, cancel := context.WithTimeout(ctx, s.cfg.ShutdownGracePeriod)
	defer cancel()
	select {
	case <-stopCtx.Done():
		s.log.Info("maintenance sweeper stopped")
	case <-grace.Done():
		s.log.Warn("maintenance sweeper shutdown grace period elapsed; a sweep may still be running")
	}
}

func (s *Sweeper) runOptimize(ctx context.Context) {
	result, err := s.lifecycle.OptimizeMemory(ctx)
	if err != nil {
		s.log.Error("optimize_memory sweep failed", zap.Error(err))
		return
	}
	s.log.Info("optimize_memory sweep complete",
		zap.Strings("unloaded", result.Unloaded),
		zap.Int("memory_freed_mb", result.MemoryFreedMB),
		zap.Duration("elapsed", result.Elapsed))
}

func (s *Sweeper) runCleanup(ctx context.Context) {
	removed := s.store.CleanupExpired(ctx)
	s.log.Info("cleanup_expired sweep complete", zap.Int("removed", removed))
}

// TriggerOptimizeNow runs optimize_memory immediately, outside the cron
// schedule, for admin-triggered operations.
func (s *Sweeper) TriggerOptimizeNow(ctx context.Context) (lifecycle.OptimizeResult, error) {
	return s.lifecycle.OptimizeMemory(ctx)
}

// TriggerCleanupNow runs cleanup_expired immediately.
func (s *Sweeper) TriggerCleanupNow(ctx context.Context) int {
	return s.store.CleanupExpired(ctx)
}
