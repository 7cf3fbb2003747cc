// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package llmprovider

import (
	"context"
	"sync"
	"time"
)

// RateLimiterConfig configures a token-bucket limiter. Each provider client
// that enables it builds its own RateLimiter, so the limit applies per
// client, not per backend.
type RateLimiterConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	BurstCapacity     int
}

// DefaultRateLimiterConfig is a conservative default for a remote API
// backend (Anthropic direct or Bedrock).
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Enabled:           true,
		RequestsPerSecond: 2.0,
		BurstCapacity:     5,
	}
}

// RateLimiter is a token-bucket limiter. Do blocks until a token is
// available or ctx is done, then invokes call.
type RateLimiter struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64
	lastRefill time.Time
}

// NewRateLimiter builds a RateLimiter from cfg. The bucket starts full.
func NewRateLimiter(cfg RateLimiterConfig) *RateLimiter {
	max := float64(cfg.BurstCapacity)
	if max <= 0 {
		max = 1
	}
	rate := cfg.RequestsPerSecond
	if rate <= 0 {
		rate = 1
	}
	return &RateLimiter{
		tokens:     max,
		maxTokens:  max,
		refillRate: rate,
		lastRefill: time.Now(),
	}
}

func (r *RateLimiter) refill() {
	now := time.Now()
	elapsed := now.Sub(r.lastRefill).Seconds()
	r.lastRefill = now
	r.tokens += elapsed * r.refillRate
	if r.tokens > r.maxTokens {
		r.tokens = r.maxTokens
	}
}

// Do waits for a token, then runs call and returns its result.
func (r *RateLimiter) Do(ctx context.Context, call func(context.Context) (any, error)) (any, error) {
	for {
		r.mu.Lock()
		r.refill()
		if r.tokens >= 1 {
			r.tokens--
			r.mu.Unlock()
			return call(ctx)
		}
		wait := time.Duration((1 - r.tokens) / r.refillRate * float64(time.Second))
		r.mu.Unlock()

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}
