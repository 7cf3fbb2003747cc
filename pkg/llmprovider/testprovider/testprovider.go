// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package testprovider is an in-memory Provider used by other packages'
// tests to exercise the lifecycle manager, router, and failover manager
// without a real backend.
package testprovider

import (
	"context"
	"sync"
	"time"

	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// Provider is a scriptable llmprovider.Provider for tests.
type Provider struct {
	mu sync.Mutex

	name  string
	model string

	LoadErr     error
	UnloadErr   error
	HealthErr   error
	GenerateErr error
	Response    types.LLMResponse
	LoadDelay   time.Duration
	GenDelay    time.Duration

	LoadCalls     int
	UnloadCalls   int
	GenerateCalls int
}

var _ llmprovider.Provider = (*Provider)(nil)

// New returns a Provider reporting name/model, with a default echo response.
func New(name, model string) *Provider {
	return &Provider{
		name:  name,
		model: model,
		Response: types.LLMResponse{
			Content:  "ok",
			Provider: name,
			Model:    model,
		},
	}
}

func (p *Provider) Name() string  { return p.name }
func (p *Provider) Model() string { return p.model }

func (p *Provider) Load(ctx context.Context) error {
	p.mu.Lock()
	p.LoadCalls++
	delay := p.LoadDelay
	p.mu.Unlock()
	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return p.LoadErr
}

func (p *Provider) Unload(ctx context.Context) error {
	p.mu.Lock()
	p.UnloadCalls++
	p.mu.Unlock()
	return p.UnloadErr
}

func (p *Provider) Health(ctx context.Context) error {
	return p.HealthErr
}

func (p *Provider) Generate(ctx context.Context, messages []types.Message, params types.GenerateParams) (*types.LLMResponse, error) {
	p.mu.Lock()
	p.GenerateCalls++
	delay := p.GenDelay
	genErr := p.GenerateErr
	resp := p.Response
	p.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if genErr != nil {
		return nil, genErr
	}
	resp.Timestamp = time.Now()
	return &resp, nil
}
