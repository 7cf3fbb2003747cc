// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/teradata-labs/corerouter/internal/log"
)

// Admin is the hot-reloadable runtime layer over the same YAML file Load
// parses: a deployment restarts to pick up Deployment changes, but tier
// overrides and provider credentials can be edited in place and take
// effect on the next read without a restart.
type Admin struct {
	mu   sync.RWMutex
	v    *viper.Viper
	path string
	log  *zap.Logger
}

// OpenAdmin loads path into a viper instance scoped to this one file. It
// does not watch for changes until Watch is called.
func OpenAdmin(path string) (*Admin, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: admin open %s: %w", path, err)
	}
	return &Admin{v: v, path: path, log: log.Named("config")}, nil
}

// Watch starts an fsnotify watch on the backing file and calls onReload
// after viper has re-read it, so callers can rebuild the components
// whose Config came from this file.
func (a *Admin) Watch(onReload func()) {
	a.v.OnConfigChange(func(e fsnotify.Event) {
		a.log.Info("config file changed, reloaded", zap.String("path", e.Name))
		if onReload != nil {
			onReload()
		}
	})
	a.v.WatchConfig()
}

// TierOverrideField reads a single field off spec.tiers.<tier>.<field>,
// or zero-value ok=false if unset.
func (a *Admin) TierOverrideField(tier, field string) (any, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	key := fmt.Sprintf("spec.tiers.%s.%s", tier, field)
	if !a.v.IsSet(key) {
		return nil, false
	}
	return a.v.Get(key), true
}

// SetTierOverrideField writes spec.tiers.<tier>.<field> = value and
// persists it to the backing file. A concurrent reload triggered by
// Watch will observe the write once fsnotify fires.
func (a *Admin) SetTierOverrideField(tier, field string, value any) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := fmt.Sprintf("spec.tiers.%s.%s", tier, field)
	a.v.Set(key, value)
	if err := a.v.WriteConfig(); err != nil {
		return fmt.Errorf("config: write tier override %s: %w", key, err)
	}
	return nil
}

// SetProviderCredential writes spec.providers.<provider>.<field> = value
// and persists it, for rotating an API key or access credential without
// a restart.
func (a *Admin) SetProviderCredential(provider, field, value string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	key := fmt.Sprintf("spec.providers.%s.%s", provider, field)
	a.v.Set(key, value)
	if err := a.v.WriteConfig(); err != nil {
		return fmt.Errorf("config: write provider credential %s.%s: %w", provider, field, err)
	}
	return nil
}

// ProviderOrder returns the current spec.providers.order, reflecting any
// hot-reloaded change.
func (a *Admin) ProviderOrder() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.v.GetStringSlice("spec.providers.order")
}

// SetProviderOrder writes a new failover preference order and persists
// it.
func (a *Admin) SetProviderOrder(order []string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.v.Set("spec.providers.order", order)
	if err := a.v.WriteConfig(); err != nil {
		return fmt.Errorf("config: write provider order: %w", err)
	}
	return nil
}

// Reload re-parses the full Deployment document through Load, so callers
// that need the typed view (rather than individual viper keys) can pick
// up the latest file after a Watch-triggered change.
func (a *Admin) Reload() (*Deployment, error) {
	return Load(a.path)
}
