// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package config loads the deployment-time YAML document that wires every
// component's Config and exposes an admin-mutable runtime layer for
// settings an operator needs to change without a restart.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	bootconfig "github.com/teradata-labs/corerouter/internal/config"
	"github.com/teradata-labs/corerouter/pkg/contextstore"
	"github.com/teradata-labs/corerouter/pkg/failover"
	"github.com/teradata-labs/corerouter/pkg/lifecycle"
	"github.com/teradata-labs/corerouter/pkg/llmprovider/factory"
	"github.com/teradata-labs/corerouter/pkg/maintenance"
	"github.com/teradata-labs/corerouter/pkg/memory"
	"github.com/teradata-labs/corerouter/pkg/modelregistry"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// Deployment is the root of the deployment YAML document.
type Deployment struct {
	APIVersion string             `yaml:"apiVersion"`
	Kind       string             `yaml:"kind"`
	Metadata   DeploymentMetadata `yaml:"metadata"`
	Spec       DeploymentSpec     `yaml:"spec"`
}

// DeploymentMetadata names the deployment for logging and metrics labels.
type DeploymentMetadata struct {
	Name   string            `yaml:"name"`
	Labels map[string]string `yaml:"labels"`
}

// DeploymentSpec is the union of every component's Config, each optional;
// an absent section leaves that component on its own DefaultConfig.
type DeploymentSpec struct {
	Providers    ProvidersYAML           `yaml:"providers"`
	Tiers        map[string]TierOverride `yaml:"tiers"`
	Lifecycle    *LifecycleYAML          `yaml:"lifecycle"`
	ContextStore *ContextStoreYAML       `yaml:"context_store"`
	Failover     *FailoverYAML           `yaml:"failover"`
	Memory       *MemoryYAML             `yaml:"memory"`
	Maintenance  *MaintenanceYAML        `yaml:"maintenance"`
	Settings     GlobalSettingsYAML      `yaml:"settings"`
}

// ProvidersYAML lists the providers to construct, in failover preference
// order, plus their backend-specific credentials. Local names the
// single backend the lifecycle manager loads/unloads per tier; it is
// typically "ollama" and need not appear in Order, since Order is the
// chain C6 walks once C5's own tier ladder is exhausted.
type ProvidersYAML struct {
	Local     string         `yaml:"local"`
	Order     []string       `yaml:"order"`
	Anthropic *AnthropicYAML `yaml:"anthropic"`
	Bedrock   *BedrockYAML   `yaml:"bedrock"`
	Ollama    *OllamaYAML    `yaml:"ollama"`
	Common    CommonProvider `yaml:"common"`
}

// CommonProvider holds settings shared across every backend.
type CommonProvider struct {
	MaxTokens     int     `yaml:"max_tokens"`
	Temperature   float64 `yaml:"temperature"`
	TimeoutSecond int     `yaml:"timeout_seconds"`
}

// AnthropicYAML configures the direct Anthropic API backend. APIKey is
// normally left empty and supplied via ANTHROPIC_API_KEY so it never
// lands in a checked-in file; expandEnvVars also resolves a literal
// ${ANTHROPIC_API_KEY} placeholder here.
type AnthropicYAML struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// BedrockYAML configures the Anthropic-via-Bedrock backend.
type BedrockYAML struct {
	Region          string `yaml:"region"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	SessionToken    string `yaml:"session_token"`
	Profile         string `yaml:"profile"`
	ModelID         string `yaml:"model_id"`
}

// OllamaYAML configures the local Ollama backend.
type OllamaYAML struct {
	Endpoint string `yaml:"endpoint"`
	Model    string `yaml:"model"`
}

// TierOverride mirrors modelregistry.Overrides for one tier ("fast",
// "balanced", "powerful").
type TierOverride struct {
	ModelName          string  `yaml:"model_name"`
	MaxTokens          int     `yaml:"max_tokens"`
	ContextWindow      int     `yaml:"context_window"`
	GPUMemoryMB        int     `yaml:"gpu_memory_mb"`
	AvgTokensPerSecond float64 `yaml:"avg_tokens_per_second"`
	ConcurrentCapacity int     `yaml:"concurrent_capacity"`
	KeepAliveMinutes   int     `yaml:"keep_alive_minutes"`
}

// LifecycleYAML mirrors lifecycle.Config.
type LifecycleYAML struct {
	MaxConcurrentModels    int     `yaml:"max_concurrent_models"`
	MemoryThresholdPercent float64 `yaml:"memory_threshold_percent"`
	IdleTimeoutMinutes     int     `yaml:"idle_timeout_minutes"`
	PreloadTopN            int     `yaml:"preload_top_n"`
}

// ContextStoreYAML mirrors contextstore.Config. RedisPassword is normally
// left empty and supplied via an env var expansion in the raw YAML.
type ContextStoreYAML struct {
	TTLSeconds     int    `yaml:"ttl_seconds"`
	MaxMessages    int    `yaml:"max_messages"`
	MaxMessageSize int    `yaml:"max_message_size"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPassword  string `yaml:"redis_password"`
	RedisDB        int    `yaml:"redis_db"`
	SQLitePath     string `yaml:"sqlite_path"`
}

// FailoverYAML mirrors failover.Config.
type FailoverYAML struct {
	PrimaryTimeoutSeconds  float64 `yaml:"primary_timeout_seconds"`
	CriticalTimeoutSeconds float64 `yaml:"critical_timeout_seconds"`
}

// MemoryYAML mirrors memory.Config.
type MemoryYAML struct {
	MaxPreferences int `yaml:"max_preferences"`
	MaxFacts       int `yaml:"max_facts"`
	MaxKeywords    int `yaml:"max_keywords"`
}

// MaintenanceYAML mirrors maintenance.Config.
type MaintenanceYAML struct {
	OptimizeMemoryCron   string `yaml:"optimize_memory_cron"`
	CleanupExpiredCron   string `yaml:"cleanup_expired_cron"`
	ShutdownGraceSeconds int    `yaml:"shutdown_grace_seconds"`
}

// GlobalSettingsYAML holds cross-cutting deployment knobs.
type GlobalSettingsYAML struct {
	LogLevel  string `yaml:"log_level"`
	DebugMode bool   `yaml:"debug_mode"`
}

// Load reads path, expands ${VAR} references against the process
// environment, unmarshals the YAML document and validates it.
func Load(path string) (*Deployment, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	expanded := expandEnvVars(string(raw))

	var d Deployment
	if err := yaml.Unmarshal([]byte(expanded), &d); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}

	return &d, nil
}

func expandEnvVars(s string) string {
	return os.Expand(s, os.Getenv)
}

func (d *Deployment) validate() error {
	if d.Metadata.Name == "" {
		return fmt.Errorf("metadata.name is required")
	}
	if len(d.Spec.Providers.Order) == 0 {
		return fmt.Errorf("spec.providers.order must name at least one provider")
	}
	for _, p := range d.Spec.Providers.Order {
		switch p {
		case "ollama", "anthropic", "bedrock":
		default:
			return fmt.Errorf("spec.providers.order: unsupported provider %q", p)
		}
	}
	switch d.Spec.Providers.Local {
	case "", "ollama", "anthropic", "bedrock":
	default:
		return fmt.Errorf("spec.providers.local: unsupported provider %q", d.Spec.Providers.Local)
	}
	for tier := range d.Spec.Tiers {
		switch types.Tier(tier) {
		case types.TierFast, types.TierBalanced, types.TierPowerful:
		default:
			return fmt.Errorf("spec.tiers: unknown tier %q", tier)
		}
	}
	return nil
}

// ModelOverrides converts the YAML tier overrides into the map
// modelregistry.New expects.
func (d *Deployment) ModelOverrides() map[types.Tier]modelregistry.Overrides {
	out := make(map[types.Tier]modelregistry.Overrides, len(d.Spec.Tiers))
	for tier, o := range d.Spec.Tiers {
		out[types.Tier(tier)] = modelregistry.Overrides{
			ModelName:          o.ModelName,
			MaxTokens:          o.MaxTokens,
			ContextWindow:      o.ContextWindow,
			GPUMemoryMB:        o.GPUMemoryMB,
			AvgTokensPerSecond: o.AvgTokensPerSecond,
			ConcurrentCapacity: o.ConcurrentCapacity,
			KeepAliveMinutes:   o.KeepAliveMinutes,
		}
	}
	return out
}

// ProviderFactoryConfig converts the provider section into
// llmprovider/factory.Config.
func (d *Deployment) ProviderFactoryConfig() factory.Config {
	p := d.Spec.Providers
	cfg := factory.Config{
		MaxTokens:   p.Common.MaxTokens,
		Temperature: p.Common.Temperature,
		Timeout:     time.Duration(p.Common.TimeoutSecond) * time.Second,
	}
	if p.Anthropic != nil {
		cfg.AnthropicAPIKey = p.Anthropic.APIKey
		cfg.AnthropicModel = p.Anthropic.Model
	}
	if p.Bedrock != nil {
		cfg.BedrockRegion = p.Bedrock.Region
		cfg.BedrockAccessKeyID = p.Bedrock.AccessKeyID
		cfg.BedrockSecretAccessKey = p.Bedrock.SecretAccessKey
		cfg.BedrockSessionToken = p.Bedrock.SessionToken
		cfg.BedrockProfile = p.Bedrock.Profile
		cfg.BedrockModelID = p.Bedrock.ModelID
	}
	if p.Ollama != nil {
		cfg.OllamaEndpoint = p.Ollama.Endpoint
		cfg.OllamaModel = p.Ollama.Model
	}
	return cfg
}

// ProviderOrder is the configured failover preference order.
func (d *Deployment) ProviderOrder() []string {
	return d.Spec.Providers.Order
}

// LocalProviderName is the backend the lifecycle manager loads/unloads
// per tier, defaulting to "ollama" when unset.
func (d *Deployment) LocalProviderName() string {
	if d.Spec.Providers.Local != "" {
		return d.Spec.Providers.Local
	}
	return "ollama"
}

// LifecycleConfig returns lifecycle.DefaultConfig overridden by any
// explicit spec.lifecycle section.
func (d *Deployment) LifecycleConfig() lifecycle.Config {
	cfg := lifecycle.DefaultConfig()
	y := d.Spec.Lifecycle
	if y == nil {
		return cfg
	}
	if y.MaxConcurrentModels != 0 {
		cfg.MaxConcurrentModels = y.MaxConcurrentModels
	}
	if y.MemoryThresholdPercent != 0 {
		cfg.MemoryThresholdPercent = y.MemoryThresholdPercent
	}
	if y.IdleTimeoutMinutes != 0 {
		cfg.IdleTimeoutMinutes = y.IdleTimeoutMinutes
	}
	if y.PreloadTopN != 0 {
		cfg.PreloadTopN = y.PreloadTopN
	}
	return cfg
}

// ContextStoreConfig returns contextstore.DefaultConfig overridden by any
// explicit spec.context_store section.
func (d *Deployment) ContextStoreConfig() contextstore.Config {
	cfg := contextstore.DefaultConfig()
	y := d.Spec.ContextStore
	if y == nil {
		return cfg
	}
	if y.TTLSeconds != 0 {
		cfg.TTLSeconds = y.TTLSeconds
	}
	if y.MaxMessages != 0 {
		cfg.MaxMessages = y.MaxMessages
	}
	if y.MaxMessageSize != 0 {
		cfg.MaxMessageSize = y.MaxMessageSize
	}
	cfg.RedisAddr = y.RedisAddr
	cfg.RedisPassword = y.RedisPassword
	cfg.RedisDB = y.RedisDB
	cfg.SQLitePath = y.SQLitePath
	if cfg.SQLitePath != "" && !filepath.IsAbs(cfg.SQLitePath) {
		cfg.SQLitePath = filepath.Join(bootconfig.Get().DataDir(), cfg.SQLitePath)
	}
	return cfg
}

// FailoverConfig returns failover.DefaultConfig overridden by any
// explicit spec.failover section.
func (d *Deployment) FailoverConfig() failover.Config {
	cfg := failover.DefaultConfig()
	y := d.Spec.Failover
	if y == nil {
		return cfg
	}
	if y.PrimaryTimeoutSeconds != 0 {
		cfg.PrimaryTimeoutSeconds = y.PrimaryTimeoutSeconds
	}
	if y.CriticalTimeoutSeconds != 0 {
		cfg.CriticalTimeoutSeconds = y.CriticalTimeoutSeconds
	}
	return cfg
}

// MemoryConfig returns memory.DefaultConfig overridden by any explicit
// spec.memory section.
func (d *Deployment) MemoryConfig() memory.Config {
	cfg := memory.DefaultConfig()
	y := d.Spec.Memory
	if y == nil {
		return cfg
	}
	if y.MaxPreferences != 0 {
		cfg.MaxPreferences = y.MaxPreferences
	}
	if y.MaxFacts != 0 {
		cfg.MaxFacts = y.MaxFacts
	}
	if y.MaxKeywords != 0 {
		cfg.MaxKeywords = y.MaxKeywords
	}
	return cfg
}

// MaintenanceConfig returns maintenance.DefaultConfig overridden by any
// explicit spec.maintenance section.
func (d *Deployment) MaintenanceConfig() maintenance.Config {
	cfg := maintenance.DefaultConfig()
	y := d.Spec.Maintenance
	if y == nil {
		return cfg
	}
	if y.OptimizeMemoryCron != "" {
		cfg.OptimizeMemoryCron = y.OptimizeMemoryCron
	}
	if y.CleanupExpiredCron != "" {
		cfg.CleanupExpiredCron = y.CleanupExpiredCron
	}
	if y.ShutdownGraceSeconds != 0 {
		cfg.ShutdownGracePeriod = time.Duration(y.ShutdownGraceSeconds) * time.Second
	}
	return cfg
}
