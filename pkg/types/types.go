// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package types contains the data model shared by every component of the
// router: complexity analysis, routing decisions, conversation context, and
// the uniform LLM response shape. It has no dependency on any other
// corerouter package, so it can be imported everywhere without cycles.
package types

import "time"

// Complexity is the classification produced by the complexity analyzer.
type Complexity string

const (
	ComplexitySimple   Complexity = "simple"
	ComplexityModerate Complexity = "moderate"
	ComplexityComplex  Complexity = "complex"
	ComplexityCritical Complexity = "critical"
)

// Tier is a bucket of model capability and cost.
type Tier string

const (
	TierFast     Tier = "fast"
	TierBalanced Tier = "balanced"
	TierPowerful Tier = "powerful"
)

// ModelStatus is a point in a model's lifecycle state machine.
type ModelStatus string

const (
	StatusUnloaded  ModelStatus = "unloaded"
	StatusLoading   ModelStatus = "loading"
	StatusLoaded    ModelStatus = "loaded"
	StatusUnloading ModelStatus = "unloading"
	StatusError     ModelStatus = "error"
)

// Role is the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is one turn of a conversation.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
	Truncated bool      `json:"truncated,omitempty"`
}

// MemoryItemType distinguishes a preference from a fact/context clue.
type MemoryItemType string

const (
	MemoryItemPreference MemoryItemType = "preference"
	MemoryItemFact        MemoryItemType = "fact"
	MemoryItemContext     MemoryItemType = "context"
)

// Preference is one entry of ConversationContext.UserPreferences.
type Preference struct {
	Content    string    `json:"content"`
	Confidence float64   `json:"confidence"`
	Timestamp  time.Time `json:"timestamp"`
	Keywords   []string  `json:"keywords,omitempty"`
}

// Fact is one entry of ConversationContext.KeyFacts.
type Fact struct {
	Content    string         `json:"content"`
	Type       MemoryItemType `json:"type"`
	Confidence float64        `json:"confidence"`
	Timestamp  time.Time      `json:"timestamp"`
	SourceTurn int            `json:"source_turn"`
	Keywords   []string       `json:"keywords,omitempty"`
}

// ContextMetadata holds the reserved, well-known metadata keys plus an
// open-ended extension map for forward compatibility (per the spec's
// "tagged variant plus untyped extension" re-architecture of the source's
// free-form metadata dict).
type ContextMetadata struct {
	LastUpdated          time.Time      `json:"last_updated,omitempty"`
	TotalMessages        int            `json:"total_messages,omitempty"`
	PrunedAt             time.Time      `json:"pruned_at,omitempty"`
	OriginalMessageCount int            `json:"original_message_count,omitempty"`
	Extra                map[string]any `json:"extra,omitempty"`
}

// ConversationContext is the entity keyed by conversation_id. C7 owns its
// persistence exclusively; other components consume and return copies.
type ConversationContext struct {
	ConversationID     string                `json:"conversation_id"`
	Messages           []Message             `json:"messages"`
	Metadata           ContextMetadata       `json:"metadata"`
	UserPreferences    map[string]Preference `json:"user_preferences"`
	KeyFacts           []Fact                `json:"key_facts"`
	InteractionSummary string                `json:"interaction_summary,omitempty"`
	MemoryKeywords     []string              `json:"memory_keywords,omitempty"`
	MemoryLastUpdated  time.Time             `json:"memory_last_updated,omitempty"`
	MaxContextLength   int                   `json:"max_context_length"`
}

// NewConversationContext returns an empty context for id with the default
// trim-on-append ceiling applied (see contextstore.Config.MaxMessages for
// the pruning ceiling, a distinct knob from this one — DESIGN.md §OQ-3).
func NewConversationContext(id string) *ConversationContext {
	return &ConversationContext{
		ConversationID:   id,
		Messages:         make([]Message, 0),
		UserPreferences:  make(map[string]Preference),
		KeyFacts:         make([]Fact, 0),
		MemoryKeywords:   make([]string, 0),
		MaxContextLength: 4000,
	}
}

// AddMessage appends a turn, trimming from the front once MaxContextLength
// is exceeded. This is the "trim on append" knob; the context store applies
// a second, independent prune on write (OQ-3).
func (c *ConversationContext) AddMessage(role Role, content string) {
	c.Messages = append(c.Messages, Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now(),
	})
	if c.MaxContextLength > 0 && len(c.Messages) > c.MaxContextLength {
		excess := len(c.Messages) - c.MaxContextLength
		c.Messages = c.Messages[excess:]
	}
}

// ModelConfig is the immutable per-tier catalog entry owned by the model
// registry.
type ModelConfig struct {
	ModelName          string  `json:"model_name"`
	Tier               Tier    `json:"tier"`
	MaxTokens          int     `json:"max_tokens"`
	ContextWindow      int     `json:"context_window"`
	GPUMemoryMB        int     `json:"gpu_memory_mb"`
	AvgTokensPerSecond float64 `json:"avg_tokens_per_second"`
	ConcurrentCapacity int     `json:"concurrent_capacity"`
	KeepAliveMinutes   int     `json:"keep_alive_minutes"`
}

// ModelInfo is the mutable per-loaded-model state owned exclusively by the
// lifecycle manager.
type ModelInfo struct {
	ModelName       string      `json:"model_name"`
	Status          ModelStatus `json:"status"`
	LoadedAt        time.Time   `json:"loaded_at,omitempty"`
	LastUsed        time.Time   `json:"last_used,omitempty"`
	UsageCount      int64       `json:"usage_count"`
	MemoryUsageMB   int         `json:"memory_usage_mb"`
	LoadTimeSeconds float64     `json:"load_time_seconds"`
	ErrorMessage    string      `json:"error_message,omitempty"`
}

// QueryAnalysis is the output of the complexity analyzer.
type QueryAnalysis struct {
	Complexity          Complexity `json:"complexity"`
	Confidence          float64    `json:"confidence"`
	ReasoningIndicators []string   `json:"reasoning_indicators,omitempty"`
	EstimatedTokens     int        `json:"estimated_tokens"`
	RequiresPlanning    bool       `json:"requires_planning"`
	DomainSpecific      string     `json:"domain_specific,omitempty"`
	TimeSensitive       bool       `json:"time_sensitive"`
}

// RoutingDecision is the output of the tiered router's route step.
type RoutingDecision struct {
	SelectedTier                 Tier        `json:"selected_tier"`
	ModelConfig                  ModelConfig `json:"model_config"`
	Reasoning                    string      `json:"reasoning"`
	Confidence                   float64     `json:"confidence"`
	FallbackTier                 *Tier       `json:"fallback_tier,omitempty"`
	EstimatedResponseTimeSeconds float64     `json:"estimated_response_time_seconds"`
}

// LLMResponse is the uniform shape produced by a provider and threaded
// back up through the router and failover manager.
type LLMResponse struct {
	Content         string `json:"content"`
	Provider        string `json:"provider"`
	Model           string `json:"model"`
	// ConversationID echoes the conversation the turn was persisted under.
	// When the caller omits one, this is the ID the service synthesized,
	// so the caller can pass it back on the next turn.
	ConversationID      string         `json:"conversation_id"`
	ResponseTimeSeconds float64        `json:"response_time_seconds"`
	TokenCount          int            `json:"token_count,omitempty"`
	FinishReason        string         `json:"finish_reason,omitempty"`
	Error               string         `json:"error,omitempty"`
	FallbackUsed        bool           `json:"fallback_used"`
	Timestamp           time.Time      `json:"timestamp"`
	RoutingMetadata     map[string]any `json:"routing_metadata,omitempty"`
}

// GenerateParams carries the per-call numeric overrides a caller may
// supply on top of the tier's ModelConfig defaults.
type GenerateParams struct {
	Temperature float64
	MaxTokens   int
	NumCtx      int
}
