// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package anthropic is the direct-to-Anthropic-API Provider, used for the
// POWERFUL tier when a deployment has no Bedrock access. Unlike the local
// Ollama provider it carries no Load/Unload warm-up: Anthropic has no
// per-model memory residency for a caller to manage.
package anthropic

import (
	"context"
	"fmt"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// DefaultModel matches the teacher's current default Claude model.
const DefaultModel = "claude-sonnet-4-5-20250929"

// Config holds direct Anthropic API settings.
type Config struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	RateLimiter llmprovider.RateLimiterConfig
}

// Client implements llmprovider.Provider against the Anthropic API.
type Client struct {
	client      anthropicsdk.Client
	model       string
	maxTokens   int64
	temperature float64
	rateLimiter *llmprovider.RateLimiter
}

var _ llmprovider.Provider = (*Client)(nil)

// NewClient builds a Client from cfg. APIKey must be non-empty; the caller
// (the factory) is responsible for falling back to ANTHROPIC_API_KEY.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: API key not configured")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 1.0
	}

	var rl *llmprovider.RateLimiter
	if cfg.RateLimiter.Enabled {
		rl = llmprovider.NewRateLimiter(cfg.RateLimiter)
	}

	return &Client{
		client:      anthropicsdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:       cfg.Model,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		rateLimiter: rl,
	}, nil
}

func (c *Client) Name() string  { return "anthropic" }
func (c *Client) Model() string { return c.model }

// Load is a no-op: the Anthropic API has no per-caller model residency.
func (c *Client) Load(ctx context.Context) error { return nil }

// Unload is a no-op for the same reason.
func (c *Client) Unload(ctx context.Context) error { return nil }

// Health sends a minimal request to confirm the API key and network path
// are both usable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.model),
		MaxTokens: 1,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(".")),
		},
	})
	if err != nil {
		return fmt.Errorf("anthropic: health check failed: %w", err)
	}
	return nil
}

// Generate sends messages to the Anthropic Messages API.
func (c *Client) Generate(ctx context.Context, messages []types.Message, params types.GenerateParams) (*types.LLMResponse, error) {
	maxTokens := c.maxTokens
	if params.MaxTokens > 0 {
		maxTokens = int64(params.MaxTokens)
	}
	temperature := c.temperature
	if params.Temperature > 0 {
		temperature = params.Temperature
	}

	systemPrompt, sdkMessages := convertMessages(messages)
	if len(sdkMessages) == 0 {
		return nil, fmt.Errorf("anthropic: no valid messages to send")
	}

	reqParams := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(c.model),
		Messages:    sdkMessages,
		MaxTokens:   maxTokens,
		Temperature: anthropicsdk.Float(temperature),
	}
	if systemPrompt != "" {
		reqParams.System = []anthropicsdk.TextBlockParam{{Text: systemPrompt}}
	}

	start := time.Now()

	var message *anthropicsdk.Message
	var err error
	if c.rateLimiter != nil {
		var result any
		result, err = c.rateLimiter.Do(ctx, func(ctx context.Context) (any, error) {
			return c.client.Messages.New(ctx, reqParams)
		})
		if err == nil {
			message = result.(*anthropicsdk.Message)
		}
	} else {
		message, err = c.client.Messages.New(ctx, reqParams)
	}
	if err != nil {
		return nil, fmt.Errorf("anthropic invocation failed: %w", err)
	}

	var content string
	for _, block := range message.Content {
		if block.Type == "text" {
			content += block.Text
		}
	}

	return &types.LLMResponse{
		Content:             content,
		Provider:            c.Name(),
		Model:               c.model,
		ResponseTimeSeconds: time.Since(start).Seconds(),
		TokenCount:          int(message.Usage.InputTokens + message.Usage.OutputTokens),
		FinishReason:        string(message.StopReason),
		Timestamp:           time.Now(),
	}, nil
}

func convertMessages(messages []types.Message) (string, []anthropicsdk.MessageParam) {
	var system string
	out := make([]anthropicsdk.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case types.RoleSystem:
			if system != "" {
				system += "\n"
			}
			system += m.Content
		case types.RoleUser:
			out = append(out, anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(m.Content)))
		case types.RoleAssistant:
			out = append(out, anthropicsdk.NewAssistantMessage(anthropicsdk.NewTextBlock(m.Content)))
		}
	}
	return system, out
}
