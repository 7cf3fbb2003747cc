// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package ollama is the local-process Provider: it talks to a locally
// running Ollama daemon over its HTTP API, and owns warm-up/keep-alive
// for the FAST and BALANCED tiers.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// Config holds Ollama connection settings.
type Config struct {
	Endpoint    string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// Client implements llmprovider.Provider against a local Ollama daemon.
type Client struct {
	endpoint    string
	model       string
	httpClient  *http.Client
	maxTokens   int
	temperature float64
}

var _ llmprovider.Provider = (*Client)(nil)

// NewClient applies defaults matching the teacher's Ollama integration and
// returns a ready Client. It does not contact the daemon; call Load for that.
func NewClient(cfg Config) *Client {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "http://localhost:11434"
	}
	if cfg.Model == "" {
		cfg.Model = "llama3.2"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.8
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}

	return &Client{
		endpoint:    cfg.Endpoint,
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
	}
}

func (c *Client) Name() string  { return "ollama" }
func (c *Client) Model() string { return c.model }

// Load issues a chat turn capped at one output token (num_predict 1) with
// keep_alive set, which causes Ollama to page the model into GPU memory;
// the reply is discarded.
func (c *Client) Load(ctx context.Context) error {
	req := chatRequest{
		Model:     c.model,
		Messages:  []ollamaMessage{{Role: "user", Content: "."}},
		Stream:    false,
		KeepAlive: "30m",
		Options:   map[string]any{"num_predict": 1},
	}
	_, err := c.callAPI(ctx, req)
	return err
}

// Unload tells Ollama to evict the model immediately by requesting a
// zero keep-alive.
func (c *Client) Unload(ctx context.Context) error {
	req := chatRequest{
		Model:     c.model,
		Messages:  []ollamaMessage{{Role: "user", Content: "."}},
		Stream:    false,
		KeepAlive: "0",
		Options:   map[string]any{"num_predict": 1},
	}
	_, err := c.callAPI(ctx, req)
	return err
}

// Health checks that the daemon is reachable by listing local tags.
func (c *Client) Health(ctx context.Context) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"/api/tags", nil)
	if err != nil {
		return fmt.Errorf("ollama: build health request: %w", err)
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("ollama: unreachable: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama: health check status %d", resp.StatusCode)
	}
	return nil
}

// Generate sends messages to /api/chat and returns the uniform response.
func (c *Client) Generate(ctx context.Context, messages []types.Message, params types.GenerateParams) (*types.LLMResponse, error) {
	maxTokens := c.maxTokens
	if params.MaxTokens > 0 {
		maxTokens = params.MaxTokens
	}
	temperature := c.temperature
	if params.Temperature > 0 {
		temperature = params.Temperature
	}

	req := chatRequest{
		Model:     c.model,
		Messages:  convertMessages(messages),
		Stream:    false,
		KeepAlive: "30m",
		Options: map[string]any{
			"temperature": temperature,
			"num_predict": maxTokens,
		},
	}
	if params.NumCtx > 0 {
		req.Options["num_ctx"] = params.NumCtx
	}

	promptTokens := llmprovider.EstimateTokens(messages)

	start := time.Now()
	resp, err := c.callAPI(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("ollama API call failed: %w", err)
	}

	return &types.LLMResponse{
		Content:             resp.Message.Content,
		Provider:            c.Name(),
		Model:               c.model,
		ResponseTimeSeconds: time.Since(start).Seconds(),
		TokenCount:          resp.EvalCount,
		FinishReason:        doneReason(resp),
		Timestamp:           time.Now(),
		RoutingMetadata:     map[string]any{"estimated_prompt_tokens": promptTokens},
	}, nil
}

func doneReason(resp *chatResponse) string {
	if resp.Done {
		return "stop"
	}
	return "incomplete"
}

func convertMessages(messages []types.Message) []ollamaMessage {
	out := make([]ollamaMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, ollamaMessage{Role: string(m.Role), Content: m.Content})
	}
	return out
}

func (c *Client) callAPI(ctx context.Context, req chatRequest) (*chatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp chatResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &resp, nil
}

type chatRequest struct {
	Model     string           `json:"model"`
	Messages  []ollamaMessage  `json:"messages"`
	Stream    bool             `json:"stream"`
	KeepAlive string           `json:"keep_alive,omitempty"`
	Options   map[string]any   `json:"options,omitempty"`
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Model     string         `json:"model"`
	Message   ollamaMessage  `json:"message"`
	Done      bool           `json:"done"`
	EvalCount int            `json:"eval_count"`
}
