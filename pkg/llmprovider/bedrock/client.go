// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package bedrock is the Anthropic-via-AWS-Bedrock Provider. It reuses the
// Anthropic SDK's own Bedrock transport (anthropic-sdk-go/bedrock) rather
// than a raw bedrockruntime service client, which means request signing and
// the wire format both come from the same SDK the direct-Anthropic provider
// uses.
package bedrock

import (
	"context"
	"fmt"
	"os"
	"time"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	sdkbedrock "github.com/anthropics/anthropic-sdk-go/bedrock"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"

	"github.com/teradata-labs/corerouter/pkg/llmprovider"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// DefaultModelID and DefaultRegion match the teacher's Bedrock defaults.
const (
	DefaultModelID = "us.anthropic.claude-sonnet-4-5-20250929-v1:0"
	DefaultRegion  = "us-east-1"
)

// Config holds Bedrock connection settings. Leave AccessKeyID/SecretAccessKey
// empty to use the default AWS credential chain (IAM role, env vars,
// shared profile).
type Config struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Profile         string
	ModelID         string
	MaxTokens       int
	Temperature     float64
	RateLimiter     llmprovider.RateLimiterConfig
}

// Client implements llmprovider.Provider against Bedrock via the Anthropic
// SDK's bedrock transport.
type Client struct {
	client      anthropicsdk.Client
	modelID     string
	region      string
	maxTokens   int64
	temperature float64
	rateLimiter *llmprovider.RateLimiter
}

var _ llmprovider.Provider = (*Client)(nil)

// NewClient builds a Client, resolving region/model from cfg, then
// well-known environment variables, then hardcoded defaults, and loads AWS
// credentials via the same chain the teacher's SDK client uses.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.ModelID == "" {
		if v := os.Getenv("AWS_BEDROCK_MODEL_ID"); v != "" {
			cfg.ModelID = v
		} else {
			cfg.ModelID = DefaultModelID
		}
	}
	if cfg.Region == "" {
		if v := os.Getenv("AWS_DEFAULT_REGION"); v != "" {
			cfg.Region = v
		} else {
			cfg.Region = DefaultRegion
		}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 1.0
	}

	var awsCfg aws.Config
	var err error
	switch {
	case cfg.AccessKeyID != "" && cfg.SecretAccessKey != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.AccessKeyID, cfg.SecretAccessKey, cfg.SessionToken,
			)),
		)
	case cfg.Profile != "":
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx,
			awsconfig.WithRegion(cfg.Region),
			awsconfig.WithSharedConfigProfile(cfg.Profile),
		)
	default:
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	}
	if err != nil {
		return nil, fmt.Errorf("bedrock: load AWS config: %w", err)
	}

	var rl *llmprovider.RateLimiter
	if cfg.RateLimiter.Enabled {
		rl = llmprovider.NewRateLimiter(cfg.RateLimiter)
	}

	return &Client{
		client:      anthropicsdk.NewClient(sdkbedrock.WithConfig(awsCfg)),
		modelID:     cfg.ModelID,
		region:      cfg.Region,
		maxTokens:   int64(cfg.MaxTokens),
		temperature: cfg.Temperature,
		rateLimiter: rl,
	}, nil
}

func (c *Client) Name() string  { return "bedrock" }
func (c *Client) Model() string { return c.modelID }

// Load is a no-op: Bedrock on-demand inference carries no session that a
// caller warms or tears down.
func (c *Client) Load(ctx context.Context) error { return nil }

// Unload is a no-op for the same reason.
func (c *Client) Unload(ctx context.Context) error { return nil }

// Health sends a minimal invocation to confirm credentials and region are
// both usable.
func (c *Client) Health(ctx context.Context) error {
	_, err := c.client.Messages.New(ctx, anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(c.modelID),
		MaxTokens: 1,
		Messages: []anthropicsdk.MessageParam{
			anthropicsdk.NewUserMessage(anthropicsdk.NewTextBlock(".")),
		},
	})
	if err != nil {
		return fmt.Errorf("bedrock: health check failed: %w", err)
	}
	return nil
}

// Generate sends messages to Bedrock through the Anthropic SDK.
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
		return nil, fmt.Errorf("bedrock: no valid messages to send")
	}

	reqParams := anthropicsdk.MessageNewParams{
		Model:       anthropicsdk.Model(c.modelID),
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
		return nil, fmt.Errorf("bedrock SDK invocation failed: %w", err)
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
		Model:               c.modelID,
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
