// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package redisstore is the durable backend for the conversation context
// store. Each conversation is a single JSON-encoded key with a refreshed
// TTL, the same shape used by session stores elsewhere in the ecosystem.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/teradata-labs/corerouter/pkg/types"
)

const keyPrefix = "conversation:"

func key(id string) string { return keyPrefix + id }

// Config configures the Redis connection and entry TTL.
type Config struct {
	Addr       string
	Password   string
	DB         int
	TTLSeconds int
}

// Store is a redis/v9-backed Backend.
type Store struct {
	client *redis.Client
	ttl    time.Duration
}

// New dials addr and verifies reachability with a bounded Ping before
// returning. Callers should treat a non-nil error as "fall back to the
// in-process store", not as fatal.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstore: ping %s: %w", cfg.Addr, err)
	}

	ttl := time.Duration(cfg.TTLSeconds) * time.Second
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{client: client, ttl: ttl}, nil
}

func (s *Store) Get(ctx context.Context, id string) (*types.ConversationContext, bool, error) {
	raw, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redisstore: get %s: %w", id, err)
	}

	var cc types.ConversationContext
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, false, fmt.Errorf("redisstore: decode %s: %w", id, err)
	}

	s.client.Expire(ctx, key(id), s.ttl)
	return &cc, true, nil
}

func (s *Store) Set(ctx context.Context, id string, cc *types.ConversationContext) error {
	raw, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("redisstore: encode %s: %w", id, err)
	}
	if err := s.client.Set(ctx, key(id), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redisstore: set %s: %w", id, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("redisstore: delete %s: %w", id, err)
	}
	return nil
}

// Keys returns an empty list: Redis expires entries natively, so the
// context store's cleanup sweep only needs to walk the in-process
// fallback.
func (s *Store) Keys(_ context.Context) ([]string, error) {
	return nil, nil
}

func (s *Store) Health(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("redisstore: health: %w", err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// MemoryUsage reports the server's reported memory and connected client
// count, used by Store.MemoryUsage when backed by Redis.
func (s *Store) MemoryUsage(ctx context.Context) (map[string]any, error) {
	info, err := s.client.Info(ctx, "memory", "clients").Result()
	if err != nil {
		return nil, fmt.Errorf("redisstore: info: %w", err)
	}
	return map[string]any{"backend": "redis", "info": info}, nil
}
