// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

package contextstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/teradata-labs/corerouter/internal/log"
	"github.com/teradata-labs/corerouter/pkg/contextstore/memstore"
	"github.com/teradata-labs/corerouter/pkg/contextstore/redisstore"
	"github.com/teradata-labs/corerouter/pkg/contextstore/sqlitefallback"
	"github.com/teradata-labs/corerouter/pkg/corerrors"
	"github.com/teradata-labs/corerouter/pkg/types"
)

// fallbackBackend is the in-process fallback's contract: everything
// Backend requires plus the sweep hook maintenance.Sweeper drives.
// memstore.Store and sqlitefallback.Store both satisfy it.
type fallbackBackend interface {
	Backend
	CleanupExpired(ctx context.Context) int
}

// tailSize is how many of the most recent messages are kept verbatim when
// compressing a long conversation; every older message keeps its place but
// has its content cut to compressedBudget and is flagged Truncated.
const tailSize = 20

// compressedBudget is the per-message character ceiling for messages older
// than the most recent tailSize.
const compressedBudget = 500

// Config controls pruning, compression and the durable backend.
type Config struct {
	// TTLSeconds is the idle lifetime of a conversation entry.
	TTLSeconds int
	// MaxMessages is the hard cap enforced on every write; conversations
	// over the cap are pruned to their most recent MaxMessages turns.
	MaxMessages int
	// MaxMessageSize is the per-message content ceiling in bytes; content
	// over the cap is cut to fit it with a trailing "..." marker, and
	// flagged.
	MaxMessageSize int
	// RedisAddr, if non-empty, is dialed as the durable backend. Left
	// empty, the store runs in-process only.
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// SQLitePath, if non-empty, replaces the volatile in-memory fallback
	// with a SQLite file so conversations survive a process restart even
	// without Redis. Ignored when opening the file fails; the store then
	// falls back to the plain in-process map.
	SQLitePath string
}

// DefaultConfig matches the spec's stated defaults.
func DefaultConfig() Config {
	return Config{
		TTLSeconds:     86400,
		MaxMessages:    100,
		MaxMessageSize: 10000,
	}
}

// Store is the conversation context store (C7). It validates, prunes and
// compresses on every write, and transparently falls back to an
// in-process backend when the durable one is unreachable.
type Store struct {
	cfg      Config
	primary  Backend
	fallback fallbackBackend
	log      *zap.Logger
}

// New constructs a Store. If cfg.RedisAddr is set but unreachable, New
// logs a warning and runs entirely on the in-process fallback rather than
// failing construction.
func New(ctx context.Context, cfg Config) *Store {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 100
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = 10000
	}

	logger := log.Named("contextstore")
	var fallback fallbackBackend = memstore.New(cfg.TTLSeconds)
	if cfg.SQLitePath != "" {
		sf, err := sqlitefallback.Open(cfg.SQLitePath, cfg.TTLSeconds)
		if err != nil {
			logger.Warn("sqlite fallback unavailable, using in-process map", zap.String("path", cfg.SQLitePath), zap.Error(err))
		} else {
			fallback = sf
		}
	}
	s := &Store{cfg: cfg, fallback: fallback, log: logger}

	if cfg.RedisAddr == "" {
		s.primary = fallback
		return s
	}

	rs, err := redisstore.New(ctx, redisstore.Config{
		Addr:       cfg.RedisAddr,
		Password:   cfg.RedisPassword,
		DB:         cfg.RedisDB,
		TTLSeconds: cfg.TTLSeconds,
	})
	if err != nil {
		s.log.Warn("durable context backend unreachable, falling back to in-process store", zap.Error(err))
		s.primary = fallback
		return s
	}
	s.primary = rs
	return s
}

// Get returns the conversation's context, creating an empty one if absent.
func (s *Store) Get(ctx context.Context, convID string) (*types.ConversationContext, error) {
	if convID == "" {
		return nil, corerrors.NewInvalidInput("contextstore: empty conversation id")
	}

	cc, found, err := s.primary.Get(ctx, convID)
	if err != nil {
		s.log.Warn("durable backend read failed, trying fallback", zap.String("conversation_id", convID), zap.Error(err))
		cc, found, err = s.fallback.Get(ctx, convID)
		if err != nil {
			return nil, corerrors.NewBackendUnavailable("contextstore: get failed on both backends", err)
		}
	}
	if !found {
		return types.NewConversationContext(convID), nil
	}
	return cc, nil
}

// Update validates, prunes and compresses cc, stamps its metadata, and
// persists it under convID.
func (s *Store) Update(ctx context.Context, convID string, cc *types.ConversationContext) error {
	if convID == "" {
		return corerrors.NewInvalidInput("contextstore: empty conversation id")
	}
	cc.ConversationID = convID

	s.validateMessages(cc)
	s.pruneMessages(cc)
	s.compressMessages(cc)

	cc.Metadata.LastUpdated = time.Now()
	cc.Metadata.TotalMessages = len(cc.Messages)

	if err := s.primary.Set(ctx, convID, cc); err != nil {
		s.log.Warn("durable backend write failed, falling back to in-process store", zap.String("conversation_id", convID), zap.Error(err))
		if fbErr := s.fallback.Set(ctx, convID, cc); fbErr != nil {
			return corerrors.NewBackendUnavailable("contextstore: update failed on both backends", fbErr)
		}
	}
	return nil
}

// validateMessages cuts any message over MaxMessageSize bytes so that, with
// a trailing "..." truncation marker, it fits the cap, and flags it.
func (s *Store) validateMessages(cc *types.ConversationContext) {
	const truncationMarker = "..."
	for i := range cc.Messages {
		m := &cc.Messages[i]
		if len(m.Content) > s.cfg.MaxMessageSize {
			if cut := s.cfg.MaxMessageSize - len(truncationMarker); cut > 0 {
				m.Content = m.Content[:cut] + truncationMarker
			} else {
				m.Content = m.Content[:s.cfg.MaxMessageSize]
			}
			m.Truncated = true
		}
	}
}

// pruneMessages retains only the most recent MaxMessages turns, recording
// the original count and prune time when it does so.
func (s *Store) pruneMessages(cc *types.ConversationContext) {
	if len(cc.Messages) <= s.cfg.MaxMessages {
		return
	}
	original := len(cc.Messages)
	cc.Messages = cc.Messages[original-s.cfg.MaxMessages:]
	cc.Metadata.PrunedAt = time.Now()
	cc.Metadata.OriginalMessageCount = original
}

// compressMessages cuts the content of every message older than the most
// recent tailSize to at most compressedBudget characters and flags it
// Truncated; the number of messages is unchanged.
func (s *Store) compressMessages(cc *types.ConversationContext) {
	if len(cc.Messages) <= tailSize {
		return
	}
	prefix := cc.Messages[:len(cc.Messages)-tailSize]
	for i := range prefix {
		if len(prefix[i].Content) > compressedBudget {
			prefix[i].Content = prefix[i].Content[:compressedBudget]
		}
		prefix[i].Truncated = true
	}
}

func summarize(messages []types.Message) string {
	var out string
	for _, m := range messages {
		line := fmt.Sprintf("[%s] %s ", m.Role, m.Content)
		if len(out)+len(line) > compressedBudget {
			break
		}
		out += line
	}
	if len(out) > compressedBudget {
		out = out[:compressedBudget]
	}
	return out
}

// Clear deletes a conversation from both backends.
func (s *Store) Clear(ctx context.Context, convID string) error {
	errPrimary := s.primary.Delete(ctx, convID)
	errFallback := s.fallback.Delete(ctx, convID)
	if errPrimary != nil && errFallback != nil {
		return corerrors.NewBackendUnavailable("contextstore: clear failed on both backends", errPrimary)
	}
	return nil
}

// memoryReporter is implemented by backends that can report their own
// usage (currently redisstore.Store).
type memoryReporter interface {
	MemoryUsage(ctx context.Context) (map[string]any, error)
}

// MemoryUsage reports the active backend's resource usage.
func (s *Store) MemoryUsage(ctx context.Context) (map[string]any, error) {
	if reporter, ok := s.primary.(memoryReporter); ok {
		if usage, err := reporter.MemoryUsage(ctx); err == nil {
			return usage, nil
		}
	}
	backend := "memstore"
	if s.cfg.SQLitePath != "" {
		backend = "sqlitefallback"
	}
	keys, err := s.fallback.Keys(ctx)
	if err != nil {
		return nil, corerrors.NewBackendUnavailable("contextstore: fallback usage unavailable", err)
	}
	return map[string]any{
		"backend":      backend,
		"live_entries": len(keys),
		"ttl_seconds":  s.cfg.TTLSeconds,
		"max_messages": s.cfg.MaxMessages,
	}, nil
}

// CleanupExpired sweeps the in-process fallback for entries past their
// TTL; the durable backend, when active, expires entries natively.
func (s *Store) CleanupExpired(ctx context.Context) int {
	return s.fallback.CleanupExpired(ctx)
}

// Health reports whether at least one backend is reachable.
func (s *Store) Health(ctx context.Context) error {
	if err := s.primary.Health(ctx); err == nil {
		return nil
	}
	return s.fallback.Health(ctx)
}
