// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package memstore is the in-process fallback backend for the
// conversation context store, used when the durable backend is
// unreachable. Grounded on the persistent store's graceful-degradation
// singleton: a mutex-guarded map standing in for the real thing.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/teradata-labs/corerouter/pkg/types"
)

type entry struct {
	ctx       *types.ConversationContext
	expiresAt time.Time
}

// Store is a mutex-guarded in-memory map with per-entry expiry, checked
// lazily on read and swept by CleanupExpired.
type Store struct {
	mu  sync.RWMutex
	ttl time.Duration
	m   map[string]entry
}

// New returns a Store whose entries expire ttlSeconds after their last
// write. ttlSeconds<=0 disables expiry.
func New(ttlSeconds int) *Store {
	return &Store{
		ttl: time.Duration(ttlSeconds) * time.Second,
		m:   make(map[string]entry),
	}
}

func (s *Store) Get(_ context.Context, id string) (*types.ConversationContext, bool, error) {
	s.mu.RLock()
	e, ok := s.m[id]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if s.expired(e) {
		s.mu.Lock()
		delete(s.m, id)
		s.mu.Unlock()
		return nil, false, nil
	}
	return e.ctx, true, nil
}

func (s *Store) Set(_ context.Context, id string, cc *types.ConversationContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[id] = entry{ctx: cc, expiresAt: s.expiryFor()}
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	delete(s.m, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) Keys(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.m))
	for k := range s.m {
		keys = append(keys, k)
	}
	return keys, nil
}

func (s *Store) Health(_ context.Context) error { return nil }

// Len reports the number of live (non-expired) entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.m {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// CleanupExpired removes every entry whose TTL has elapsed and reports
// how many were removed.
func (s *Store) CleanupExpired(_ context.Context) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for k, e := range s.m {
		if s.expired(e) {
			delete(s.m, k)
			removed++
		}
	}
	return removed
}

func (s *Store) expiryFor() time.Time {
	if s.ttl <= 0 {
		return time.Time{}
	}
	return time.Now().Add(s.ttl)
}

func (s *Store) expired(e entry) bool {
	return !e.expiresAt.IsZero() && time.Now().After(e.expiresAt)
}
