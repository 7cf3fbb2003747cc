// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package sqlitefallback is an optional contextstore.Backend that
// survives process restarts without requiring Redis: conversations are
// written to a local SQLite file instead of held only in memstore's
// map. A deployment with no redis_addr but that still wants durability
// across a corerouterd restart can point the context store at this
// backend instead.
package sqlitefallback

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/teradata-labs/corerouter/pkg/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS conversations (
	id TEXT PRIMARY KEY,
	data BLOB NOT NULL,
	expires_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_conversations_expires_at ON conversations(expires_at);
`

// Store is a SQLite-backed contextstore.Backend.
type Store struct {
	db  *sql.DB
	ttl time.Duration
}

// Open creates or reuses the SQLite file at path, applying busy_timeout
// so concurrent readers/writers wait rather than fail immediately (the
// same PRAGMA the teacher's own sqlite migrator sets).
func Open(path string, ttlSeconds int) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlitefallback: open %s: %w", path, err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitefallback: set busy_timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlitefallback: create schema: %w", err)
	}
	if ttlSeconds <= 0 {
		ttlSeconds = 3600
	}
	return &Store{db: db, ttl: time.Duration(ttlSeconds) * time.Second}, nil
}

// Close releases the underlying SQLite connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the conversation, refreshing its TTL on a hit, the same
// read-refresh contract redisstore.Store honors.
func (s *Store) Get(ctx context.Context, id string) (*types.ConversationContext, bool, error) {
	var raw []byte
	var expiresAt int64
	err := s.db.QueryRowContext(ctx, `SELECT data, expires_at FROM conversations WHERE id = ?`, id).Scan(&raw, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sqlitefallback: get %s: %w", id, err)
	}
	if time.Now().Unix() > expiresAt {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
		return nil, false, nil
	}

	var cc types.ConversationContext
	if err := json.Unmarshal(raw, &cc); err != nil {
		return nil, false, fmt.Errorf("sqlitefallback: decode %s: %w", id, err)
	}

	newExpiry := time.Now().Add(s.ttl).Unix()
	_, _ = s.db.ExecContext(ctx, `UPDATE conversations SET expires_at = ? WHERE id = ?`, newExpiry, id)

	return &cc, true, nil
}

// Set upserts the conversation and resets its TTL.
func (s *Store) Set(ctx context.Context, id string, cc *types.ConversationContext) error {
	raw, err := json.Marshal(cc)
	if err != nil {
		return fmt.Errorf("sqlitefallback: encode %s: %w", id, err)
	}
	expiresAt := time.Now().Add(s.ttl).Unix()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (id, data, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET data = excluded.data, expires_at = excluded.expires_at`,
		id, raw, expiresAt)
	if err != nil {
		return fmt.Errorf("sqlitefallback: set %s: %w", id, err)
	}
	return nil
}

// Delete removes a conversation.
func (s *Store) Delete(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("sqlitefallback: delete %s: %w", id, err)
	}
	return nil
}

// Keys returns every non-expired conversation ID.
func (s *Store) Keys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM conversations WHERE expires_at >= ?`, time.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("sqlitefallback: keys: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlitefallback: scan key: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Health pings the underlying database connection.
func (s *Store) Health(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := s.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("sqlitefallback: health check: %w", err)
	}
	return nil
}

// CleanupExpired deletes every conversation past its TTL and returns the
// count removed, mirroring memstore.Store.CleanupExpired's contract.
func (s *Store) CleanupExpired(ctx context.Context) int {
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE expires_at < ?`, time.Now().Unix())
	if err != nil {
		return 0
	}
	n, _ := res.RowsAffected()
	return int(n)
}
