// Copyright © 2026 Teradata Corporation - All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.

// Package contextstore is the conversation context store (C7): the
// exclusive owner of ConversationContext persistence, backed by Redis
// with an in-process fallback when Redis is unreachable.
package contextstore

import (
	"context"

	"github.com/teradata-labs/corerouter/pkg/types"
)

// Backend is the persistence primitive either storage implementation
// provides. Store layers validation, pruning, compression and the
// durable/fallback switch-over on top of a Backend.
type Backend interface {
	// Get returns the stored context for id, or found=false if absent.
	Get(ctx context.Context, id string) (cc *types.ConversationContext, found bool, err error)
	// Set persists cc under id, refreshing its TTL.
	Set(ctx context.Context, id string, cc *types.ConversationContext) error
	// Delete removes id's entry, if any.
	Delete(ctx context.Context, id string) error
	// Keys lists every id currently stored. Durable backends that expire
	// natively may return an empty list; Store's cleanup sweep is only
	// meaningful against the in-process fallback.
	Keys(ctx context.Context) ([]string, error)
	// Health reports whether the backend is currently reachable.
	Health(ctx context.Context) error
}
