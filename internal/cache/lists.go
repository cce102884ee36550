// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
)

const listKeyPrefix = "list:"

// ListKey identifies a cached list projection. Revision is the store's
// write counter for Kind, so any write makes older entries unreachable.
// ActorID is part of the key because trash visibility depends on the
// caller.
type ListKey struct {
	Kind     model.Kind
	Revision int64
	ActorID  string
	Query    string
}

// String renders the cache key. Actor and query are hashed to keep keys
// short and free of user-controlled characters.
func (k ListKey) String() string {
	sum := sha256.Sum256([]byte(k.ActorID + "\x00" + k.Query))
	return fmt.Sprintf("%s%s:%d:%s", listKeyPrefix, k.Kind, k.Revision, hex.EncodeToString(sum[:8]))
}

// ListCache caches computed list pages of type T.
type ListCache[T any] struct {
	typed *TypedCache[T]
	cache Cache
}

// NewListCache creates a list cache over c.
func NewListCache[T any](c Cache, ttl time.Duration) *ListCache[T] {
	return &ListCache[T]{typed: NewTypedCache[T](c, ttl), cache: c}
}

// Get returns the cached page for key or computes and stores it. hit
// reports whether the value came from the cache.
func (l *ListCache[T]) Get(ctx context.Context, key ListKey, compute func() (*T, error)) (value *T, hit bool, err error) {
	return l.typed.GetOrSet(ctx, key.String(), compute)
}

// Invalidate drops every cached page of kind.
func (l *ListCache[T]) Invalidate(ctx context.Context, kind model.Kind) error {
	return l.cache.DeleteByPrefix(ctx, listKeyPrefix+string(kind)+":")
}

// Invalidator is a change event sink that drops a kind's cached list pages
// after every write, reclaiming entries made stale by the revision bump.
type Invalidator struct {
	cache Cache
}

// NewInvalidator creates an Invalidator for c.
func NewInvalidator(c Cache) *Invalidator {
	return &Invalidator{cache: c}
}

// Notify drops the cached pages of the event's kind. News lists embed
// category names, so category changes drop news pages too.
func (i *Invalidator) Notify(ctx context.Context, e model.ChangeEvent) {
	kinds := []model.Kind{e.Kind}
	if e.Kind == model.KindCategory {
		kinds = append(kinds, model.KindNews)
	}
	for _, kind := range kinds {
		_ = i.cache.DeleteByPrefix(context.WithoutCancel(ctx), listKeyPrefix+string(kind)+":")
	}
}
