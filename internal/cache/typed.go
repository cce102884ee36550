// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"
)

// TypedCache stores values of T as JSON in a byte-level Cache.
type TypedCache[T any] struct {
	cache Cache
	ttl   time.Duration
}

func NewTypedCache[T any](c Cache, ttl time.Duration) *TypedCache[T] {
	return &TypedCache[T]{cache: c, ttl: ttl}
}

// Get reports a miss for absent entries and for entries that no longer
// decode as T.
func (c *TypedCache[T]) Get(ctx context.Context, key string) (*T, bool) {
	raw, err := c.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	v := new(T)
	if json.Unmarshal(raw, v) != nil {
		return nil, false
	}
	return v, true
}

func (c *TypedCache[T]) Set(ctx context.Context, key string, v *T) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return c.cache.Set(ctx, key, raw, c.ttl)
}

func (c *TypedCache[T]) Delete(ctx context.Context, key string) error {
	return c.cache.Delete(ctx, key)
}

// GetOrSet serves key from the cache or computes, stores and returns it.
// A failed store is not an error; the next call recomputes.
func (c *TypedCache[T]) GetOrSet(ctx context.Context, key string, compute func() (*T, error)) (*T, bool, error) {
	if v, ok := c.Get(ctx, key); ok {
		return v, true, nil
	}
	v, err := compute()
	if err != nil {
		return nil, false, err
	}
	_ = c.Set(ctx, key, v)
	return v, false, nil
}
