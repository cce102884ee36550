// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// Lifecycle holds the fields shared by every managed entity, including the
// soft-delete overlay. IsDeleted is orthogonal to the entity status: a
// trashed entity keeps its status so that restore reproduces it exactly.
type Lifecycle struct {
	ID        string     `json:"id"`
	OwnerID   string     `json:"owner_id"`
	IsDeleted bool       `json:"is_deleted"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
	Version   int64      `json:"version"`
}

// Base returns the lifecycle itself so embedding types satisfy Entity.
func (l *Lifecycle) Base() *Lifecycle {
	return l
}

// Touch refreshes UpdatedAt and bumps the version.
func (l *Lifecycle) Touch(now time.Time) {
	l.UpdatedAt = now
	l.Version++
}

// Entity is implemented by every lifecycle-managed type.
type Entity interface {
	Base() *Lifecycle
	Kind() Kind
	// StatusLabel returns the status used for tab filtering, or "" for
	// kinds without a status.
	StatusLabel() string
}

// cloneTime returns a copy of a nullable time.
func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}

func (l Lifecycle) clone() Lifecycle {
	l.DeletedAt = cloneTime(l.DeletedAt)
	return l
}
