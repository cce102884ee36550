// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import (
	"database/sql"
	"fmt"
	"time"
)

// Event levels
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// Event categories
const (
	EventCategoryNews     = "news"
	EventCategoryAd       = "ad"
	EventCategoryCategory = "category"
	EventCategoryStaff    = "staff"
	EventCategoryRBAC     = "rbac"
	EventCategoryConfig   = "config"
	EventCategorySystem   = "system"
	EventCategoryCache    = "cache"
)

// EventCategoryForKind maps a resource kind to its event log category.
func EventCategoryForKind(k Kind) string {
	switch k {
	case KindNews:
		return EventCategoryNews
	case KindAd:
		return EventCategoryAd
	case KindCategory:
		return EventCategoryCategory
	case KindStaff:
		return EventCategoryStaff
	default:
		return EventCategorySystem
	}
}

// Event represents a system event log entry.
type Event struct {
	ID        int64
	Level     string
	Category  string
	Message   string
	ActorID   sql.NullString
	Metadata  string // JSON string
	CreatedAt time.Time
}

// Change actions recorded on change events.
const (
	ActionCreated          = "created"
	ActionUpdated          = "updated"
	ActionStatusChanged    = "status_changed"
	ActionAutoPublished    = "auto_published"
	ActionSoftDeleted      = "soft_deleted"
	ActionRestored         = "restored"
	ActionPermanentDeleted = "permanently_deleted"
)

// State labels used on change events for the trash overlay.
const (
	StateTrashed = "Trashed"
	StateGone    = "Gone"
)

// ChangeEvent is emitted for every successful state-changing operation.
// The core only produces these records; delivery belongs to the sinks.
type ChangeEvent struct {
	Kind          Kind      `json:"kind"`
	EntityID      string    `json:"entity_id"`
	ActorID       string    `json:"actor_id"`
	Action        string    `json:"action"`
	PreviousState string    `json:"previous_state"`
	NewState      string    `json:"new_state"`
	Timestamp     time.Time `json:"timestamp"`
	Message       string    `json:"message,omitempty"`
}

// Type returns the dotted event type, e.g. "news.status_changed".
func (e ChangeEvent) Type() string {
	return fmt.Sprintf("%s.%s", e.Kind, e.Action)
}
