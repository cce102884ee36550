// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package webhook delivers change events to external HTTP endpoints as
// signed JSON posts, with a worker pool, retries and per-entity debouncing
// of rapid edits.
package webhook

import (
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/newsmate-go/internal/model"
)

// Event represents a webhook event to be dispatched.
type Event struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data"`
}

// NewEvent creates a new webhook event.
func NewEvent(eventType string, data any) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// ChangeEventData is the payload of every resource change notification.
type ChangeEventData struct {
	Kind          string `json:"kind"`
	EntityID      string `json:"entity_id"`
	ActorID       string `json:"actor_id"`
	Action        string `json:"action"`
	PreviousState string `json:"previous_state,omitempty"`
	NewState      string `json:"new_state,omitempty"`
	Message       string `json:"message,omitempty"`
	// Coalesced counts the edits merged into this delivery when more than one.
	Coalesced int `json:"coalesced,omitempty"`
}

// FromChangeEvent wraps a store change event for delivery. The webhook
// timestamp is the commit time, not the delivery time.
func FromChangeEvent(e model.ChangeEvent) *Event {
	ev := NewEvent(e.Type(), ChangeEventData{
		Kind:          string(e.Kind),
		EntityID:      e.EntityID,
		ActorID:       e.ActorID,
		Action:        e.Action,
		PreviousState: e.PreviousState,
		NewState:      e.NewState,
		Message:       e.Message,
	})
	if !e.Timestamp.IsZero() {
		ev.Timestamp = e.Timestamp.UTC()
	}
	return ev
}

// TestEventData contains data for test webhook events.
type TestEventData struct {
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
