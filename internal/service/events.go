// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package service provides the audit services behind the newsroom core:
// the general event log and the change trail fed by the resource store.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/store"
)

// EventService provides event logging functionality.
type EventService struct {
	queries *store.Queries
	now     func() time.Time
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{
		queries: store.New(db),
		now:     time.Now,
	}
}

// LogEvent creates a new event log entry. An empty actorID is stored as NULL.
func (s *EventService) LogEvent(ctx context.Context, level, category, message, actorID string, metadata map[string]any) error {
	var nullActorID sql.NullString
	if actorID != "" {
		nullActorID = sql.NullString{String: actorID, Valid: true}
	}

	metadataJSON := "{}"
	if metadata != nil {
		jsonBytes, err := json.Marshal(metadata)
		if err == nil {
			metadataJSON = string(jsonBytes)
		}
	}

	_, err := s.queries.CreateEvent(ctx, store.CreateEventParams{
		Level:     level,
		Category:  category,
		Message:   message,
		ActorID:   nullActorID,
		Metadata:  metadataJSON,
		CreatedAt: s.now(),
	})
	if err != nil {
		slog.Error("failed to log event", "error", err, "category", category)
		return err
	}

	return nil
}

// LogInfo logs an info-level event.
func (s *EventService) LogInfo(ctx context.Context, category, message, actorID string, metadata map[string]any) error {
	return s.LogEvent(ctx, model.EventLevelInfo, category, message, actorID, metadata)
}

// LogRBACEvent logs an access-control event.
func (s *EventService) LogRBACEvent(ctx context.Context, level, message, actorID string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategoryRBAC, message, actorID, metadata)
}

// LogSystemEvent logs a system event.
func (s *EventService) LogSystemEvent(ctx context.Context, level, message string, metadata map[string]any) error {
	return s.LogEvent(ctx, level, model.EventCategorySystem, message, "", metadata)
}

// ListEvents returns a page of the event log, newest first, and the total
// number of matching events.
func (s *EventService) ListEvents(ctx context.Context, category, level string, limit, offset int) ([]model.Event, int64, error) {
	params := store.ListEventsParams{
		Category: category,
		Level:    level,
		Limit:    int64(limit),
		Offset:   int64(offset),
	}
	events, err := s.queries.ListEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.queries.CountEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

// DeleteOldEvents removes events older than the specified duration.
func (s *EventService) DeleteOldEvents(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := s.now().Add(-olderThan)
	return s.queries.DeleteOldEvents(ctx, cutoff)
}
