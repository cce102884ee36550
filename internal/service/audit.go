// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/store"
)

// AuditService persists change events to the change trail. It is an event
// sink for the resource store: write failures are logged, never returned,
// so auditing can not fail a committed operation.
type AuditService struct {
	queries *store.Queries
	logger  *slog.Logger
}

// NewAuditService creates an AuditService writing to db.
func NewAuditService(db *sql.DB, logger *slog.Logger) *AuditService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditService{
		queries: store.New(db),
		logger:  logger,
	}
}

// Notify records event.
func (s *AuditService) Notify(ctx context.Context, event model.ChangeEvent) {
	// The request context may already be cancelled once the response is
	// written; the trail entry must still land.
	ctx = context.WithoutCancel(ctx)

	_, err := s.queries.InsertChangeEvent(ctx, store.InsertChangeEventParams{
		Kind:          string(event.Kind),
		EntityID:      event.EntityID,
		ActorID:       event.ActorID,
		Action:        event.Action,
		PreviousState: event.PreviousState,
		NewState:      event.NewState,
		Message:       event.Message,
		CreatedAt:     event.Timestamp,
	})
	if err != nil {
		s.logger.Error("failed to record change event",
			"error", err,
			"event", event.Type(),
			"entity_id", event.EntityID,
		)
	}
}

// History returns the change trail of one entity, newest first.
func (s *AuditService) History(ctx context.Context, kind model.Kind, entityID string, limit int) ([]store.ChangeEvent, error) {
	return s.queries.ListChangeEvents(ctx, store.ListChangeEventsParams{
		Kind:     string(kind),
		EntityID: entityID,
		Limit:    int64(limit),
	})
}

// Trail returns a page of the change trail, optionally filtered by kind and
// actor, together with the total number of matching rows.
func (s *AuditService) Trail(ctx context.Context, kind model.Kind, actorID string, limit, offset int) ([]store.ChangeEvent, int64, error) {
	params := store.ListChangeEventsParams{
		Kind:    string(kind),
		ActorID: actorID,
		Limit:   int64(limit),
		Offset:  int64(offset),
	}
	rows, err := s.queries.ListChangeEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.queries.CountChangeEvents(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}
