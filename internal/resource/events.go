// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"context"
	"log/slog"

	"github.com/olegiv/newsmate-go/internal/model"
)

// EventSink receives a record of every successful state change. Sinks must
// not block for long and never fail the operation that produced the event.
type EventSink interface {
	Notify(ctx context.Context, event model.ChangeEvent)
}

// SinkFunc adapts a function to EventSink.
type SinkFunc func(ctx context.Context, event model.ChangeEvent)

// Notify implements EventSink.
func (f SinkFunc) Notify(ctx context.Context, event model.ChangeEvent) {
	f(ctx, event)
}

// MultiSink fans an event out to every sink in order.
type MultiSink []EventSink

// Notify implements EventSink.
func (m MultiSink) Notify(ctx context.Context, event model.ChangeEvent) {
	for _, s := range m {
		if s != nil {
			s.Notify(ctx, event)
		}
	}
}

// LogSink writes change events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

// Notify implements EventSink.
func (l LogSink) Notify(ctx context.Context, event model.ChangeEvent) {
	l.Logger.InfoContext(ctx, event.Message,
		"category", model.EventCategoryForKind(event.Kind),
		"event", event.Type(),
		"entity_id", event.EntityID,
		"actor_id", event.ActorID,
		"from", event.PreviousState,
		"to", event.NewState,
	)
}

type discardSink struct{}

func (discardSink) Notify(context.Context, model.ChangeEvent) {}
