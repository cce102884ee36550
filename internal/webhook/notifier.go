// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"

	"github.com/olegiv/newsmate-go/internal/model"
)

// Notifier is the resource event sink that turns change events into
// webhook deliveries. Field edits go through the debouncer; status and
// trash changes are sent at once so receivers see every transition.
type Notifier struct {
	dispatcher *Dispatcher
	debouncer  *Debouncer
}

// NewNotifier creates a Notifier. debouncer may be nil to send every
// event immediately.
func NewNotifier(dispatcher *Dispatcher, debouncer *Debouncer) *Notifier {
	return &Notifier{dispatcher: dispatcher, debouncer: debouncer}
}

// Notify implements resource.EventSink.
func (n *Notifier) Notify(ctx context.Context, e model.ChangeEvent) {
	event := FromChangeEvent(e)

	var err error
	if n.debouncer != nil && e.Action == model.ActionUpdated {
		err = n.debouncer.Dispatch(ctx, event)
	} else {
		err = n.dispatcher.Dispatch(ctx, event)
	}
	if err != nil {
		n.dispatcher.logger.Error("failed to dispatch webhook",
			"error", err,
			"event_type", event.Type,
			"entity_id", e.EntityID)
	}
}
