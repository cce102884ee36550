// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"sync"
	"time"
)

// DebounceConfig controls how edits to one entity are merged.
type DebounceConfig struct {
	// Quiet is how long an entity must go without edits before the latest
	// one is sent.
	Quiet time.Duration
	// Ceiling bounds how long a burst of edits can hold back a delivery.
	Ceiling time.Duration
}

// DefaultDebounceConfig returns the production settings.
func DefaultDebounceConfig() DebounceConfig {
	return DebounceConfig{Quiet: time.Second, Ceiling: 5 * time.Second}
}

// burst is the pending delivery for one entity.
type burst struct {
	latest  *Event
	edits   int
	started time.Time
	timer   *time.Timer
}

// Debouncer merges consecutive edits of the same entity into one
// delivery carrying the latest state and the number of merged edits.
type Debouncer struct {
	dispatcher *Dispatcher
	cfg        DebounceConfig
	now        func() time.Time

	mu     sync.Mutex
	bursts map[string]*burst

	sending sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewDebouncer creates a Debouncer that hands merged events to dispatcher.
func NewDebouncer(dispatcher *Dispatcher, cfg DebounceConfig) *Debouncer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Debouncer{
		dispatcher: dispatcher,
		cfg:        cfg,
		now:        time.Now,
		bursts:     make(map[string]*burst),
		ctx:        ctx,
		cancel:     cancel,
	}
}

// burstKey groups events per entity. The event type already names the
// kind; events that name no entity share their type's key.
func burstKey(event *Event) string {
	var id string
	switch data := event.Data.(type) {
	case ChangeEventData:
		id = data.EntityID
	case *ChangeEventData:
		id = data.EntityID
	}
	if id == "" {
		return event.Type
	}
	return event.Type + "@" + id
}

// Dispatch records an edit. The delivery is sent once the entity has been
// quiet for cfg.Quiet, or at once if the burst is older than cfg.Ceiling.
func (d *Debouncer) Dispatch(_ context.Context, event *Event) error {
	key := burstKey(event)
	now := d.now()

	d.mu.Lock()
	defer d.mu.Unlock()

	b, ok := d.bursts[key]
	if !ok {
		b = &burst{started: now}
		b.timer = time.AfterFunc(d.cfg.Quiet, func() { d.release(key) })
		d.bursts[key] = b
	}
	b.latest = event
	b.edits++

	if now.Sub(b.started) >= d.cfg.Ceiling {
		d.sendLocked(key)
		return nil
	}
	if ok {
		b.timer.Reset(d.cfg.Quiet)
	}
	d.dispatcher.logger.Debug("webhook edit merged", "key", key, "edits", b.edits)
	return nil
}

func (d *Debouncer) release(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sendLocked(key)
}

// sendLocked hands the burst for key to the dispatcher. d.mu must be held.
func (d *Debouncer) sendLocked(key string) {
	b, ok := d.bursts[key]
	if !ok {
		return
	}
	b.timer.Stop()
	delete(d.bursts, key)

	event := b.latest
	if data, ok := event.Data.(ChangeEventData); ok && b.edits > 1 {
		data.Coalesced = b.edits
		event.Data = data
	}

	d.sending.Add(1)
	go func() {
		defer d.sending.Done()
		if err := d.dispatcher.Dispatch(d.ctx, event); err != nil {
			d.dispatcher.logger.Error("webhook delivery not queued", "error", err, "event_type", event.Type)
		}
	}()
}

// Flush sends every pending burst now.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key := range d.bursts {
		d.sendLocked(key)
	}
}

// Stop flushes pending bursts and waits until they are queued. Call it
// before stopping the dispatcher.
func (d *Debouncer) Stop() {
	d.Flush()
	d.sending.Wait()
	d.cancel()
}

// PendingCount reports how many entities have unsent edits.
func (d *Debouncer) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.bursts)
}
