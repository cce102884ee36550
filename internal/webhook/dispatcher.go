// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Dispatcher fans events out to the configured endpoints through a pool of
// delivery workers.
type Dispatcher struct {
	cfg     Config
	client  *http.Client
	logger  *slog.Logger
	queue   chan *QueuedDelivery
	wg      sync.WaitGroup
	done    chan struct{}
	mu      sync.RWMutex
	running bool
	retries map[*time.Timer]struct{}
}

// QueuedDelivery represents a delivery queued for processing.
type QueuedDelivery struct {
	DeliveryID string
	Event      string
	Payload    []byte
	URL        string
	Attempts   int
}

// Config holds dispatcher configuration.
type Config struct {
	URLs           []string      // Endpoints receiving every event
	Secret         string        // HMAC key for X-Webhook-Signature
	Workers        int           // Number of concurrent delivery workers
	QueueSize      int           // Buffered deliveries before new ones are dropped
	MaxAttempts    int           // Attempts per delivery including the first
	InitialBackoff time.Duration // Delay before the first retry
	MaxBackoff     time.Duration // Upper bound for retry delays
	Client         *http.Client  // Optional; defaults to a client with RequestTimeout
}

// DefaultConfig returns default dispatcher configuration.
func DefaultConfig() Config {
	return Config{
		Workers:        3,
		QueueSize:      100,
		MaxAttempts:    5,
		InitialBackoff: 2 * time.Second,
		MaxBackoff:     5 * time.Minute,
	}
}

// NewDispatcher creates a new webhook dispatcher. Zero config fields take
// their DefaultConfig values.
func NewDispatcher(logger *slog.Logger, cfg Config) *Dispatcher {
	def := DefaultConfig()
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = def.QueueSize
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.InitialBackoff <= 0 {
		cfg.InitialBackoff = def.InitialBackoff
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = def.MaxBackoff
	}
	client := cfg.Client
	if client == nil {
		client = httpClient
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Dispatcher{
		cfg:     cfg,
		client:  client,
		logger:  logger,
		queue:   make(chan *QueuedDelivery, cfg.QueueSize),
		done:    make(chan struct{}),
		retries: make(map[*time.Timer]struct{}),
	}
}

// Start starts the dispatcher workers.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return
	}
	d.running = true
	d.mu.Unlock()

	d.logger.Info("starting webhook dispatcher", "workers", d.cfg.Workers, "endpoints", len(d.cfg.URLs))

	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker(ctx, i)
	}
}

// Stop stops the dispatcher, cancels pending retries and waits for
// in-flight deliveries to finish. Deliveries still queued are dropped.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return
	}
	d.running = false
	for t := range d.retries {
		t.Stop()
	}
	clear(d.retries)
	d.mu.Unlock()

	d.logger.Info("stopping webhook dispatcher")
	close(d.done)
	d.wg.Wait()
	d.logger.Info("webhook dispatcher stopped")
}

func (d *Dispatcher) isRunning() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.running
}

// worker processes queued deliveries.
func (d *Dispatcher) worker(ctx context.Context, id int) {
	defer d.wg.Done()
	d.logger.Debug("webhook worker started", "worker_id", id)

	for {
		select {
		case <-d.done:
			d.logger.Debug("webhook worker stopping", "worker_id", id)
			return
		case <-ctx.Done():
			d.logger.Debug("webhook worker context cancelled", "worker_id", id)
			return
		case delivery := <-d.queue:
			d.processDelivery(ctx, delivery)
		}
	}
}

// Dispatch queues one delivery of event per configured endpoint.
func (d *Dispatcher) Dispatch(_ context.Context, event *Event) error {
	if !d.isRunning() {
		d.logger.Warn("dispatcher not running, cannot dispatch event", "event_type", event.Type)
		return nil
	}
	if len(d.cfg.URLs) == 0 {
		return nil
	}

	payload, err := json.Marshal(event)
	if err != nil {
		d.logger.Error("failed to marshal event payload", "error", err, "event_type", event.Type)
		return err
	}

	for _, url := range d.cfg.URLs {
		d.enqueue(&QueuedDelivery{
			DeliveryID: uuid.NewString(),
			Event:      event.Type,
			Payload:    payload,
			URL:        url,
		})
	}
	return nil
}

// DispatchEvent is a convenience method to dispatch an event with the given type and data.
func (d *Dispatcher) DispatchEvent(ctx context.Context, eventType string, data any) error {
	return d.Dispatch(ctx, NewEvent(eventType, data))
}

func (d *Dispatcher) enqueue(qd *QueuedDelivery) {
	select {
	case d.queue <- qd:
		d.logger.Debug("delivery queued", "delivery_id", qd.DeliveryID, "url", qd.URL)
	default:
		d.logger.Warn("delivery queue full, dropping delivery",
			"delivery_id", qd.DeliveryID,
			"event_type", qd.Event,
			"url", qd.URL)
	}
}

// scheduleRetry re-queues qd after its backoff unless the dispatcher stops
// first.
func (d *Dispatcher) scheduleRetry(qd *QueuedDelivery, backoff time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return
	}

	var t *time.Timer
	t = time.AfterFunc(backoff, func() {
		d.mu.Lock()
		_, pending := d.retries[t]
		delete(d.retries, t)
		d.mu.Unlock()
		if pending {
			d.enqueue(qd)
		}
	})
	d.retries[t] = struct{}{}
}

// GenerateSignature generates an HMAC-SHA256 signature for the payload.
func GenerateSignature(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature verifies an HMAC-SHA256 signature.
func VerifySignature(payload []byte, signature, secret string) bool {
	expectedSig := GenerateSignature(payload, secret)
	return hmac.Equal([]byte(signature), []byte(expectedSig))
}
