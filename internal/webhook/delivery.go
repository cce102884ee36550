// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	RequestTimeout = 15 * time.Second
	MaxResponseLen = 10 * 1024 // response bytes kept for logs
	UserAgent      = "NewsMate/1.0"
)

// outcome is what one POST to a receiver produced.
type outcome struct {
	status int
	body   string
	err    error
	retry  bool
}

func (o outcome) ok() bool { return o.err == nil }

var httpClient = &http.Client{
	Timeout: RequestTimeout,
	Transport: &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		IdleConnTimeout:     90 * time.Second,
	},
}

// processDelivery posts one change notification and decides between done,
// retry later and give up.
func (d *Dispatcher) processDelivery(ctx context.Context, qd *QueuedDelivery) {
	res := d.post(ctx, qd)
	qd.Attempts++
	log := d.logger.With("delivery_id", qd.DeliveryID, "event_type", qd.Event)

	switch {
	case res.ok():
		log.Info("webhook delivered", "status_code", res.status)
	case !res.retry || qd.Attempts >= d.cfg.MaxAttempts:
		log.Error("webhook dropped", "url", qd.URL, "attempts", qd.Attempts, "reason", res.err, "response", res.body)
	default:
		wait := calculateBackoff(int64(qd.Attempts), d.cfg.InitialBackoff, d.cfg.MaxBackoff)
		log.Warn("webhook retry scheduled", "attempt", qd.Attempts, "backoff", wait.String(), "reason", res.err)
		d.scheduleRetry(qd, wait)
	}
}

// post sends the signed payload. Network failures, 408, 429 and 5xx are
// retried; other non-2xx answers are final.
func (d *Dispatcher) post(ctx context.Context, qd *QueuedDelivery) outcome {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, qd.URL, bytes.NewReader(qd.Payload))
	if err != nil {
		return outcome{err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("X-Webhook-Signature", GenerateSignature(qd.Payload, d.cfg.Secret))
	req.Header.Set("X-Webhook-Event", qd.Event)
	req.Header.Set("X-Webhook-Delivery-ID", qd.DeliveryID)

	resp, err := d.client.Do(req)
	if err != nil {
		return outcome{err: fmt.Errorf("post: %w", err), retry: true}
	}
	defer func() { _ = resp.Body.Close() }()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseLen))

	res := outcome{status: resp.StatusCode, body: string(body)}
	if resp.StatusCode/100 == 2 {
		return res
	}
	res.err = fmt.Errorf("receiver answered %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	switch {
	case resp.StatusCode >= 500, resp.StatusCode == http.StatusRequestTimeout, resp.StatusCode == http.StatusTooManyRequests:
		res.retry = true
	}
	return res
}

// calculateBackoff doubles from initial per attempt and caps at maxBackoff.
func calculateBackoff(attempt int64, initial, maxBackoff time.Duration) time.Duration {
	wait := initial
	for i := int64(1); i < attempt; i++ {
		if wait >= maxBackoff/2 {
			return maxBackoff
		}
		wait *= 2
	}
	return min(wait, maxBackoff)
}
