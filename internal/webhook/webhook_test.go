// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package webhook

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/testutil"
)

func TestGenerateSignature(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		secret  string
	}{
		{"empty payload", []byte{}, "secret"},
		{"simple payload", []byte(`{"event":"test"}`), "mysecret"},
		{"change payload", []byte(`{"type":"news.status_changed","data":{"entity_id":"n1"}}`), "webhook-secret-key"},
		{"empty secret", []byte(`test`), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GenerateSignature(tt.payload, tt.secret)
			if len(result) != 64 {
				t.Errorf("GenerateSignature() returned signature with length %d, expected 64", len(result))
			}
			if result != GenerateSignature(tt.payload, tt.secret) {
				t.Error("GenerateSignature() not consistent")
			}
		})
	}

	// Known answer.
	got := GenerateSignature([]byte("The quick brown fox jumps over the lazy dog"), "key")
	want := "f7bc83f430538424b13298e6aa6fb143ef4d59a14946175997479dbc2d1a3cd8"
	if got != want {
		t.Errorf("GenerateSignature() = %s, want %s", got, want)
	}
}

func TestVerifySignature(t *testing.T) {
	payload := []byte(`{"type":"ad.soft_deleted"}`)
	sig := GenerateSignature(payload, "s3cret")

	if !VerifySignature(payload, sig, "s3cret") {
		t.Error("valid signature rejected")
	}
	if VerifySignature(payload, sig, "other") {
		t.Error("signature accepted with the wrong secret")
	}
	if VerifySignature([]byte(`{"type":"ad.restored"}`), sig, "s3cret") {
		t.Error("signature accepted for a different payload")
	}
	if VerifySignature(payload, "", "s3cret") {
		t.Error("empty signature accepted")
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		name     string
		attempt  int64
		expected time.Duration
	}{
		{"attempt 0", 0, 1 * time.Minute},
		{"attempt 1", 1, 1 * time.Minute},
		{"attempt 2", 2, 2 * time.Minute},
		{"attempt 3", 3, 4 * time.Minute},
		{"attempt 10", 10, 512 * time.Minute},
		{"attempt 15", 15, 24 * time.Hour},
		{"attempt 200", 200, 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := calculateBackoff(tt.attempt, time.Minute, 24*time.Hour)
			if result != tt.expected {
				t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestBurstKey(t *testing.T) {
	tests := []struct {
		name     string
		event    *Event
		expected string
	}{
		{"change data", &Event{Type: "news.updated", Data: ChangeEventData{EntityID: "n1"}}, "news.updated@n1"},
		{"change data pointer", &Event{Type: "ad.updated", Data: &ChangeEventData{EntityID: "a7"}}, "ad.updated@a7"},
		{"no entity", &Event{Type: "news.updated", Data: ChangeEventData{}}, "news.updated"},
		{"other payload", &Event{Type: "test", Data: TestEventData{Message: "hi"}}, "test"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := burstKey(tt.event); got != tt.expected {
				t.Errorf("burstKey() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestFromChangeEvent(t *testing.T) {
	at := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)
	ev := FromChangeEvent(model.ChangeEvent{
		Kind:          model.KindNews,
		EntityID:      "n1",
		ActorID:       model.SystemActorID,
		Action:        model.ActionAutoPublished,
		PreviousState: "Scheduled",
		NewState:      "Published",
		Timestamp:     at,
	})

	assert.Equal(t, "news.auto_published", ev.Type)
	assert.Equal(t, at, ev.Timestamp)
	assert.NotEmpty(t, ev.ID)
	data, ok := ev.Data.(ChangeEventData)
	require.True(t, ok)
	assert.Equal(t, "Published", data.NewState)
	assert.Equal(t, "system", data.ActorID)
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, 5, cfg.MaxAttempts)

	d := NewDispatcher(nil, Config{})
	assert.Equal(t, 3, d.cfg.Workers)
	assert.Equal(t, 100, cap(d.queue))
}

// receiver is a test endpoint recording signed deliveries.
type receiver struct {
	mu       sync.Mutex
	bodies   [][]byte
	headers  []http.Header
	statuses []int // responses to return in order; 200 once exhausted
	calls    atomic.Int32
}

func (r *receiver) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	body, _ := io.ReadAll(req.Body)

	r.mu.Lock()
	n := len(r.bodies)
	r.bodies = append(r.bodies, body)
	r.headers = append(r.headers, req.Header.Clone())
	status := http.StatusOK
	if n < len(r.statuses) {
		status = r.statuses[n]
	}
	r.calls.Add(1)
	r.mu.Unlock()

	w.WriteHeader(status)
}

func (r *receiver) snapshot() ([][]byte, []http.Header) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([][]byte(nil), r.bodies...), append([]http.Header(nil), r.headers...)
}

func startDispatcher(t *testing.T, urls []string) *Dispatcher {
	t.Helper()
	d := NewDispatcher(testutil.TestLoggerSilent(), Config{
		URLs:           urls,
		Secret:         "s3cret",
		Workers:        2,
		InitialBackoff: 10 * time.Millisecond,
		MaxBackoff:     50 * time.Millisecond,
		MaxAttempts:    3,
	})
	d.Start(context.Background())
	t.Cleanup(d.Stop)
	return d
}

func TestDispatch_DeliversSignedPayload(t *testing.T) {
	rec := &receiver{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	d := startDispatcher(t, []string{srv.URL, srv.URL + "/second"})
	require.NoError(t, d.DispatchEvent(context.Background(), "news.created", ChangeEventData{EntityID: "n1"}))

	require.Eventually(t, func() bool { return rec.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)

	bodies, headers := rec.snapshot()
	for i, body := range bodies {
		h := headers[i]
		assert.Equal(t, "application/json", h.Get("Content-Type"))
		assert.Equal(t, UserAgent, h.Get("User-Agent"))
		assert.Equal(t, "news.created", h.Get("X-Webhook-Event"))
		assert.NotEmpty(t, h.Get("X-Webhook-Delivery-ID"))
		assert.True(t, VerifySignature(body, h.Get("X-Webhook-Signature"), "s3cret"))

		var ev Event
		require.NoError(t, json.Unmarshal(body, &ev))
		assert.Equal(t, "news.created", ev.Type)
	}
}

func TestDispatch_RetriesServerErrors(t *testing.T) {
	rec := &receiver{statuses: []int{http.StatusBadGateway, http.StatusTooManyRequests}}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	d := startDispatcher(t, []string{srv.URL})
	require.NoError(t, d.DispatchEvent(context.Background(), "ad.status_changed", nil))

	require.Eventually(t, func() bool { return rec.calls.Load() == 3 }, 2*time.Second, 5*time.Millisecond)

	bodies, headers := rec.snapshot()
	assert.Equal(t, bodies[0], bodies[2], "retries resend the same payload")
	assert.Equal(t, headers[0].Get("X-Webhook-Delivery-ID"), headers[2].Get("X-Webhook-Delivery-ID"))
}

func TestDispatch_GivesUp(t *testing.T) {
	tests := []struct {
		name     string
		statuses []int
		want     int32
	}{
		{"client error is final", []int{http.StatusBadRequest}, 1},
		{"attempts are capped", []int{500, 500, 500, 500, 500}, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &receiver{statuses: tt.statuses}
			srv := httptest.NewServer(rec)
			defer srv.Close()

			d := startDispatcher(t, []string{srv.URL})
			require.NoError(t, d.DispatchEvent(context.Background(), "news.created", nil))

			require.Eventually(t, func() bool { return rec.calls.Load() == tt.want }, 2*time.Second, 5*time.Millisecond)
			time.Sleep(150 * time.Millisecond)
			assert.Equal(t, tt.want, rec.calls.Load())
		})
	}
}

func TestDispatch_NotRunning(t *testing.T) {
	rec := &receiver{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	d := NewDispatcher(testutil.TestLoggerSilent(), Config{URLs: []string{srv.URL}})
	require.NoError(t, d.DispatchEvent(context.Background(), "news.created", nil))
	assert.Empty(t, d.queue)
}

func TestNotifier_DebouncesEdits(t *testing.T) {
	rec := &receiver{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	d := startDispatcher(t, []string{srv.URL})
	deb := NewDebouncer(d, DebounceConfig{Quiet: 30 * time.Millisecond, Ceiling: time.Second})
	n := NewNotifier(d, deb)
	ctx := context.Background()

	for range 5 {
		n.Notify(ctx, model.ChangeEvent{Kind: model.KindNews, EntityID: "n1", Action: model.ActionUpdated})
	}
	n.Notify(ctx, model.ChangeEvent{Kind: model.KindNews, EntityID: "n1", Action: model.ActionStatusChanged, PreviousState: "Draft", NewState: "Published"})

	require.Eventually(t, func() bool { return rec.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
	deb.Stop()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(2), rec.calls.Load())
	assert.Zero(t, deb.PendingCount())

	bodies, headers := rec.snapshot()
	var types []string
	for i, h := range headers {
		types = append(types, h.Get("X-Webhook-Event"))
		if h.Get("X-Webhook-Event") == "news.updated" {
			assert.Contains(t, string(bodies[i]), `"coalesced":5`)
		}
	}
	assert.ElementsMatch(t, []string{"news.updated", "news.status_changed"}, types)
}

func TestDebouncer_Flush(t *testing.T) {
	rec := &receiver{}
	srv := httptest.NewServer(rec)
	defer srv.Close()

	d := startDispatcher(t, []string{srv.URL})
	deb := NewDebouncer(d, DebounceConfig{Quiet: time.Hour, Ceiling: time.Hour})

	ctx := context.Background()
	require.NoError(t, deb.Dispatch(ctx, FromChangeEvent(model.ChangeEvent{Kind: model.KindAd, EntityID: "a1", Action: model.ActionUpdated})))
	require.NoError(t, deb.Dispatch(ctx, FromChangeEvent(model.ChangeEvent{Kind: model.KindAd, EntityID: "a2", Action: model.ActionUpdated})))
	assert.Equal(t, 2, deb.PendingCount())

	deb.Stop()
	require.Eventually(t, func() bool { return rec.calls.Load() == 2 }, 2*time.Second, 5*time.Millisecond)
}
