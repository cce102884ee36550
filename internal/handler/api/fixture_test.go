// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsmate-go/internal/auth"
	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/middleware"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/resource"
	"github.com/olegiv/newsmate-go/internal/service"
	"github.com/olegiv/newsmate-go/internal/testutil"
)

var fixtureStart = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// apiFixture is a router over a real store seeded with one account per role.
type apiFixture struct {
	t      *testing.T
	clock  *testutil.Clock
	store  *resource.Store
	router http.Handler

	super       model.Actor
	admin       model.Actor
	journalist  model.Actor
	journalist2 model.Actor
	analyst     model.Actor

	creds    map[string]auth.Credentials
	category *model.Category
}

// fixtureSetup collects what options change before the store is built.
type fixtureSetup struct {
	cfg     Config
	sinks   resource.MultiSink
	denials resource.DenialRecorder
}

type fixtureOption func(t *testing.T, s *fixtureSetup)

// withAudit records changes in a temporary SQLite audit trail.
func withAudit() fixtureOption {
	return func(t *testing.T, s *fixtureSetup) {
		db, cleanup := testutil.TestDB(t)
		t.Cleanup(cleanup)
		audit := service.NewAuditService(db, testutil.TestLoggerSilent())
		s.cfg.Audit = audit
		s.sinks = append(s.sinks, audit)
	}
}

// withEventLog keeps the event log in a temporary SQLite database and
// records permission denials there.
func withEventLog() fixtureOption {
	return func(t *testing.T, s *fixtureSetup) {
		db, cleanup := testutil.TestDB(t)
		t.Cleanup(cleanup)
		events := service.NewEventService(db)
		s.cfg.Events = events
		s.denials = events
	}
}

func newAPIFixture(t *testing.T, opts ...fixtureOption) *apiFixture {
	t.Helper()
	ctx := context.Background()
	logger := testutil.TestLoggerSilent()
	clock := testutil.NewClock(fixtureStart)

	mc := cache.NewMemoryCache(cache.MemoryCacheOptions{DefaultTTL: time.Minute})
	t.Cleanup(func() { _ = mc.Close() })

	setup := &fixtureSetup{sinks: resource.MultiSink{cache.NewInvalidator(mc)}}
	for _, opt := range opts {
		opt(t, setup)
	}

	s := resource.New(resource.Options{
		Now:     clock.Now,
		NewID:   testutil.SequentialIDs("id"),
		Logger:  logger,
		Sink:    setup.sinks,
		Denials: setup.denials,
	})

	f := &apiFixture{t: t, clock: clock, store: s, creds: map[string]auth.Credentials{}}

	root, err := s.Bootstrap(ctx, "Root Admin")
	require.NoError(t, err)
	f.super = root.Account.Actor()
	f.creds[f.super.ID] = root.Credentials

	staff := func(name string, role model.Role) model.Actor {
		created, err := s.CreateStaff(ctx, f.super, resource.StaffInput{Name: name, Role: role})
		require.NoError(t, err)
		f.creds[created.Account.ID] = created.Credentials
		return created.Account.Actor()
	}
	f.admin = staff("Ada Editor", model.RoleAdmin)
	f.journalist = staff("Jon Reporter", model.RoleJournalist)
	f.journalist2 = staff("Jane Stringer", model.RoleJournalist)
	f.analyst = staff("Ana Numbers", model.RoleAnalyst)

	f.category, err = s.CreateCategory(ctx, f.admin, resource.CategoryInput{Name: "Politics"})
	require.NoError(t, err)

	lp := middleware.NewLoginProtection(middleware.LoginProtectionConfig{
		IPRateLimit:       1000,
		IPBurst:           1000,
		MaxFailedAttempts: 3,
		LockoutDuration:   time.Minute,
		AttemptWindow:     time.Minute,
		Now:               f.clock.Now,
		Logger:            testutil.TestLoggerSilent(),
	})
	t.Cleanup(lp.Close)

	cfg := setup.cfg
	cfg.Store = s
	cfg.Cache = mc
	cfg.Login = lp
	cfg.RateLimit = 1000
	cfg.RateBurst = 1000
	cfg.Version = "test"
	cfg.Logger = logger
	f.router = NewHandler(cfg).Routes()
	return f
}

// do sends a request as actor; a zero actor sends no actor header.
func (f *apiFixture) do(actor model.Actor, method, path string, body any, header ...string) *httptest.ResponseRecorder {
	f.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(f.t, err)
		rd = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if actor.ID != "" {
		req.Header.Set(middleware.ActorHeader, actor.ID)
	}
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

// createNews creates a draft as actor and returns it.
func (f *apiFixture) createNews(actor model.Actor, title string) model.NewsArticle {
	f.t.Helper()
	rr := f.do(actor, http.MethodPost, "/news", map[string]any{
		"title":       title,
		"body":        "Body of " + title,
		"category_id": f.category.ID,
	})
	require.Equal(f.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeData[model.NewsArticle](f.t, rr)
}

// createAd creates an active campaign as actor and returns it.
func (f *apiFixture) createAd(actor model.Actor, title string) model.AdCampaign {
	f.t.Helper()
	rr := f.do(actor, http.MethodPost, "/ads", map[string]any{
		"title":      title,
		"advertiser": "Acme",
		"target_url": "https://acme.example/landing",
		"budget":     100,
	})
	require.Equal(f.t, http.StatusCreated, rr.Code, rr.Body.String())
	return decodeData[model.AdCampaign](f.t, rr)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
	Meta *Meta           `json:"meta"`
}

// wireResult mirrors resource.Result on the wire.
type wireResult[T any] struct {
	Entity  T    `json:"entity"`
	Changed bool `json:"changed"`
}

func decodeData[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func decodeMeta(t *testing.T, rr *httptest.ResponseRecorder) Meta {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &env), rr.Body.String())
	require.NotNil(t, env.Meta)
	return *env.Meta
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp), rr.Body.String())
	return resp.Error
}
