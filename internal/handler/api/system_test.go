// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
	"github.com/olegiv/newsmate-go/internal/scheduler"
	"github.com/olegiv/newsmate-go/internal/store"
	"github.com/olegiv/newsmate-go/internal/testutil"
)

func TestMe(t *testing.T) {
	f := newAPIFixture(t)

	rr := f.do(f.analyst, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me := decodeData[MeResponse](t, rr)
	assert.Equal(t, f.analyst.ID, me.ID)
	assert.Equal(t, model.RoleAnalyst, me.Role)
	assert.Equal(t, []policy.Action{policy.ActionRead}, me.Capabilities[model.KindNews].Always)
	assert.Empty(t, me.Capabilities[model.KindNews].Owned)

	rr = f.do(f.journalist, http.MethodGet, "/me", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	me = decodeData[MeResponse](t, rr)
	news := me.Capabilities[model.KindNews]
	assert.Contains(t, news.Always, policy.ActionCreate)
	assert.Contains(t, news.Owned, policy.ActionChangeStatus)
	assert.NotContains(t, news.Always, policy.ActionEmptyTrash)
	assert.Len(t, me.Capabilities, len(model.Kinds))
}

func TestAudit(t *testing.T) {
	f := newAPIFixture(t, withAudit())
	a := f.createNews(f.journalist, "Audited")

	rr := f.do(f.journalist, http.MethodPost, "/news/"+a.ID+"/transitions", map[string]any{"op": "publish"})
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(f.journalist, http.MethodPost, "/news/"+a.ID+"/transitions", map[string]any{"op": "publish"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = f.do(f.analyst, http.MethodGet, "/news/"+a.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	history := decodeData[[]store.ChangeEvent](t, rr)
	require.Len(t, history, 2, "no-op publish must not be recorded")
	assert.Equal(t, model.ActionStatusChanged, history[0].Action)
	assert.Equal(t, string(model.NewsStatusPublished), history[0].NewState)
	assert.Equal(t, model.ActionCreated, history[1].Action)

	rr = f.do(f.journalist, http.MethodDelete, "/news/"+a.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = f.do(f.journalist, http.MethodDelete, "/news/"+a.ID+"/permanent", nil)
	require.Equal(t, http.StatusNoContent, rr.Code)

	rr = f.do(f.analyst, http.MethodGet, "/news/"+a.ID+"/history", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeData[[]store.ChangeEvent](t, rr), 4)

	rr = f.do(f.analyst, http.MethodGet, "/audit?kind=news&actor="+f.journalist.ID+"&per_page=3", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decodeData[[]store.ChangeEvent](t, rr), 3)
	meta := decodeMeta(t, rr)
	assert.Equal(t, int64(4), meta.Total)
	assert.Equal(t, 2, meta.Pages)

	rr = f.do(f.analyst, http.MethodGet, "/audit?kind=widgets", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAudit_Disabled(t *testing.T) {
	f := newAPIFixture(t)
	a := f.createNews(f.journalist, "Untracked")

	rr := f.do(f.analyst, http.MethodGet, "/news/"+a.ID+"/history", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = f.do(f.analyst, http.MethodGet, "/audit", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestListEvents(t *testing.T) {
	f := newAPIFixture(t, withEventLog())
	a := f.createNews(f.journalist, "Not yours")

	rr := f.do(f.journalist2, http.MethodPut, "/news/"+a.ID, map[string]any{"title": "Mine now"})
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(f.admin, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(f.super, http.MethodGet, "/events?category=rbac", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	events := decodeData[[]EventResponse](t, rr)
	require.Len(t, events, 1)
	assert.Equal(t, f.journalist2.ID, events[0].ActorID)
	assert.Equal(t, model.EventLevelWarning, events[0].Level)
	assert.Contains(t, string(events[0].Metadata), `"action":"update"`)
	assert.Equal(t, int64(1), decodeMeta(t, rr).Total)

	rr = f.do(f.super, http.MethodGet, "/events?level=error", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decodeData[[]EventResponse](t, rr))
}

func TestListEvents_Disabled(t *testing.T) {
	f := newAPIFixture(t)
	rr := f.do(f.super, http.MethodGet, "/events", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestJobs(t *testing.T) {
	f := newAPIFixture(t)
	sched := scheduler.New(f.store, "", testutil.TestLoggerSilent())
	require.NoError(t, sched.Register(scheduler.SweepJobName, "Publish due articles", "@every 1m", sched.Sweep))
	require.NoError(t, sched.Register("broken", "Always fails", "@daily", func(context.Context) error {
		return errors.New("boom")
	}))
	f.router = NewHandler(Config{Store: f.store, Jobs: sched, Logger: testutil.TestLoggerSilent()}).Routes()

	rr := f.do(f.analyst, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	jobs := decodeData[[]scheduler.JobInfo](t, rr)
	require.Len(t, jobs, 2)
	assert.Equal(t, scheduler.SweepJobName, jobs[0].Name)

	a := f.createNews(f.journalist, "Morning briefing")
	rr = f.do(f.journalist, http.MethodPost, "/news/"+a.ID+"/transitions", map[string]any{
		"op":         "schedule",
		"publish_at": fixtureStart.Add(time.Hour),
	})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	f.clock.Advance(2 * time.Hour)

	rr = f.do(f.analyst, http.MethodPost, "/jobs/"+scheduler.SweepJobName+"/run", nil)
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = f.do(f.admin, http.MethodPost, "/jobs/"+scheduler.SweepJobName+"/run", nil)
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	rr = f.do(f.analyst, http.MethodGet, "/news/"+a.ID, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, model.NewsStatusPublished, decodeData[NewsDetailResponse](t, rr).Status)

	rr = f.do(f.admin, http.MethodPost, "/jobs/broken/run", nil)
	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "job_failed", decodeError(t, rr).Code)

	rr = f.do(f.admin, http.MethodPost, "/jobs/missing/run", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
}
