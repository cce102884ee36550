// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
	"github.com/olegiv/newsmate-go/internal/resource"
	"github.com/olegiv/newsmate-go/internal/testutil"
)

func TestWriteHelpers(t *testing.T) {
	tests := []struct {
		name     string
		write    func(w http.ResponseWriter)
		wantCode int
		wantErr  string
	}{
		{"bad request", func(w http.ResponseWriter) { WriteBadRequest(w, "x", nil) }, http.StatusBadRequest, "bad_request"},
		{"not found", func(w http.ResponseWriter) { WriteNotFound(w, "x") }, http.StatusNotFound, "not_found"},
		{"unauthorized", func(w http.ResponseWriter) { WriteUnauthorized(w, "x") }, http.StatusUnauthorized, "unauthorized"},
		{"forbidden", func(w http.ResponseWriter) { WriteForbidden(w, "x") }, http.StatusForbidden, "forbidden"},
		{"internal", func(w http.ResponseWriter) { WriteInternalError(w, "x") }, http.StatusInternalServerError, "internal_error"},
		{"validation", func(w http.ResponseWriter) { WriteValidationError(w, map[string]string{"f": "m"}) }, http.StatusUnprocessableEntity, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			tt.write(rr)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
			assert.Equal(t, tt.wantErr, decodeError(t, rr).Code)
		})
	}

	rr := httptest.NewRecorder()
	WriteSuccess(rr, []string{"a"}, &Meta{Total: 1})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"data":["a"],"meta":{"total":1}}`, rr.Body.String())
}

func TestWriteStoreError(t *testing.T) {
	h := NewHandler(Config{Logger: testutil.TestLoggerSilent()})

	tests := []struct {
		name     string
		err      error
		wantCode int
		wantErr  string
	}{
		{"policy denial", &policy.Error{Role: model.RoleAnalyst, Kind: model.KindNews, Action: policy.ActionCreate}, http.StatusForbidden, "forbidden"},
		{"not found", &resource.NotFoundError{Kind: model.KindNews, ID: "n1"}, http.StatusNotFound, "not_found"},
		{"conflict", &resource.ConflictError{Kind: model.KindAd, ID: "a1", Expected: 1, Actual: 2}, http.StatusConflict, "conflict"},
		{"invalid transition", fmt.Errorf("wrapped: %w", lifecycle.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{"schedule in past", lifecycle.ErrScheduleInPast, http.StatusUnprocessableEntity, "schedule_in_past"},
		{"publish time missing", lifecycle.ErrPublishAtRequired, http.StatusUnprocessableEntity, "validation_error"},
		{"validation", &resource.ValidationError{Field: "title", Message: "Title is required"}, http.StatusUnprocessableEntity, "validation_error"},
		{"not in trash", resource.ErrNotInTrash, http.StatusConflict, "not_in_trash"},
		{"in trash", resource.ErrInTrash, http.StatusConflict, "in_trash"},
		{"unknown kind", resource.ErrUnknownKind, http.StatusBadRequest, "bad_request"},
		{"unexpected", errors.New("disk on fire"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.writeStoreError(rr, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)
			assert.Equal(t, tt.wantCode, rr.Code)
			assert.Equal(t, tt.wantErr, decodeError(t, rr).Code)
		})
	}

	rr := httptest.NewRecorder()
	h.writeStoreError(rr, httptest.NewRequest(http.MethodGet, "/", nil), &resource.ValidationError{Field: "title", Message: "Title is required"})
	assert.Equal(t, map[string]string{"title": "Title is required"}, decodeError(t, rr).Details)
}

func TestExpectedVersion(t *testing.T) {
	tests := []struct {
		name    string
		ifMatch string
		query   string
		body    int64
		want    int64
		wantErr bool
	}{
		{name: "none", want: 0},
		{name: "body", body: 3, want: 3},
		{name: "query beats body", query: "4", body: 3, want: 4},
		{name: "if-match beats query", ifMatch: `"5"`, query: "4", want: 5},
		{name: "weak etag", ifMatch: `W/"6"`, want: 6},
		{name: "bare number", ifMatch: "7", want: 7},
		{name: "bad if-match", ifMatch: `"abc"`, wantErr: true},
		{name: "bad query", query: "x", wantErr: true},
		{name: "negative body", body: -1, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			target := "/news/n1"
			if tt.query != "" {
				target += "?version=" + tt.query
			}
			r := httptest.NewRequest(http.MethodPut, target, nil)
			if tt.ifMatch != "" {
				r.Header.Set("If-Match", tt.ifMatch)
			}
			got, err := expectedVersion(r, tt.body)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	var dst versionRequest

	rr := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(""))
	assert.False(t, decodeJSON(rr, r, &dst))
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"version":`+strings.Repeat("1", maxBodyBytes+1)+`}`))
	assert.False(t, decodeJSON(rr, r, &dst))
	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)

	rr = httptest.NewRecorder()
	r = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"version":2}`))
	require.True(t, decodeJSON(rr, r, &dst))
	assert.Equal(t, int64(2), dst.Version)
}

func TestRenderBody(t *testing.T) {
	out, err := renderBody("")
	require.NoError(t, err)
	assert.Empty(t, out)

	out, err = renderBody("# Headline\n\nSee [the report](https://example.com/r) <img src=x onerror=alert(1)>")
	require.NoError(t, err)
	assert.Contains(t, out, "<h1")
	assert.Contains(t, out, `href="https://example.com/r"`)
	assert.Contains(t, out, `target="_blank"`)
	assert.NotContains(t, out, "onerror")

	out, err = renderBody("| a | b |\n|---|---|\n| 1 | 2 |")
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
}

func TestParseKind(t *testing.T) {
	for _, k := range model.Kinds {
		got, ok := parseKind(string(k))
		assert.True(t, ok)
		assert.Equal(t, k, got)
	}
	_, ok := parseKind("widget")
	assert.False(t, ok)
}
