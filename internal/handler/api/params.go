// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/query"
)

// Pagination defaults for list endpoints.
const (
	DefaultPerPage = 20
	MaxPerPage     = 100
	MaxPage        = 1_000_000
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// listPage is the cacheable result of a list endpoint.
type listPage[T any] struct {
	Items []T  `json:"items"`
	Meta  Meta `json:"meta"`
}

func newListPage[T any](items []T, p query.Page) *listPage[T] {
	return &listPage[T]{
		Items: items,
		Meta: Meta{
			Total:   int64(p.Total),
			Page:    p.Page,
			PerPage: p.PerPage,
			Pages:   p.Pages,
		},
	}
}

// parsePageParam returns the 1-based page number from ?page=, capped at
// MaxPage.
func parsePageParam(r *http.Request) int {
	page, err := strconv.Atoi(r.URL.Query().Get("page"))
	if err != nil || page < 1 {
		return 1
	}
	return min(page, MaxPage)
}

// parsePerPageParam returns ?per_page= clamped to [1, maxPerPage].
func parsePerPageParam(r *http.Request, defaultPerPage, maxPerPage int) int {
	perPage, err := strconv.Atoi(r.URL.Query().Get("per_page"))
	if err != nil || perPage < 1 {
		return defaultPerPage
	}
	return min(perPage, maxPerPage)
}

// listParams reads the shared list filters.
func listParams(r *http.Request, trash bool) query.Params {
	q := r.URL.Query()
	return query.Params{
		Query:      q.Get("q"),
		Status:     q.Get("status"),
		CategoryID: q.Get("category"),
		OwnerID:    q.Get("owner"),
		Trash:      trash,
	}
}

// decodeJSON decodes a bounded JSON body into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.As(err, &maxErr):
			WriteError(w, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large", nil)
		case errors.Is(err, io.EOF):
			WriteBadRequest(w, "Request body is required", nil)
		default:
			WriteBadRequest(w, "Invalid JSON body", map[string]string{"body": err.Error()})
		}
		return false
	}
	return true
}

// versionRequest carries the optimistic concurrency token of a write.
type versionRequest struct {
	Version int64 `json:"version"`
}

// expectedVersion resolves the version a write is based on. An If-Match
// header wins over ?version=, which wins over the body value. Zero means
// "apply against the current state".
func expectedVersion(r *http.Request, body int64) (int64, error) {
	if tag := r.Header.Get("If-Match"); tag != "" {
		tag = strings.TrimPrefix(strings.TrimSpace(tag), "W/")
		v, err := strconv.ParseInt(strings.Trim(tag, `"`), 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid If-Match header %q", tag)
		}
		return v, nil
	}
	if raw := r.URL.Query().Get("version"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return 0, fmt.Errorf("invalid version %q", raw)
		}
		return v, nil
	}
	if body < 0 {
		return 0, fmt.Errorf("invalid version %d", body)
	}
	return body, nil
}

// setETag exposes an entity's version for If-Match round trips.
func setETag(w http.ResponseWriter, e model.Entity) {
	w.Header().Set("ETag", `"`+strconv.FormatInt(e.Base().Version, 10)+`"`)
}

// parseKind maps a path segment to a resource kind.
func parseKind(s string) (model.Kind, bool) {
	for _, k := range model.Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// capitalizeFirst returns s with the first letter capitalized.
func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
