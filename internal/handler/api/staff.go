// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/query"
	"github.com/olegiv/newsmate-go/internal/resource"
)

// verifyRequest is the body of POST /auth/verify.
type verifyRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyResponse identifies the account whose credentials matched.
type VerifyResponse struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	RoleLabel string     `json:"role_label"`
}

// ListStaff handles GET /api/v1/staff
// Filters: q (name, email, role), status, page, per_page.
func (h *Handler) ListStaff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	key := cache.ListKey{
		Kind:     model.KindStaff,
		Revision: h.store.Revision(model.KindStaff),
		ActorID:  actor.ID,
		Query:    r.URL.Query().Encode(),
	}

	ctx := r.Context()
	page, err := cachedList(ctx, h.staffPages, key, func() (*listPage[*model.StaffAccount], error) {
		all, err := h.store.ListStaff(ctx, actor)
		if err != nil {
			return nil, err
		}
		params := listParams(r, false)
		params.CategoryID = ""
		filtered := query.Steps[*model.StaffAccount](params)(all)
		items, meta := query.Paginate(filtered, parsePageParam(r), parsePerPageParam(r, DefaultPerPage, MaxPerPage))
		return newListPage(items, meta), nil
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, page.Items, &page.Meta)
}

// CreateStaff handles POST /api/v1/staff
// The generated password is returned once and never stored in plain text.
func (h *Handler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in resource.StaffInput
	if !decodeJSON(w, r, &in) {
		return
	}

	created, err := h.store.CreateStaff(r.Context(), actor, in)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	setETag(w, created.Account)
	WriteCreated(w, created)
}

// GetStaff handles GET /api/v1/staff/{id}
func (h *Handler) GetStaff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	acc, err := h.store.Staff(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, acc)
	WriteSuccess(w, acc, nil)
}

// staffUpdateRequest is the body of PUT /staff/{id}.
type staffUpdateRequest struct {
	Version int64 `json:"version"`
	resource.StaffPatch
}

// UpdateStaff handles PUT /api/v1/staff/{id}
// Edits the profile name and email; Super Admin only.
func (h *Handler) UpdateStaff(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req staffUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	res, err := h.store.UpdateStaff(r.Context(), actor, chi.URLParam(r, "id"), version, req.StaffPatch)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, res.Entity)
	WriteSuccess(w, res, nil)
}

// Verify handles POST /api/v1/auth/verify
// Checks staff credentials for the upstream gateway. Repeated failures
// lock the account with exponential backoff.
func (h *Handler) Verify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	email := strings.TrimSpace(req.Email)
	if email == "" || req.Password == "" {
		WriteValidationError(w, map[string]string{"credentials": "Email and password are required"})
		return
	}

	if h.login != nil {
		if locked, remaining := h.login.IsAccountLocked(email); locked {
			writeLocked(w, remaining.Seconds())
			return
		}
	}

	acc, err := h.store.Authenticate(email, req.Password)
	if errors.Is(err, resource.ErrPermissionDenied) {
		h.logger.WarnContext(r.Context(), "credential verification failed", "category", model.EventCategoryStaff, "email", email)
		if h.login != nil {
			if locked, d := h.login.RecordFailedAttempt(email); locked {
				writeLocked(w, d.Seconds())
				return
			}
		}
		WriteUnauthorized(w, "Invalid email or password")
		return
	}
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	if h.login != nil {
		h.login.RecordSuccessfulLogin(email)
	}
	WriteSuccess(w, VerifyResponse{
		ID:        acc.ID,
		Name:      acc.Name,
		Email:     acc.Email,
		Role:      acc.Role,
		RoleLabel: acc.Role.Label(),
	}, nil)
}

func writeLocked(w http.ResponseWriter, seconds float64) {
	retry := strconv.Itoa(int(seconds) + 1)
	w.Header().Set("Retry-After", retry)
	WriteError(w, http.StatusTooManyRequests, "account_locked",
		"Too many failed attempts. Try again later.", map[string]string{"retry_after": retry})
}
