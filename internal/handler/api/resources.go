// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"errors"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
	"github.com/olegiv/newsmate-go/internal/resource"
)

// The handlers in this file are shared by every resource kind. Each
// returns an http.HandlerFunc bound to one kind.

// transitionRequest is the body of POST /{kind}/{id}/transitions.
type transitionRequest struct {
	Version int64 `json:"version"`
	lifecycle.Request
}

// statusRequest is the body of POST /{kind}/{id}/status.
type statusRequest struct {
	Version int64  `json:"version"`
	Status  string `json:"status"`
}

// EmptyTrashResponse reports how many items were purged.
type EmptyTrashResponse struct {
	Removed int `json:"removed"`
}

// writeResult writes the outcome of a write. An already-in-state request
// is a success with changed=false.
func writeResult(w http.ResponseWriter, res resource.Result[model.Entity]) {
	if res.Entity != nil {
		setETag(w, res.Entity)
	}
	WriteSuccess(w, res, nil)
}

func (h *Handler) changeStatus(w http.ResponseWriter, r *http.Request, kind model.Kind, bodyVersion int64, req lifecycle.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	version, err := expectedVersion(r, bodyVersion)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	res, err := h.store.ChangeStatus(r.Context(), actor, kind, chi.URLParam(r, "id"), version, req)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	writeResult(w, res)
}

// Transition handles POST /{kind}/{id}/transitions with an explicit
// lifecycle operation.
func (h *Handler) Transition(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req transitionRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Op == "" {
			WriteValidationError(w, map[string]string{"op": "Operation is required"})
			return
		}
		h.changeStatus(w, r, kind, req.Version, req.Request)
	}
}

// SetStatus handles POST /{kind}/{id}/status.
func (h *Handler) SetStatus(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req statusRequest
		if !decodeJSON(w, r, &req) {
			return
		}
		if req.Status == "" {
			WriteValidationError(w, map[string]string{"status": "Status is required"})
			return
		}
		h.changeStatus(w, r, kind, req.Version, lifecycle.SetStatus(req.Status))
	}
}

// SoftDelete handles DELETE /{kind}/{id}.
func (h *Handler) SoftDelete(kind model.Kind) http.HandlerFunc {
	return h.overlay(kind, h.store.SoftDelete)
}

// Restore handles POST /{kind}/{id}/restore.
func (h *Handler) Restore(kind model.Kind) http.HandlerFunc {
	return h.overlay(kind, h.store.Restore)
}

type overlayFunc func(ctx context.Context, actor model.Actor, kind model.Kind, id string, expectedVersion int64) (resource.Result[model.Entity], error)

func (h *Handler) overlay(kind model.Kind, apply overlayFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		version, err := expectedVersion(r, 0)
		if err != nil {
			WriteBadRequest(w, err.Error(), nil)
			return
		}

		res, err := apply(r.Context(), actor, kind, chi.URLParam(r, "id"), version)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		writeResult(w, res)
	}
}

// PermanentDelete handles DELETE /{kind}/{id}/permanent.
func (h *Handler) PermanentDelete(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		if err := h.store.PermanentDelete(r.Context(), actor, kind, chi.URLParam(r, "id")); err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// EmptyTrash handles DELETE /{kind}/trash.
func (h *Handler) EmptyTrash(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		n, err := h.store.EmptyTrash(r.Context(), actor, kind)
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		WriteSuccess(w, EmptyTrashResponse{Removed: n}, nil)
	}
}

// History handles GET /{kind}/{id}/history. Permanently deleted entities
// keep their history.
func (h *Handler) History(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h.audit == nil {
			WriteNotFound(w, "Audit trail is not enabled")
			return
		}
		actor, ok := h.actor(w, r)
		if !ok {
			return
		}
		id := chi.URLParam(r, "id")
		if _, err := h.store.Get(r.Context(), actor, kind, id); err != nil && !errors.Is(err, resource.ErrNotFound) {
			h.writeStoreError(w, r, err)
			return
		}

		events, err := h.audit.History(r.Context(), kind, id, parsePerPageParam(r, 50, 500))
		if err != nil {
			h.writeStoreError(w, r, err)
			return
		}
		WriteSuccess(w, events, &Meta{Total: int64(len(events))})
	}
}

// canViewTrash reports whether actor may see any trashed item of kind,
// either every one or only its own. A denial is written to w.
func (h *Handler) canViewTrash(w http.ResponseWriter, r *http.Request, actor model.Actor, kind model.Kind) bool {
	always, owned := policy.Capabilities(actor, kind)
	if slices.Contains(always, policy.ActionReadTrash) || slices.Contains(owned, policy.ActionReadTrash) {
		return true
	}
	h.writeStoreError(w, r, policy.ErrPermissionDenied)
	return false
}

// cachedList serves a list page through lc when caching is enabled.
func cachedList[T any](ctx context.Context, lc *cache.ListCache[T], key cache.ListKey, compute func() (*T, error)) (*T, error) {
	if lc == nil {
		return compute()
	}
	v, _, err := lc.Get(ctx, key, compute)
	return v, err
}
