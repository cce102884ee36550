// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
	"github.com/olegiv/newsmate-go/internal/scheduler"
)

// StatusResponse contains API status information.
type StatusResponse struct {
	Status  string    `json:"status"`
	Version string    `json:"version"`
	Time    time.Time `json:"time"`
}

// Capability lists the actions allowed on one kind.
type Capability struct {
	// Always holds actions allowed on every resource of the kind.
	Always []policy.Action `json:"always"`
	// Owned holds actions allowed only on resources the actor owns.
	Owned []policy.Action `json:"owned"`
}

// MeResponse describes the calling actor.
type MeResponse struct {
	ID           string                    `json:"id"`
	Name         string                    `json:"name"`
	Email        string                    `json:"email"`
	Role         model.Role                `json:"role"`
	RoleLabel    string                    `json:"role_label"`
	Capabilities map[model.Kind]Capability `json:"capabilities"`
}

// Status handles GET /api/v1/status
func (h *Handler) Status(w http.ResponseWriter, _ *http.Request) {
	WriteSuccess(w, StatusResponse{
		Status:  "ok",
		Version: h.version,
		Time:    h.store.Now(),
	}, nil)
}

// Me handles GET /api/v1/me
// Returns the actor with the actions the role policy grants per kind.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	acc, err := h.store.Staff(r.Context(), actor, actor.ID)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	caps := make(map[model.Kind]Capability, len(model.Kinds))
	for _, kind := range model.Kinds {
		always, owned := policy.Capabilities(actor, kind)
		caps[kind] = Capability{
			Always: nonNil(always),
			Owned:  nonNil(owned),
		}
	}

	WriteSuccess(w, MeResponse{
		ID:           acc.ID,
		Name:         acc.Name,
		Email:        acc.Email,
		Role:         acc.Role,
		RoleLabel:    acc.Role.Label(),
		Capabilities: caps,
	}, nil)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// AuditTrailList handles GET /api/v1/audit
// Filters: kind, actor, page, per_page.
func (h *Handler) AuditTrailList(w http.ResponseWriter, r *http.Request) {
	if h.audit == nil {
		WriteNotFound(w, "Audit trail is not enabled")
		return
	}
	if _, ok := h.actor(w, r); !ok {
		return
	}

	var kind model.Kind
	if raw := r.URL.Query().Get("kind"); raw != "" {
		k, ok := parseKind(raw)
		if !ok {
			WriteBadRequest(w, "Unknown kind", map[string]string{"kind": raw})
			return
		}
		kind = k
	}

	page := parsePageParam(r)
	perPage := parsePerPageParam(r, 50, 500)
	events, total, err := h.audit.Trail(r.Context(), kind, r.URL.Query().Get("actor"), perPage, (page-1)*perPage)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	WriteSuccess(w, events, &Meta{Total: total, Page: page, PerPage: perPage, Pages: pageCount(total, perPage)})
}

// EventResponse is one event log row.
type EventResponse struct {
	ID        int64           `json:"id"`
	Level     string          `json:"level"`
	Category  string          `json:"category"`
	Message   string          `json:"message"`
	ActorID   string          `json:"actor_id,omitempty"`
	Metadata  json.RawMessage `json:"metadata"`
	CreatedAt time.Time       `json:"created_at"`
}

// ListEvents handles GET /api/v1/events
// Super Admin only. Filters: category, level, page, per_page.
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if actor.Role != model.RoleSuperAdmin {
		h.writeStoreError(w, r, policy.ErrPermissionDenied)
		return
	}
	if h.events == nil {
		WriteNotFound(w, "Event log is not enabled")
		return
	}

	q := r.URL.Query()
	page := parsePageParam(r)
	perPage := parsePerPageParam(r, 50, 500)
	events, total, err := h.events.ListEvents(r.Context(), q.Get("category"), q.Get("level"), perPage, (page-1)*perPage)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	out := make([]EventResponse, 0, len(events))
	for _, e := range events {
		meta := json.RawMessage(e.Metadata)
		if !json.Valid(meta) {
			meta = json.RawMessage("{}")
		}
		out = append(out, EventResponse{
			ID:        e.ID,
			Level:     e.Level,
			Category:  e.Category,
			Message:   e.Message,
			ActorID:   e.ActorID.String,
			Metadata:  meta,
			CreatedAt: e.CreatedAt,
		})
	}
	WriteSuccess(w, out, &Meta{Total: total, Page: page, PerPage: perPage, Pages: pageCount(total, perPage)})
}

func pageCount(total int64, perPage int) int {
	pages := int(total) / perPage
	if int(total)%perPage != 0 {
		pages++
	}
	return pages
}

// ListJobs handles GET /api/v1/jobs
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		WriteSuccess(w, []scheduler.JobInfo{}, &Meta{})
		return
	}
	jobs := h.jobs.List()
	WriteSuccess(w, jobs, &Meta{Total: int64(len(jobs))})
}

// RunJob handles POST /api/v1/jobs/{name}/run
// Running a job acts on every article, so it needs the same rights as
// changing the status of any article.
func (h *Handler) RunJob(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if err := policy.Check(actor, model.KindNews, policy.ActionChangeStatus, ""); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if h.jobs == nil {
		WriteNotFound(w, "Job not found")
		return
	}

	name := chi.URLParam(r, "name")
	if err := h.jobs.TriggerNow(name); err != nil {
		if errors.Is(err, scheduler.ErrJobNotFound) {
			WriteNotFound(w, "Job not found")
			return
		}
		h.logger.ErrorContext(r.Context(), "job failed", "job", name, "error", err)
		WriteError(w, http.StatusInternalServerError, "job_failed", err.Error(), nil)
		return
	}
	h.logger.InfoContext(r.Context(), "job triggered", "job", name, "actor_id", actor.ID)
	WriteSuccess(w, map[string]string{"job": name, "status": "completed"}, nil)
}
