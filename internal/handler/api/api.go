// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package api provides the JSON admin API over the resource store.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/middleware"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/resource"
	"github.com/olegiv/newsmate-go/internal/scheduler"
	"github.com/olegiv/newsmate-go/internal/store"
)

// AuditTrail reads the persisted change history.
type AuditTrail interface {
	History(ctx context.Context, kind model.Kind, entityID string, limit int) ([]store.ChangeEvent, error)
	Trail(ctx context.Context, kind model.Kind, actorID string, limit, offset int) ([]store.ChangeEvent, int64, error)
}

// EventLog reads the operational event log.
type EventLog interface {
	ListEvents(ctx context.Context, category, level string, limit, offset int) ([]model.Event, int64, error)
}

// JobRunner lists and triggers background jobs.
type JobRunner interface {
	List() []scheduler.JobInfo
	TriggerNow(name string) error
}

// Config holds the dependencies of the API. Store is required; a nil
// Audit, Events, Jobs, Cache or Login disables the matching feature.
type Config struct {
	Store    *resource.Store
	Audit    AuditTrail
	Events   EventLog
	Jobs     JobRunner
	Cache    cache.Cache
	CacheTTL time.Duration
	Login    *middleware.LoginProtection

	// RateLimit and RateBurst bound writes per actor.
	RateLimit float64
	RateBurst int

	Version string
	Logger  *slog.Logger
}

// Handler holds shared dependencies for all API handlers.
type Handler struct {
	store   *resource.Store
	audit   AuditTrail
	events  EventLog
	jobs    JobRunner
	login   *middleware.LoginProtection
	logger  *slog.Logger
	version string

	rateLimit float64
	rateBurst int

	newsPages     *cache.ListCache[listPage[NewsResponse]]
	adPages       *cache.ListCache[listPage[*model.AdCampaign]]
	categoryPages *cache.ListCache[listPage[CategoryResponse]]
	staffPages    *cache.ListCache[listPage[*model.StaffAccount]]
}

// NewHandler creates a new API handler.
func NewHandler(cfg Config) *Handler {
	h := &Handler{
		store:     cfg.Store,
		audit:     cfg.Audit,
		events:    cfg.Events,
		jobs:      cfg.Jobs,
		login:     cfg.Login,
		logger:    cfg.Logger,
		version:   cfg.Version,
		rateLimit: cfg.RateLimit,
		rateBurst: cfg.RateBurst,
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	if h.version == "" {
		h.version = "dev"
	}
	if h.rateLimit <= 0 {
		h.rateLimit = 10
	}
	if h.rateBurst <= 0 {
		h.rateBurst = 20
	}
	if cfg.Cache != nil {
		ttl := cfg.CacheTTL
		if ttl <= 0 {
			ttl = cache.DefaultTTL
		}
		h.newsPages = cache.NewListCache[listPage[NewsResponse]](cfg.Cache, ttl)
		h.adPages = cache.NewListCache[listPage[*model.AdCampaign]](cfg.Cache, ttl)
		h.categoryPages = cache.NewListCache[listPage[CategoryResponse]](cfg.Cache, ttl)
		h.staffPages = cache.NewListCache[listPage[*model.StaffAccount]](cfg.Cache, ttl)
	}
	return h
}

// Response is the standard API response wrapper.
type Response struct {
	Data any   `json:"data"`
	Meta *Meta `json:"meta,omitempty"`
}

// Meta contains pagination and other metadata.
type Meta struct {
	Total   int64 `json:"total"`
	Page    int   `json:"page,omitempty"`
	PerPage int   `json:"per_page,omitempty"`
	Pages   int   `json:"pages,omitempty"`
}

// ErrorResponse is the standard API error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information.
type ErrorDetail struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response.
func WriteSuccess(w http.ResponseWriter, data any, meta *Meta) {
	WriteJSON(w, http.StatusOK, Response{Data: data, Meta: meta})
}

// WriteCreated writes a 201 Created JSON response.
func WriteCreated(w http.ResponseWriter, data any) {
	WriteJSON(w, http.StatusCreated, Response{Data: data})
}

// WriteError writes an error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, code, message string, details map[string]string) {
	WriteJSON(w, statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// WriteBadRequest writes a 400 Bad Request response.
func WriteBadRequest(w http.ResponseWriter, message string, details map[string]string) {
	WriteError(w, http.StatusBadRequest, "bad_request", message, details)
}

// WriteNotFound writes a 404 Not Found response.
func WriteNotFound(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusNotFound, "not_found", message, nil)
}

// WriteUnauthorized writes a 401 Unauthorized response.
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusUnauthorized, "unauthorized", message, nil)
}

// WriteForbidden writes a 403 Forbidden response.
func WriteForbidden(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusForbidden, "forbidden", message, nil)
}

// WriteInternalError writes a 500 Internal Server Error response.
func WriteInternalError(w http.ResponseWriter, message string) {
	WriteError(w, http.StatusInternalServerError, "internal_error", message, nil)
}

// WriteValidationError writes a 422 Unprocessable Entity response with field errors.
func WriteValidationError(w http.ResponseWriter, fieldErrors map[string]string) {
	WriteError(w, http.StatusUnprocessableEntity, "validation_error", "Validation failed", fieldErrors)
}

// writeStoreError maps store, policy and lifecycle errors to API responses.
func (h *Handler) writeStoreError(w http.ResponseWriter, r *http.Request, err error) {
	var validation *resource.ValidationError
	switch {
	case errors.Is(err, resource.ErrPermissionDenied):
		WriteForbidden(w, "You do not have permission to perform this action")
	case errors.Is(err, resource.ErrNotFound):
		WriteNotFound(w, capitalizeFirst(err.Error()))
	case errors.Is(err, resource.ErrConflict):
		WriteError(w, http.StatusConflict, "conflict", "The resource was modified by someone else; reload and retry", nil)
	case errors.Is(err, resource.ErrInvalidTransition):
		WriteError(w, http.StatusConflict, "invalid_transition", err.Error(), nil)
	case errors.Is(err, resource.ErrScheduleInPast):
		WriteError(w, http.StatusUnprocessableEntity, "schedule_in_past", "Publish time must be in the future", nil)
	case errors.Is(err, lifecycle.ErrPublishAtRequired):
		WriteValidationError(w, map[string]string{"publish_at": "Publish time is required"})
	case errors.As(err, &validation):
		WriteValidationError(w, map[string]string{validation.Field: validation.Message})
	case errors.Is(err, resource.ErrNotInTrash):
		WriteError(w, http.StatusConflict, "not_in_trash", "Only trashed items can be deleted permanently", nil)
	case errors.Is(err, resource.ErrInTrash):
		WriteError(w, http.StatusConflict, "in_trash", "Restore the item before changing its status", nil)
	case errors.Is(err, resource.ErrUnknownKind), errors.Is(err, lifecycle.ErrUnknownKind):
		WriteBadRequest(w, "Unsupported operation for this resource", nil)
	default:
		h.logger.ErrorContext(r.Context(), "api request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		WriteInternalError(w, "Internal server error")
	}
}

// actor returns the resolved actor. Routes behind ResolveActor always have one.
func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (model.Actor, bool) {
	actor, ok := middleware.GetActor(r)
	if !ok {
		WriteUnauthorized(w, "Not authenticated")
	}
	return actor, ok
}
