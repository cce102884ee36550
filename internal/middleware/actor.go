// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package middleware provides HTTP middleware for actor resolution, rate
// limiting and response hardening of the admin API.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/resource"
)

// ContextKey is a type for context keys to avoid collisions.
type ContextKey string

// ContextKeyActor is the context key for the resolved actor.
const ContextKeyActor ContextKey = "actor"

// ActorHeader carries the staff id asserted by the trusted upstream gateway.
const ActorHeader = "X-Actor-ID"

// ActorResolver maps a staff id to an active actor.
type ActorResolver interface {
	ResolveActor(id string) (model.Actor, error)
}

// ResolveActor creates middleware that resolves the X-Actor-ID header to an
// active staff account. Missing, unknown or deactivated ids get 401.
func ResolveActor(resolver ActorResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(ActorHeader))
			if id == "" {
				WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Missing "+ActorHeader+" header", nil)
				return
			}

			actor, err := resolver.ResolveActor(id)
			if err != nil {
				switch {
				case errors.Is(err, resource.ErrNotFound):
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Unknown actor", nil)
				case errors.Is(err, resource.ErrPermissionDenied):
					logger.Warn("inactive actor rejected", "category", "rbac", "actor_id", id, "path", r.URL.Path)
					WriteAPIError(w, http.StatusUnauthorized, "unauthorized", "Actor is inactive", nil)
				default:
					logger.Error("failed to resolve actor", "error", err, "actor_id", id)
					WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Failed to resolve actor", nil)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithActor(r.Context(), actor)))
		})
	}
}

// WithActor returns a copy of ctx carrying actor.
func WithActor(ctx context.Context, actor model.Actor) context.Context {
	return context.WithValue(ctx, ContextKeyActor, actor)
}

// GetActor retrieves the resolved actor from the request context.
func GetActor(r *http.Request) (model.Actor, bool) {
	actor, ok := r.Context().Value(ContextKeyActor).(model.Actor)
	return actor, ok
}
