// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/middleware"
	"github.com/olegiv/newsmate-go/internal/model"
)

// Routes returns the router for /api/v1. Everything except the status and
// credential check requires a resolved actor.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/status", h.Status)

	r.Group(func(r chi.Router) {
		if h.login != nil {
			r.Use(h.login.Middleware())
		}
		r.Post("/auth/verify", h.Verify)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ResolveActor(h.store, h.logger))
		r.Use(middleware.ActorRateLimit(h.rateLimit, h.rateBurst, h.logger))

		r.Get("/me", h.Me)
		r.Get("/audit", h.AuditTrailList)
		r.Get("/events", h.ListEvents)
		r.Get("/jobs", h.ListJobs)
		r.Post("/jobs/{name}/run", h.RunJob)

		r.Route("/news", func(r chi.Router) {
			r.Get("/", h.ListNews)
			r.Post("/", h.CreateNews)
			r.Get("/scheduled", h.ListScheduledNews)
			h.trashRoutes(r, model.KindNews, h.ListNewsTrash)
			r.Get("/{id}", h.GetNews)
			r.Put("/{id}", h.UpdateNews)
			r.Post("/{id}/transitions", h.Transition(model.KindNews))
			h.overlayRoutes(r, model.KindNews)
		})

		r.Route("/ads", func(r chi.Router) {
			r.Get("/", h.ListAds)
			r.Post("/", h.CreateAd)
			h.trashRoutes(r, model.KindAd, h.ListAdsTrash)
			r.Get("/{id}", h.GetAd)
			r.Put("/{id}", h.UpdateAd)
			r.Post("/{id}/toggle", h.ToggleAd)
			r.Post("/{id}/status", h.SetStatus(model.KindAd))
			r.Post("/{id}/transitions", h.Transition(model.KindAd))
			r.Post("/{id}/metrics", h.RecordAdMetrics)
			h.overlayRoutes(r, model.KindAd)
		})

		r.Route("/categories", func(r chi.Router) {
			r.Get("/", h.ListCategories)
			r.Post("/", h.CreateCategory)
			h.trashRoutes(r, model.KindCategory, h.ListCategoriesTrash)
			r.Get("/{id}", h.GetCategory)
			r.Put("/{id}", h.UpdateCategory)
			h.overlayRoutes(r, model.KindCategory)
		})

		r.Route("/staff", func(r chi.Router) {
			r.Get("/", h.ListStaff)
			r.Post("/", h.CreateStaff)
			r.Get("/{id}", h.GetStaff)
			r.Put("/{id}", h.UpdateStaff)
			r.Post("/{id}/status", h.SetStatus(model.KindStaff))
			r.Get("/{id}/history", h.History(model.KindStaff))
		})
	})

	return r
}

func (h *Handler) trashRoutes(r chi.Router, kind model.Kind, list http.HandlerFunc) {
	r.Get("/trash", list)
	r.Delete("/trash", h.EmptyTrash(kind))
}

func (h *Handler) overlayRoutes(r chi.Router, kind model.Kind) {
	r.Delete("/{id}", h.SoftDelete(kind))
	r.Post("/{id}/restore", h.Restore(kind))
	r.Delete("/{id}/permanent", h.PermanentDelete(kind))
	r.Get("/{id}/history", h.History(kind))
}
