// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
	"github.com/olegiv/newsmate-go/internal/query"
	"github.com/olegiv/newsmate-go/internal/resource"
)

// Ad lists default to the top campaigns by clicks; ?sort=none pages the
// campaigns in creation order instead.
const (
	defaultAdSort = "clicks"
	adSortNone    = "none"
)

// adUpdateRequest is the body of PUT /ads/{id}.
type adUpdateRequest struct {
	Version int64 `json:"version"`
	resource.AdPatch
}

// metricsRequest is the body of POST /ads/{id}/metrics.
type metricsRequest struct {
	Clicks      int64 `json:"clicks"`
	Impressions int64 `json:"impressions"`
}

func (h *Handler) listAds(w http.ResponseWriter, r *http.Request, trash bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if trash && !h.canViewTrash(w, r, actor, model.KindAd) {
		return
	}

	sortBy := r.URL.Query().Get("sort")
	if sortBy == "" {
		sortBy = defaultAdSort
	}
	var metric query.Metric[*model.AdCampaign]
	if sortBy != adSortNone {
		var err error
		if metric, err = query.AdMetric(sortBy); err != nil {
			WriteBadRequest(w, err.Error(), map[string]string{"sort": "Unknown metric"})
			return
		}
	}
	limit := query.DefaultAdsTopN
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			WriteBadRequest(w, "Invalid limit", map[string]string{"limit": "Must be a positive integer"})
			return
		}
		limit = n
	}

	view := "live"
	if trash {
		view = "trash"
	}
	key := cache.ListKey{
		Kind:     model.KindAd,
		Revision: h.store.Revision(model.KindAd),
		ActorID:  actor.ID,
		Query:    view + "|" + r.URL.Query().Encode(),
	}

	ctx := r.Context()
	page, err := cachedList(ctx, h.adPages, key, func() (*listPage[*model.AdCampaign], error) {
		all, err := h.store.ListAds(ctx, actor)
		if err != nil {
			return nil, err
		}
		filtered := query.Steps[*model.AdCampaign](listParams(r, trash))(all)
		if metric != nil {
			top := query.TopNByMetric(filtered, metric, limit)
			return newListPage(top, query.Page{Total: len(top), Page: 1, PerPage: limit, Pages: 1}), nil
		}
		items, meta := query.Paginate(filtered, parsePageParam(r), parsePerPageParam(r, DefaultPerPage, MaxPerPage))
		return newListPage(items, meta), nil
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, page.Items, &page.Meta)
}

// ListAds handles GET /api/v1/ads
// The response is the top ?limit= campaigns (default 50) by ?sort=
// (clicks, impressions, ctr or budget; clicks when absent). ?sort=none
// returns a regular page.
func (h *Handler) ListAds(w http.ResponseWriter, r *http.Request) {
	h.listAds(w, r, false)
}

// ListAdsTrash handles GET /api/v1/ads/trash
func (h *Handler) ListAdsTrash(w http.ResponseWriter, r *http.Request) {
	h.listAds(w, r, true)
}

// CreateAd handles POST /api/v1/ads
func (h *Handler) CreateAd(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in resource.AdInput
	if !decodeJSON(w, r, &in) {
		return
	}

	ad, err := h.store.CreateAd(r.Context(), actor, in)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, ad)
	WriteCreated(w, ad)
}

// GetAd handles GET /api/v1/ads/{id}
func (h *Handler) GetAd(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	ad, err := h.store.Ad(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, ad)
	WriteSuccess(w, ad, nil)
}

// UpdateAd handles PUT /api/v1/ads/{id}
func (h *Handler) UpdateAd(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req adUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	res, err := h.store.UpdateAd(r.Context(), actor, chi.URLParam(r, "id"), version, req.AdPatch)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, res.Entity)
	WriteSuccess(w, res, nil)
}

// ToggleAd handles POST /api/v1/ads/{id}/toggle
// Flips Active and Inactive; blocked campaigns cannot be toggled.
func (h *Handler) ToggleAd(w http.ResponseWriter, r *http.Request) {
	var req versionRequest
	if r.ContentLength != 0 && !decodeJSON(w, r, &req) {
		return
	}
	h.changeStatus(w, r, model.KindAd, req.Version, lifecycle.Toggle())
}

// RecordAdMetrics handles POST /api/v1/ads/{id}/metrics
// Adds delivery counts; the caller needs update rights on the campaign.
func (h *Handler) RecordAdMetrics(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req metricsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	id := chi.URLParam(r, "id")
	ad, err := h.store.Ad(r.Context(), actor, id)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if err := policy.Check(actor, model.KindAd, policy.ActionUpdate, ad.OwnerID); err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	ad, err = h.store.RecordMetrics(id, req.Clicks, req.Impressions)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, ad, nil)
}
