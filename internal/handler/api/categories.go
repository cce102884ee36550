// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/query"
	"github.com/olegiv/newsmate-go/internal/resource"
)

// CategoryResponse is a category with its live article count.
type CategoryResponse struct {
	model.Category
	ArticleCount int `json:"article_count"`
}

// categoryUpdateRequest is the body of PUT /categories/{id}.
type categoryUpdateRequest struct {
	Version int64 `json:"version"`
	resource.CategoryPatch
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request, trash bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if trash && !h.canViewTrash(w, r, actor, model.KindCategory) {
		return
	}
	view := "live"
	if trash {
		view = "trash"
	}
	// Counts follow news writes, so the news revision is part of the key.
	key := cache.ListKey{
		Kind:     model.KindCategory,
		Revision: h.store.Revision(model.KindCategory),
		ActorID:  actor.ID,
		Query:    fmt.Sprintf("%s|%s|news=%d", view, r.URL.Query().Encode(), h.store.Revision(model.KindNews)),
	}

	ctx := r.Context()
	page, err := cachedList(ctx, h.categoryPages, key, func() (*listPage[CategoryResponse], error) {
		all, err := h.store.ListCategories(ctx, actor)
		if err != nil {
			return nil, err
		}
		params := listParams(r, trash)
		params.Status = ""
		params.CategoryID = ""
		filtered := query.Steps[*model.Category](params)(all)
		items, meta := query.Paginate(filtered, parsePageParam(r), parsePerPageParam(r, 50, MaxPerPage))

		counts := h.store.ArticleCounts()
		out := make([]CategoryResponse, 0, len(items))
		for _, c := range items {
			out = append(out, CategoryResponse{Category: *c, ArticleCount: counts[c.ID]})
		}
		return newListPage(out, meta), nil
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, page.Items, &page.Meta)
}

// ListCategories handles GET /api/v1/categories
func (h *Handler) ListCategories(w http.ResponseWriter, r *http.Request) {
	h.listCategories(w, r, false)
}

// ListCategoriesTrash handles GET /api/v1/categories/trash
func (h *Handler) ListCategoriesTrash(w http.ResponseWriter, r *http.Request) {
	h.listCategories(w, r, true)
}

// CreateCategory handles POST /api/v1/categories
func (h *Handler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in resource.CategoryInput
	if !decodeJSON(w, r, &in) {
		return
	}

	c, err := h.store.CreateCategory(r.Context(), actor, in)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, c)
	WriteCreated(w, c)
}

// GetCategory handles GET /api/v1/categories/{id}
func (h *Handler) GetCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	c, err := h.store.Category(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, c)
	WriteSuccess(w, CategoryResponse{Category: *c, ArticleCount: h.store.ArticleCounts()[c.ID]}, nil)
}

// UpdateCategory handles PUT /api/v1/categories/{id}
func (h *Handler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req categoryUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	res, err := h.store.UpdateCategory(r.Context(), actor, chi.URLParam(r, "id"), version, req.CategoryPatch)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, res.Entity)
	WriteSuccess(w, res, nil)
}
