// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/olegiv/newsmate-go/internal/cache"
	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/query"
	"github.com/olegiv/newsmate-go/internal/resource"
)

// NewsResponse is a news row with its category name resolved.
type NewsResponse struct {
	model.NewsArticle
	CategoryName string `json:"category_name,omitempty"`
}

// NewsDetailResponse adds the rendered body and the transitions available
// from the current status.
type NewsDetailResponse struct {
	NewsResponse
	BodyHTML    string           `json:"body_html"`
	Transitions []lifecycle.Edge `json:"transitions"`
}

// newsUpdateRequest is the body of PUT /news/{id}.
type newsUpdateRequest struct {
	Version int64 `json:"version"`
	resource.NewsPatch
}

func (h *Handler) categoryNames(ctx context.Context, actor model.Actor) (map[string]string, error) {
	cats, err := h.store.ListCategories(ctx, actor)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(cats))
	for _, c := range cats {
		names[c.ID] = c.Name
	}
	return names, nil
}

func toNewsResponses(items []*model.NewsArticle, names map[string]string) []NewsResponse {
	out := make([]NewsResponse, 0, len(items))
	for _, a := range items {
		out = append(out, NewsResponse{NewsArticle: *a, CategoryName: names[a.CategoryID]})
	}
	return out
}

// newsListKey keys a news page. Rows embed category names, so the category
// revision is part of the key as well.
func (h *Handler) newsListKey(r *http.Request, actor model.Actor, view string) cache.ListKey {
	return cache.ListKey{
		Kind:     model.KindNews,
		Revision: h.store.Revision(model.KindNews),
		ActorID:  actor.ID,
		Query:    fmt.Sprintf("%s|%s|cat=%d", view, r.URL.Query().Encode(), h.store.Revision(model.KindCategory)),
	}
}

func (h *Handler) listNews(w http.ResponseWriter, r *http.Request, trash bool) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	if trash && !h.canViewTrash(w, r, actor, model.KindNews) {
		return
	}
	view := "live"
	if trash {
		view = "trash"
	}

	ctx := r.Context()
	page, err := cachedList(ctx, h.newsPages, h.newsListKey(r, actor, view), func() (*listPage[NewsResponse], error) {
		all, err := h.store.ListNews(ctx, actor)
		if err != nil {
			return nil, err
		}
		names, err := h.categoryNames(ctx, actor)
		if err != nil {
			return nil, err
		}
		filtered := query.Steps[*model.NewsArticle](listParams(r, trash))(all)
		items, meta := query.Paginate(filtered, parsePageParam(r), parsePerPageParam(r, DefaultPerPage, MaxPerPage))
		return newListPage(toNewsResponses(items, names), meta), nil
	})
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	WriteSuccess(w, page.Items, &page.Meta)
}

// ListNews handles GET /api/v1/news
// Filters: q, status, category, owner, page, per_page.
func (h *Handler) ListNews(w http.ResponseWriter, r *http.Request) {
	h.listNews(w, r, false)
}

// ListNewsTrash handles GET /api/v1/news/trash
func (h *Handler) ListNewsTrash(w http.ResponseWriter, r *http.Request) {
	h.listNews(w, r, true)
}

// ListScheduledNews handles GET /api/v1/news/scheduled
// Returns live scheduled articles ordered by publish time, soonest first.
func (h *Handler) ListScheduledNews(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	all, err := h.store.ListNews(ctx, actor)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	names, err := h.categoryNames(ctx, actor)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	scheduled := query.SortByScheduled(query.Pipeline(
		query.ExcludeDeleted[*model.NewsArticle],
		query.WithStatus[*model.NewsArticle](string(model.NewsStatusScheduled)),
		query.InCategory[*model.NewsArticle](r.URL.Query().Get("category")),
	)(all))
	WriteSuccess(w, toNewsResponses(scheduled, names), &Meta{Total: int64(len(scheduled))})
}

// CreateNews handles POST /api/v1/news
func (h *Handler) CreateNews(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var in resource.NewsInput
	if !decodeJSON(w, r, &in) {
		return
	}

	article, err := h.store.CreateNews(r.Context(), actor, in)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, article)
	WriteCreated(w, article)
}

// GetNews handles GET /api/v1/news/{id}
func (h *Handler) GetNews(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	ctx := r.Context()

	article, err := h.store.News(ctx, actor, chi.URLParam(r, "id"))
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}

	resp := NewsDetailResponse{
		NewsResponse: NewsResponse{NewsArticle: *article},
		Transitions:  []lifecycle.Edge{},
	}
	if article.CategoryID != "" {
		if cat, err := h.store.Category(ctx, actor, article.CategoryID); err == nil {
			resp.CategoryName = cat.Name
		}
	}
	if resp.BodyHTML, err = renderBody(article.Body); err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	if !article.IsDeleted {
		if edges := lifecycle.Default.Available(model.KindNews, article.StatusLabel()); edges != nil {
			resp.Transitions = edges
		}
	}

	setETag(w, article)
	WriteSuccess(w, resp, nil)
}

// UpdateNews handles PUT /api/v1/news/{id}
func (h *Handler) UpdateNews(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.actor(w, r)
	if !ok {
		return
	}
	var req newsUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	version, err := expectedVersion(r, req.Version)
	if err != nil {
		WriteBadRequest(w, err.Error(), nil)
		return
	}

	res, err := h.store.UpdateNews(r.Context(), actor, chi.URLParam(r, "id"), version, req.NewsPatch)
	if err != nil {
		h.writeStoreError(w, r, err)
		return
	}
	setETag(w, res.Entity)
	WriteSuccess(w, res, nil)
}
