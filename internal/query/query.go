// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package query provides read-only projections over resource snapshots:
// text search, status tabs, trash views, top-N ordering and pagination.
// Every function returns a new slice and leaves its input untouched, so
// steps compose in any order.
package query

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/olegiv/newsmate-go/internal/model"
)

// StatusAll is the status tab that passes every item through.
const StatusAll = "All"

// Step is one composable projection.
type Step[T model.Entity] func([]T) []T

// Pipeline chains steps left to right.
func Pipeline[T model.Entity](steps ...Step[T]) Step[T] {
	return func(items []T) []T {
		out := append([]T(nil), items...)
		for _, step := range steps {
			if step != nil {
				out = step(out)
			}
		}
		return out
	}
}

// filter copies the items matching keep into a fresh slice.
func filter[T any](items []T, keep func(T) bool) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		if keep(item) {
			out = append(out, item)
		}
	}
	return out
}

// fold normalises text for caseless comparison. A Caser carries state, so
// each call gets its own.
func fold(s string) string {
	return cases.Fold().String(s)
}

// SearchFields returns the text a search query is matched against.
func SearchFields(e model.Entity) []string {
	switch v := e.(type) {
	case *model.NewsArticle:
		return []string{v.Title}
	case *model.AdCampaign:
		return []string{v.Title, v.Advertiser}
	case *model.Category:
		return []string{v.Name}
	case *model.StaffAccount:
		return []string{v.Name, v.Email, v.Role.Label()}
	default:
		return nil
	}
}

// Search keeps items whose search fields contain text, ignoring case. An
// empty or blank query matches everything.
func Search[T model.Entity](items []T, text string) []T {
	needle := fold(strings.TrimSpace(text))
	if needle == "" {
		return filter(items, func(T) bool { return true })
	}
	return filter(items, func(e T) bool {
		for _, field := range SearchFields(e) {
			if strings.Contains(fold(field), needle) {
				return true
			}
		}
		return false
	})
}

// FilterByStatus keeps items in the given status. "All" and the empty
// string pass everything through; status names compare case-insensitively.
func FilterByStatus[T model.Entity](items []T, status string) []T {
	status = strings.TrimSpace(status)
	if status == "" || strings.EqualFold(status, StatusAll) {
		return filter(items, func(T) bool { return true })
	}
	return filter(items, func(e T) bool {
		return strings.EqualFold(e.StatusLabel(), status)
	})
}

// ExcludeDeleted drops trashed items. Every default listing applies it.
func ExcludeDeleted[T model.Entity](items []T) []T {
	return filter(items, func(e T) bool { return !e.Base().IsDeleted })
}

// OnlyDeleted keeps trashed items; it backs the trash views.
func OnlyDeleted[T model.Entity](items []T) []T {
	return filter(items, func(e T) bool { return e.Base().IsDeleted })
}

// FilterByOwner keeps items owned by ownerID; an empty id passes all.
func FilterByOwner[T model.Entity](items []T, ownerID string) []T {
	if ownerID == "" {
		return filter(items, func(T) bool { return true })
	}
	return filter(items, func(e T) bool { return e.Base().OwnerID == ownerID })
}

// FilterByCategory keeps news articles in the category with categoryID.
// Kinds without a category never match a non-empty filter.
func FilterByCategory[T model.Entity](items []T, categoryID string) []T {
	if categoryID == "" {
		return filter(items, func(T) bool { return true })
	}
	return filter(items, func(e T) bool {
		a, ok := any(e).(*model.NewsArticle)
		return ok && a.CategoryID == categoryID
	})
}

// Matching is Search as a pipeline step.
func Matching[T model.Entity](text string) Step[T] {
	return func(items []T) []T { return Search(items, text) }
}

// WithStatus is FilterByStatus as a pipeline step.
func WithStatus[T model.Entity](status string) Step[T] {
	return func(items []T) []T { return FilterByStatus(items, status) }
}

// OwnedBy is FilterByOwner as a pipeline step.
func OwnedBy[T model.Entity](ownerID string) Step[T] {
	return func(items []T) []T { return FilterByOwner(items, ownerID) }
}

// InCategory is FilterByCategory as a pipeline step.
func InCategory[T model.Entity](categoryID string) Step[T] {
	return func(items []T) []T { return FilterByCategory(items, categoryID) }
}

// Params are the list filters accepted by the admin listings.
type Params struct {
	Query      string
	Status     string
	CategoryID string
	OwnerID    string
	// Trash selects the trash view instead of the live listing.
	Trash bool
}

// Steps returns the pipeline for p. The overlay filter always comes first.
func Steps[T model.Entity](p Params) Step[T] {
	view := Step[T](ExcludeDeleted[T])
	if p.Trash {
		view = OnlyDeleted[T]
	}
	return Pipeline(
		view,
		Matching[T](p.Query),
		WithStatus[T](p.Status),
		InCategory[T](p.CategoryID),
		OwnedBy[T](p.OwnerID),
	)
}
