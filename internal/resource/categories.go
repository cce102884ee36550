// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"context"
	"fmt"
	"iter"
	"strings"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
	"github.com/olegiv/newsmate-go/internal/util"
)

// CategoryInput holds the editable fields of a category. An empty slug is
// derived from the name.
type CategoryInput struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description"`
}

// CategoryPatch is a partial update; nil fields are left unchanged.
type CategoryPatch struct {
	Name        *string `json:"name,omitempty"`
	Slug        *string `json:"slug,omitempty"`
	Description *string `json:"description,omitempty"`
}

func slugTaken(existing iter.Seq[*model.Category], exceptID string) func(string) bool {
	return func(slug string) bool {
		for c := range existing {
			if c.ID != exceptID && c.Slug == slug {
				return true
			}
		}
		return false
	}
}

func categorySlug(name, requested string) (string, error) {
	slug := strings.TrimSpace(requested)
	if slug == "" {
		slug = util.Slugify(name)
	}
	if slug == "" {
		return "", invalid("slug", "Slug cannot be derived from the name; provide one")
	}
	if !util.IsValidSlug(slug) {
		return "", invalid("slug", "Slug may contain only lowercase letters, digits and single hyphens")
	}
	return slug, nil
}

// CreateCategory creates a category. Slugs are unique across live and
// trashed categories; a derived slug that clashes gets a numeric suffix,
// an explicit one is rejected.
func (s *Store) CreateCategory(ctx context.Context, actor model.Actor, in CategoryInput) (*model.Category, error) {
	if err := s.authorize(ctx, actor, model.KindCategory, policy.ActionCreate, ""); err != nil {
		return nil, err
	}

	name := cleanLine(in.Name)
	if name == "" {
		return nil, invalid("name", "Name is required")
	}
	slug, err := categorySlug(name, in.Slug)
	if err != nil {
		return nil, err
	}
	explicit := strings.TrimSpace(in.Slug) != ""

	now := s.now()
	c, err := s.categories.add(func(existing iter.Seq[*model.Category]) (*model.Category, error) {
		taken := slugTaken(existing, "")
		if taken(slug) {
			if explicit {
				return nil, invalid("slug", "Slug already exists")
			}
			slug = util.UniqueSlug(slug, taken)
		}
		return &model.Category{
			Lifecycle:   model.Lifecycle{ID: s.newID(), OwnerID: actor.ID, CreatedAt: now, UpdatedAt: now, Version: 1},
			Name:        name,
			Slug:        slug,
			Description: strings.TrimSpace(in.Description),
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.KindCategory, c.ID, actor, model.ActionCreated,
		lifecycle.Outcome{Changed: true, To: "Active"},
		fmt.Sprintf("category %q created", c.Name))
	return c, nil
}

// UpdateCategory edits a category's name, slug or description.
func (s *Store) UpdateCategory(ctx context.Context, actor model.Actor, id string, expectedVersion int64, p CategoryPatch) (Result[*model.Category], error) {
	var name string
	if p.Name != nil {
		if name = cleanLine(*p.Name); name == "" {
			return Result[*model.Category]{}, invalid("name", "Name is required")
		}
	}

	c, changed, err := s.categories.mutate(id, expectedVersion, s.now(),
		func(c *model.Category) error {
			return s.authorize(ctx, actor, model.KindCategory, policy.ActionUpdate, c.OwnerID)
		},
		func(c *model.Category) (bool, error) {
			if c.IsDeleted {
				return false, fmt.Errorf("%w: category %q", ErrInTrash, id)
			}
			before := *c
			if p.Name != nil {
				c.Name = name
			}
			if p.Slug != nil {
				// An empty slug is derived from the name after this edit.
				slug, err := categorySlug(c.Name, *p.Slug)
				if err != nil {
					return false, err
				}
				// The write lock is held; scan committed slots directly.
				taken := slugTaken(s.categories.each, c.ID)
				if slug != c.Slug && taken(slug) {
					if strings.TrimSpace(*p.Slug) != "" {
						return false, invalid("slug", "Slug already exists")
					}
					slug = util.UniqueSlug(slug, taken)
				}
				c.Slug = slug
			}
			if p.Description != nil {
				c.Description = strings.TrimSpace(*p.Description)
			}
			return *c != before, nil
		})
	if err != nil {
		return Result[*model.Category]{}, err
	}
	if changed {
		s.emit(ctx, model.KindCategory, id, actor, model.ActionUpdated,
			lifecycle.Outcome{Changed: true, From: "Active", To: "Active"},
			fmt.Sprintf("category %q updated", c.Name))
	}
	return Result[*model.Category]{Entity: c, Changed: changed}, nil
}

// Category returns one category.
func (s *Store) Category(ctx context.Context, actor model.Actor, id string) (*model.Category, error) {
	return getFor(ctx, s, s.categories, actor, id)
}

// ListCategories returns every category actor may see in creation order.
func (s *Store) ListCategories(ctx context.Context, actor model.Actor) ([]*model.Category, error) {
	return listFor(ctx, s, s.categories, actor)
}

// ArticleCounts returns the number of live articles per category id.
func (s *Store) ArticleCounts() map[string]int {
	counts := make(map[string]int)
	for _, a := range s.news.snapshot() {
		if !a.IsDeleted {
			counts[a.CategoryID]++
		}
	}
	return counts
}
