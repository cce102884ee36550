// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"context"
	"fmt"
	"html"
	"iter"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
)

// Field limits shared by the create and update paths.
const (
	MaxTitleLength = 200
	MaxTags        = 20
)

// plainText strips every tag from single-line fields.
var plainText = bluemonday.StrictPolicy()

func cleanLine(s string) string {
	return strings.TrimSpace(html.UnescapeString(plainText.Sanitize(s)))
}

func cleanTags(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(cleanLine(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// NewsInput holds the editable fields of a news article.
type NewsInput struct {
	Title            string   `json:"title"`
	Body             string   `json:"body"`
	CategoryID       string   `json:"category_id"`
	Tags             []string `json:"tags"`
	ImageURL         string   `json:"image_url"`
	Sensitive        bool     `json:"sensitive"`
	SendNotification bool     `json:"send_notification"`
}

// NewsPatch is a partial update; nil fields are left unchanged.
type NewsPatch struct {
	Title            *string   `json:"title,omitempty"`
	Body             *string   `json:"body,omitempty"`
	CategoryID       *string   `json:"category_id,omitempty"`
	Tags             *[]string `json:"tags,omitempty"`
	ImageURL         *string   `json:"image_url,omitempty"`
	Sensitive        *bool     `json:"sensitive,omitempty"`
	SendNotification *bool     `json:"send_notification,omitempty"`
}

func validateTitle(title string) error {
	switch {
	case title == "":
		return invalid("title", "Title is required")
	case len(title) > MaxTitleLength:
		return invalid("title", fmt.Sprintf("Title must be at most %d characters", MaxTitleLength))
	}
	return nil
}

// requireLiveCategory checks that id names a category that is not trashed.
func (s *Store) requireLiveCategory(id string) error {
	if id == "" {
		return invalid("category_id", "Category is required")
	}
	c, err := s.categories.get(id)
	if err != nil || c.IsDeleted {
		return invalid("category_id", "Category does not exist")
	}
	return nil
}

// CreateNews creates a draft article owned by actor.
func (s *Store) CreateNews(ctx context.Context, actor model.Actor, in NewsInput) (*model.NewsArticle, error) {
	if err := s.authorize(ctx, actor, model.KindNews, policy.ActionCreate, ""); err != nil {
		return nil, err
	}

	title := cleanLine(in.Title)
	if err := validateTitle(title); err != nil {
		return nil, err
	}
	if err := s.requireLiveCategory(in.CategoryID); err != nil {
		return nil, err
	}
	tags := cleanTags(in.Tags)
	if len(tags) > MaxTags {
		return nil, invalid("tags", fmt.Sprintf("At most %d tags are allowed", MaxTags))
	}

	now := s.now()
	a, err := s.news.add(func(iter.Seq[*model.NewsArticle]) (*model.NewsArticle, error) {
		return &model.NewsArticle{
			Lifecycle:        model.Lifecycle{ID: s.newID(), OwnerID: actor.ID, CreatedAt: now, UpdatedAt: now, Version: 1},
			Title:            title,
			Body:             in.Body,
			CategoryID:       in.CategoryID,
			Tags:             tags,
			ImageURL:         strings.TrimSpace(in.ImageURL),
			Sensitive:        in.Sensitive,
			SendNotification: in.SendNotification,
			Status:           model.NewsStatusDraft,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.KindNews, a.ID, actor, model.ActionCreated,
		lifecycle.Outcome{Changed: true, To: string(a.Status)},
		fmt.Sprintf("article %q created", a.Title))
	return a, nil
}

// UpdateNews edits the non-status fields of an article.
func (s *Store) UpdateNews(ctx context.Context, actor model.Actor, id string, expectedVersion int64, p NewsPatch) (Result[*model.NewsArticle], error) {
	var (
		title string
		tags  []string
	)
	if p.Title != nil {
		title = cleanLine(*p.Title)
		if err := validateTitle(title); err != nil {
			return Result[*model.NewsArticle]{}, err
		}
	}
	if p.Tags != nil {
		tags = cleanTags(*p.Tags)
		if len(tags) > MaxTags {
			return Result[*model.NewsArticle]{}, invalid("tags", fmt.Sprintf("At most %d tags are allowed", MaxTags))
		}
	}

	a, changed, err := s.news.mutate(id, expectedVersion, s.now(),
		func(a *model.NewsArticle) error {
			return s.authorize(ctx, actor, model.KindNews, policy.ActionUpdate, a.OwnerID)
		},
		func(a *model.NewsArticle) (bool, error) {
			if a.IsDeleted {
				return false, fmt.Errorf("%w: news %q", ErrInTrash, id)
			}
			if p.CategoryID != nil && *p.CategoryID != a.CategoryID {
				if err := s.requireLiveCategory(*p.CategoryID); err != nil {
					return false, err
				}
			}
			before := fingerprintNews(a)
			if p.Title != nil {
				a.Title = title
			}
			if p.Body != nil {
				a.Body = *p.Body
			}
			if p.CategoryID != nil {
				a.CategoryID = *p.CategoryID
			}
			if p.Tags != nil {
				a.Tags = tags
			}
			if p.ImageURL != nil {
				a.ImageURL = strings.TrimSpace(*p.ImageURL)
			}
			if p.Sensitive != nil {
				a.Sensitive = *p.Sensitive
			}
			if p.SendNotification != nil {
				a.SendNotification = *p.SendNotification
			}
			return fingerprintNews(a) != before, nil
		})
	if err != nil {
		return Result[*model.NewsArticle]{}, err
	}
	if changed {
		state := string(a.Status)
		s.emit(ctx, model.KindNews, id, actor, model.ActionUpdated,
			lifecycle.Outcome{Changed: true, From: state, To: state},
			fmt.Sprintf("article %q updated", a.Title))
	}
	return Result[*model.NewsArticle]{Entity: a, Changed: changed}, nil
}

func fingerprintNews(a *model.NewsArticle) string {
	return fmt.Sprintf("%q|%q|%q|%q|%q|%t|%t", a.Title, a.Body, a.CategoryID, strings.Join(a.Tags, ","), a.ImageURL, a.Sensitive, a.SendNotification)
}

// News returns one article.
func (s *Store) News(ctx context.Context, actor model.Actor, id string) (*model.NewsArticle, error) {
	return getFor(ctx, s, s.news, actor, id)
}

// ListNews returns every article actor may see, trashed ones included
// where the trash view allows, in creation order.
func (s *Store) ListNews(ctx context.Context, actor model.Actor) ([]*model.NewsArticle, error) {
	return listFor(ctx, s, s.news, actor)
}
