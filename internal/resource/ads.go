// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"context"
	"fmt"
	"iter"
	"net/url"
	"strings"
	"time"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
)

const dateLayout = time.DateOnly

// AdInput holds the editable fields of an ad campaign.
type AdInput struct {
	Title      string  `json:"title"`
	Advertiser string  `json:"advertiser"`
	TargetURL  string  `json:"target_url"`
	ImageURL   string  `json:"image_url"`
	Budget     float64 `json:"budget"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
}

// AdPatch is a partial update; nil fields are left unchanged.
type AdPatch struct {
	Title      *string  `json:"title,omitempty"`
	Advertiser *string  `json:"advertiser,omitempty"`
	TargetURL  *string  `json:"target_url,omitempty"`
	ImageURL   *string  `json:"image_url,omitempty"`
	Budget     *float64 `json:"budget,omitempty"`
	StartDate  *string  `json:"start_date,omitempty"`
	EndDate    *string  `json:"end_date,omitempty"`
}

func validateAd(c *model.AdCampaign) error {
	if err := validateTitle(c.Title); err != nil {
		return err
	}
	if c.Advertiser == "" {
		return invalid("advertiser", "Advertiser is required")
	}
	if c.TargetURL != "" {
		u, err := url.Parse(c.TargetURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return invalid("target_url", "Target URL must be an absolute http(s) URL")
		}
	}
	if c.Budget < 0 {
		return invalid("budget", "Budget cannot be negative")
	}

	var start, end time.Time
	var err error
	if c.StartDate != "" {
		if start, err = time.Parse(dateLayout, c.StartDate); err != nil {
			return invalid("start_date", "Start date must be YYYY-MM-DD")
		}
	}
	if c.EndDate != "" {
		if end, err = time.Parse(dateLayout, c.EndDate); err != nil {
			return invalid("end_date", "End date must be YYYY-MM-DD")
		}
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		return invalid("end_date", "End date must not be before the start date")
	}
	return nil
}

// CreateAd creates an active campaign owned by actor.
func (s *Store) CreateAd(ctx context.Context, actor model.Actor, in AdInput) (*model.AdCampaign, error) {
	if err := s.authorize(ctx, actor, model.KindAd, policy.ActionCreate, ""); err != nil {
		return nil, err
	}

	now := s.now()
	c := &model.AdCampaign{
		Lifecycle:  model.Lifecycle{OwnerID: actor.ID, CreatedAt: now, UpdatedAt: now, Version: 1},
		Title:      cleanLine(in.Title),
		Advertiser: cleanLine(in.Advertiser),
		TargetURL:  strings.TrimSpace(in.TargetURL),
		ImageURL:   strings.TrimSpace(in.ImageURL),
		Budget:     in.Budget,
		StartDate:  strings.TrimSpace(in.StartDate),
		EndDate:    strings.TrimSpace(in.EndDate),
		Status:     model.AdStatusActive,
	}
	if err := validateAd(c); err != nil {
		return nil, err
	}

	c, err := s.ads.add(func(iter.Seq[*model.AdCampaign]) (*model.AdCampaign, error) {
		c.ID = s.newID()
		return c, nil
	})
	if err != nil {
		return nil, err
	}

	s.emit(ctx, model.KindAd, c.ID, actor, model.ActionCreated,
		lifecycle.Outcome{Changed: true, To: string(c.Status)},
		fmt.Sprintf("campaign %q created", c.Title))
	return c, nil
}

// UpdateAd edits the non-status fields of a campaign.
func (s *Store) UpdateAd(ctx context.Context, actor model.Actor, id string, expectedVersion int64, p AdPatch) (Result[*model.AdCampaign], error) {
	c, changed, err := s.ads.mutate(id, expectedVersion, s.now(),
		func(c *model.AdCampaign) error {
			return s.authorize(ctx, actor, model.KindAd, policy.ActionUpdate, c.OwnerID)
		},
		func(c *model.AdCampaign) (bool, error) {
			if c.IsDeleted {
				return false, fmt.Errorf("%w: ad %q", ErrInTrash, id)
			}
			before := *c
			if p.Title != nil {
				c.Title = cleanLine(*p.Title)
			}
			if p.Advertiser != nil {
				c.Advertiser = cleanLine(*p.Advertiser)
			}
			if p.TargetURL != nil {
				c.TargetURL = strings.TrimSpace(*p.TargetURL)
			}
			if p.ImageURL != nil {
				c.ImageURL = strings.TrimSpace(*p.ImageURL)
			}
			if p.Budget != nil {
				c.Budget = *p.Budget
			}
			if p.StartDate != nil {
				c.StartDate = strings.TrimSpace(*p.StartDate)
			}
			if p.EndDate != nil {
				c.EndDate = strings.TrimSpace(*p.EndDate)
			}
			if err := validateAd(c); err != nil {
				return false, err
			}
			return *c != before, nil
		})
	if err != nil {
		return Result[*model.AdCampaign]{}, err
	}
	if changed {
		state := string(c.Status)
		s.emit(ctx, model.KindAd, id, actor, model.ActionUpdated,
			lifecycle.Outcome{Changed: true, From: state, To: state},
			fmt.Sprintf("campaign %q updated", c.Title))
	}
	return Result[*model.AdCampaign]{Entity: c, Changed: changed}, nil
}

// RecordMetrics adds delivery counts reported by the ad server. It is not
// an actor-initiated edit, so it neither consults the policy nor emits an
// event, but it is serialized with every other write on the campaign.
func (s *Store) RecordMetrics(id string, clicks, impressions int64) (*model.AdCampaign, error) {
	if clicks < 0 || impressions < 0 {
		return nil, invalid("metrics", "Counts cannot be negative")
	}
	c, _, err := s.ads.mutate(id, 0, s.now(), nil, func(c *model.AdCampaign) (bool, error) {
		c.Clicks += clicks
		c.Impressions += impressions
		return clicks > 0 || impressions > 0, nil
	})
	return c, err
}

// Ad returns one campaign.
func (s *Store) Ad(ctx context.Context, actor model.Actor, id string) (*model.AdCampaign, error) {
	return getFor(ctx, s, s.ads, actor, id)
}

// ListAds returns every campaign actor may see in creation order.
func (s *Store) ListAds(ctx context.Context, actor model.Actor) ([]*model.AdCampaign, error) {
	return listFor(ctx, s, s.ads, actor)
}
