// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
)

// SeedReport summarises demo data created by Seed.
type SeedReport struct {
	Staff      []StaffCreated
	Categories int
	News       int
	Ads        int
	Trashed    int
}

var (
	seedStaff = []StaffInput{
		{Name: "Bob Editor", Role: model.RoleAdmin},
		{Name: "Charlie Writer", Role: model.RoleJournalist},
		{Name: "Sarah Smith", Role: model.RoleJournalist},
		{Name: "Dave Analyst", Role: model.RoleAnalyst},
	}
	seedCategories = []CategoryInput{
		{Name: "Local News", Description: "News from around the island"},
		{Name: "Politics", Description: "Parliament, provincial councils and elections"},
		{Name: "Sports", Description: "Cricket, rugby and athletics"},
		{Name: "Technology", Description: "Gadgets, startups and science"},
		{Name: "Entertainment", Description: "Film, music and culture"},
	}
)

// Seed fills the store with demo content through the regular write
// operations, so every seeded entity honours the same policy and lifecycle
// rules as user-created ones. root must be a super admin. rng drives the
// ad metrics; pass a seeded generator for reproducible data.
func Seed(ctx context.Context, s *Store, root model.Actor, rng *rand.Rand) (SeedReport, error) {
	var report SeedReport

	actors := map[model.Role][]model.Actor{model.RoleSuperAdmin: {root}}
	for _, in := range seedStaff {
		created, err := s.CreateStaff(ctx, root, in)
		if err != nil {
			return report, fmt.Errorf("seeding staff %q: %w", in.Name, err)
		}
		report.Staff = append(report.Staff, created)
		actors[in.Role] = append(actors[in.Role], created.Account.Actor())
	}
	admin := actors[model.RoleAdmin][0]
	authors := append([]model.Actor{root}, actors[model.RoleJournalist]...)

	for _, analyst := range actors[model.RoleAnalyst] {
		if _, err := s.ChangeStatus(ctx, root, model.KindStaff, analyst.ID, 0, lifecycle.SetStatus(string(model.StaffStatusInactive))); err != nil {
			return report, fmt.Errorf("deactivating analyst: %w", err)
		}
	}

	var categoryIDs []string
	for _, in := range seedCategories {
		c, err := s.CreateCategory(ctx, admin, in)
		if err != nil {
			return report, fmt.Errorf("seeding category %q: %w", in.Name, err)
		}
		categoryIDs = append(categoryIDs, c.ID)
		report.Categories++
	}

	now := s.now()
	for i := range 60 {
		author := authors[i%len(authors)]
		a, err := s.CreateNews(ctx, author, NewsInput{
			Title:      fmt.Sprintf("News Heading %d: Important Event happening in Sri Lanka", i+1),
			Body:       "Developing story. More details to follow.",
			CategoryID: categoryIDs[i%len(categoryIDs)],
			Tags:       []string{"sri-lanka"},
		})
		if err != nil {
			return report, fmt.Errorf("seeding article %d: %w", i+1, err)
		}
		report.News++

		var req lifecycle.Request
		switch {
		case i%10 == 0:
			req = lifecycle.Schedule(now.Add(time.Duration(i/10+1) * 24 * time.Hour).Truncate(time.Hour))
		case i%15 == 0:
			continue
		default:
			req = lifecycle.PublishNow()
		}
		if _, err := s.ChangeStatus(ctx, author, model.KindNews, a.ID, 0, req); err != nil {
			return report, fmt.Errorf("transitioning article %d: %w", i+1, err)
		}

		if i%12 == 5 {
			if _, err := s.SoftDelete(ctx, author, model.KindNews, a.ID, 0); err != nil {
				return report, fmt.Errorf("trashing article %d: %w", i+1, err)
			}
			report.Trashed++
		}
	}

	for i := range 120 {
		c, err := s.CreateAd(ctx, admin, AdInput{
			Title:      fmt.Sprintf("Campaign %d: Seasonal Promo", i+1),
			Advertiser: map[bool]string{true: "TechCorp Ltd", false: "FashionHub"}[i%2 == 0],
			TargetURL:  "https://example.com",
			Budget:     float64(50000 + 1000*(i%20)),
			StartDate:  "2026-01-01",
			EndDate:    "2026-12-31",
		})
		if err != nil {
			return report, fmt.Errorf("seeding campaign %d: %w", i+1, err)
		}
		report.Ads++

		if _, err := s.RecordMetrics(c.ID, rng.Int64N(50000), rng.Int64N(500000)); err != nil {
			return report, fmt.Errorf("seeding metrics %d: %w", i+1, err)
		}

		switch {
		case i%10 == 0:
			_, err = s.ChangeStatus(ctx, admin, model.KindAd, c.ID, 0, lifecycle.SetStatus(string(model.AdStatusBlocked)))
		case i%3 == 0:
			_, err = s.ChangeStatus(ctx, admin, model.KindAd, c.ID, 0, lifecycle.Toggle())
		}
		if err != nil {
			return report, fmt.Errorf("transitioning campaign %d: %w", i+1, err)
		}

		if i%40 == 39 {
			if _, err := s.SoftDelete(ctx, admin, model.KindAd, c.ID, 0); err != nil {
				return report, fmt.Errorf("trashing campaign %d: %w", i+1, err)
			}
			report.Trashed++
		}
	}

	s.logger.InfoContext(ctx, "demo data seeded",
		"staff", len(report.Staff),
		"categories", report.Categories,
		"news", report.News,
		"ads", report.Ads,
		"trashed", report.Trashed,
	)
	return report, nil
}
