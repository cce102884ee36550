// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package query

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
)

// DefaultAdsTopN is how many campaigns the ads list shows by default.
const DefaultAdsTopN = 50

// Metric extracts a sortable value from an item.
type Metric[T any] func(T) float64

// Ad campaign metrics by name.
var adMetrics = map[string]Metric[*model.AdCampaign]{
	"clicks":      func(c *model.AdCampaign) float64 { return float64(c.Clicks) },
	"impressions": func(c *model.AdCampaign) float64 { return float64(c.Impressions) },
	"ctr":         (*model.AdCampaign).CTR,
	"budget":      func(c *model.AdCampaign) float64 { return c.Budget },
}

// AdMetricNames lists the metrics accepted by AdMetric.
var AdMetricNames = []string{"clicks", "impressions", "ctr", "budget"}

// AdMetric looks up an ad campaign metric by name. The empty name selects
// clicks.
func AdMetric(name string) (Metric[*model.AdCampaign], error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = "clicks"
	}
	m, ok := adMetrics[name]
	if !ok {
		return nil, fmt.Errorf("unknown metric %q (want one of %s)", name, strings.Join(AdMetricNames, ", "))
	}
	return m, nil
}

// TopNByMetric returns up to n items ordered by metric, highest first. Ties
// keep their input order. n <= 0 returns every item.
func TopNByMetric[T any](items []T, metric Metric[T], n int) []T {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b T) int {
		ma, mb := metric(a), metric(b)
		switch {
		case ma > mb:
			return -1
		case ma < mb:
			return 1
		default:
			return 0
		}
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// SortByScheduled orders articles by publish time, soonest first, for the
// scheduled view. Articles without a publish time go last.
func SortByScheduled(items []*model.NewsArticle) []*model.NewsArticle {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b *model.NewsArticle) int {
		return compareTimes(a.PublishAt, b.PublishAt)
	})
	return out
}

func compareTimes(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

// Page describes one page of a listing.
type Page struct {
	Total   int `json:"total"`
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Pages   int `json:"pages"`
}

// Paginate returns the items of the 1-based page. Pages past the end are
// empty; page and perPage below 1 are treated as 1.
func Paginate[T any](items []T, page, perPage int) ([]T, Page) {
	page = max(page, 1)
	perPage = max(perPage, 1)

	total := len(items)
	pages := total / perPage
	if total%perPage != 0 {
		pages++
	}
	meta := Page{
		Total:   total,
		Page:    page,
		PerPage: perPage,
		Pages:   pages,
	}

	// Compare page numbers first; (page-1)*perPage overflows for huge pages.
	if page > pages {
		return []T{}, meta
	}
	offset := (page - 1) * perPage
	end := min(offset+perPage, total)
	return slices.Clone(items[offset:end]), meta
}
