// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// AdStatus is the delivery status of an ad campaign.
type AdStatus string

// Ad statuses.
const (
	AdStatusActive   AdStatus = "Active"
	AdStatusInactive AdStatus = "Inactive"
	AdStatusBlocked  AdStatus = "Blocked"
)

// AdStatuses lists the ad statuses in tab order.
var AdStatuses = []AdStatus{AdStatusActive, AdStatusInactive, AdStatusBlocked}

// AdCampaign is an advertisement with its delivery metrics.
type AdCampaign struct {
	Lifecycle
	Title       string   `json:"title"`
	Advertiser  string   `json:"advertiser"`
	TargetURL   string   `json:"target_url"`
	ImageURL    string   `json:"image_url,omitempty"`
	Budget      float64  `json:"budget"`
	StartDate   string   `json:"start_date,omitempty"`
	EndDate     string   `json:"end_date,omitempty"`
	Clicks      int64    `json:"clicks"`
	Impressions int64    `json:"impressions"`
	Status      AdStatus `json:"status"`
}

// Kind implements Entity.
func (c *AdCampaign) Kind() Kind { return KindAd }

// StatusLabel implements Entity.
func (c *AdCampaign) StatusLabel() string { return string(c.Status) }

// CTR returns the click-through rate in percent, or 0 without impressions.
func (c *AdCampaign) CTR() float64 {
	if c.Impressions == 0 {
		return 0
	}
	return float64(c.Clicks) / float64(c.Impressions) * 100
}

// Clone returns a deep copy of the campaign.
func (c *AdCampaign) Clone() *AdCampaign {
	cp := *c
	cp.Lifecycle = c.Lifecycle.clone()
	return &cp
}
