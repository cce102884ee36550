// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

import "time"

// NewsStatus is the publication status of a news article.
type NewsStatus string

// News statuses.
const (
	NewsStatusDraft     NewsStatus = "Draft"
	NewsStatusScheduled NewsStatus = "Scheduled"
	NewsStatusPublished NewsStatus = "Published"
)

// NewsStatuses lists the news statuses in tab order.
var NewsStatuses = []NewsStatus{NewsStatusDraft, NewsStatusScheduled, NewsStatusPublished}

// NewsArticle is a news story. PublishAt is set iff Status is Scheduled.
type NewsArticle struct {
	Lifecycle
	Title            string     `json:"title"`
	Body             string     `json:"body"`
	CategoryID       string     `json:"category_id"`
	Tags             []string   `json:"tags"`
	ImageURL         string     `json:"image_url,omitempty"`
	Sensitive        bool       `json:"sensitive"`
	SendNotification bool       `json:"send_notification"`
	Status           NewsStatus `json:"status"`
	PublishAt        *time.Time `json:"publish_at,omitempty"`
	PublishedAt      *time.Time `json:"published_at,omitempty"`
}

// Kind implements Entity.
func (a *NewsArticle) Kind() Kind { return KindNews }

// StatusLabel implements Entity.
func (a *NewsArticle) StatusLabel() string { return string(a.Status) }

// IsPublished returns true if the article is published.
func (a *NewsArticle) IsPublished() bool {
	return a.Status == NewsStatusPublished
}

// IsScheduled returns true if the article waits for its publish time.
func (a *NewsArticle) IsScheduled() bool {
	return a.Status == NewsStatusScheduled
}

// Clone returns a deep copy of the article.
func (a *NewsArticle) Clone() *NewsArticle {
	c := *a
	c.Lifecycle = a.Lifecycle.clone()
	c.Tags = append([]string(nil), a.Tags...)
	c.PublishAt = cloneTime(a.PublishAt)
	c.PublishedAt = cloneTime(a.PublishedAt)
	return &c
}
