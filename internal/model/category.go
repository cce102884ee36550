// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// Category groups news articles. Categories have no status; only the
// soft-delete overlay applies.
type Category struct {
	Lifecycle
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Description string `json:"description,omitempty"`
}

// Kind implements Entity.
func (c *Category) Kind() Kind { return KindCategory }

// StatusLabel implements Entity.
func (c *Category) StatusLabel() string { return "" }

// Clone returns a copy of the category.
func (c *Category) Clone() *Category {
	cp := *c
	cp.Lifecycle = c.Lifecycle.clone()
	return &cp
}
