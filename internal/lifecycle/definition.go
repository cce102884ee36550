// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lifecycle

import (
	"github.com/olegiv/newsmate-go/internal/model"
)

// Op names a requested transition.
type Op string

// Transition operations.
const (
	OpSchedule       Op = "schedule"
	OpReschedule     Op = "reschedule"
	OpPublish        Op = "publish"
	OpCancelSchedule Op = "cancel_schedule"
	OpToggle         Op = "toggle"
	OpSetStatus      Op = "set_status"
)

// Edge is a permitted (from, to) status change reachable through Op.
type Edge struct {
	Op   Op     `json:"op"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Definition is the status graph of one resource kind.
type Definition struct {
	Kind    model.Kind
	Initial string
	States  []string
	Edges   []Edge
}

func (d Definition) hasState(s string) bool {
	for _, st := range d.States {
		if st == s {
			return true
		}
	}
	return false
}

// lookup returns the edge for op leaving from. A non-empty to narrows the
// match for targeted operations.
func (d Definition) lookup(op Op, from, to string) (Edge, bool) {
	for _, e := range d.Edges {
		if e.Op != op || e.From != from {
			continue
		}
		if to != "" && e.To != to {
			continue
		}
		return e, true
	}
	return Edge{}, false
}

// targetOf returns the state every edge of op leads to, or "" when the
// destination depends on the source state (toggle) or op is unknown.
func (d Definition) targetOf(op Op) string {
	target := ""
	for _, e := range d.Edges {
		if e.Op != op {
			continue
		}
		if target != "" && target != e.To {
			return ""
		}
		target = e.To
	}
	return target
}

func newsDefinition() Definition {
	draft := string(model.NewsStatusDraft)
	scheduled := string(model.NewsStatusScheduled)
	published := string(model.NewsStatusPublished)
	return Definition{
		Kind:    model.KindNews,
		Initial: draft,
		States:  []string{draft, scheduled, published},
		Edges: []Edge{
			{Op: OpSchedule, From: draft, To: scheduled},
			{Op: OpPublish, From: draft, To: published},
			{Op: OpPublish, From: scheduled, To: published},
			{Op: OpCancelSchedule, From: scheduled, To: draft},
			{Op: OpReschedule, From: scheduled, To: scheduled},
		},
	}
}

// adDefinition allows every explicit status change; the quick toggle only
// flips Active and Inactive and never enters or leaves Blocked.
func adDefinition() Definition {
	active := string(model.AdStatusActive)
	inactive := string(model.AdStatusInactive)
	blocked := string(model.AdStatusBlocked)
	states := []string{active, inactive, blocked}

	var edges []Edge
	for _, from := range states {
		for _, to := range states {
			if from != to {
				edges = append(edges, Edge{Op: OpSetStatus, From: from, To: to})
			}
		}
	}
	edges = append(edges,
		Edge{Op: OpToggle, From: active, To: inactive},
		Edge{Op: OpToggle, From: inactive, To: active},
	)

	return Definition{Kind: model.KindAd, Initial: active, States: states, Edges: edges}
}

func staffDefinition() Definition {
	active := string(model.StaffStatusActive)
	inactive := string(model.StaffStatusInactive)
	return Definition{
		Kind:    model.KindStaff,
		Initial: active,
		States:  []string{active, inactive},
		Edges: []Edge{
			{Op: OpSetStatus, From: active, To: inactive},
			{Op: OpSetStatus, From: inactive, To: active},
			{Op: OpToggle, From: active, To: inactive},
			{Op: OpToggle, From: inactive, To: active},
		},
	}
}

// categoryDefinition has no statuses; only the trash overlay applies.
func categoryDefinition() Definition {
	return Definition{Kind: model.KindCategory}
}
