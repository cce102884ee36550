// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package model defines the typed entities managed by the newsroom core:
// news articles, ad campaigns, categories and staff accounts, together with
// roles, actors and the change events emitted for every mutation.
package model

import "strings"

// Role is a staff role. Roles are ranked super_admin > admin > journalist,
// analyst; journalist and analyst are incomparable and analyst is read-only.
type Role string

// Staff roles.
const (
	RoleSuperAdmin Role = "super_admin"
	RoleAdmin      Role = "admin"
	RoleJournalist Role = "journalist"
	RoleAnalyst    Role = "analyst"
)

// Roles lists every known role in privilege order.
var Roles = []Role{RoleSuperAdmin, RoleAdmin, RoleJournalist, RoleAnalyst}

var roleLabels = map[Role]string{
	RoleSuperAdmin: "Super Admin",
	RoleAdmin:      "Admin (Senior Journalist)",
	RoleJournalist: "Journalist",
	RoleAnalyst:    "Analyst",
}

// Label returns the human readable role name shown in staff listings.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleLabels[r]
	return ok
}

// ParseRole converts a role name (case-insensitive, "-" or " " accepted in
// place of "_") into a Role.
func ParseRole(s string) (Role, bool) {
	normalized := strings.ToLower(strings.TrimSpace(s))
	normalized = strings.NewReplacer("-", "_", " ", "_").Replace(normalized)
	r := Role(normalized)
	if !r.Valid() {
		return "", false
	}
	return r, true
}

// Kind identifies a resource collection.
type Kind string

// Resource kinds.
const (
	KindNews     Kind = "news"
	KindAd       Kind = "ad"
	KindCategory Kind = "category"
	KindStaff    Kind = "staff"
)

// Kinds lists every resource kind.
var Kinds = []Kind{KindNews, KindAd, KindCategory, KindStaff}

// Actor is the caller of a store operation.
type Actor struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// SystemActorID is the actor id recorded for time-driven transitions.
const SystemActorID = "system"

// SystemActor is used by the auto-publish sweep. It is never consulted by
// the role policy; the sweep is not a user-triggered operation.
var SystemActor = Actor{ID: SystemActorID, Role: RoleSuperAdmin}
