// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package policy is the single role-based access table for the newsroom
// core. Every write path in the resource store consults IsAllowed before
// touching an entity; nothing else makes authorization decisions.
package policy

import (
	"errors"
	"fmt"

	"github.com/olegiv/newsmate-go/internal/model"
)

// Action is an operation an actor may attempt on a resource kind.
type Action string

// Actions.
const (
	ActionCreate          Action = "create"
	ActionUpdate          Action = "update"
	ActionChangeStatus    Action = "change_status"
	ActionSoftDelete      Action = "soft_delete"
	ActionRestore         Action = "restore"
	ActionPermanentDelete Action = "permanent_delete"
	ActionEmptyTrash      Action = "empty_trash"
	ActionRead            Action = "read"
	ActionReadTrash       Action = "read_trash"
)

// Actions lists every action in display order.
var Actions = []Action{
	ActionRead,
	ActionReadTrash,
	ActionCreate,
	ActionUpdate,
	ActionChangeStatus,
	ActionSoftDelete,
	ActionRestore,
	ActionPermanentDelete,
	ActionEmptyTrash,
}

// ErrPermissionDenied is returned (wrapped in *Error) when IsAllowed denies.
var ErrPermissionDenied = errors.New("policy: permission denied")

// Error describes a denied request.
type Error struct {
	Role   model.Role
	Kind   model.Kind
	Action Action
}

func (e *Error) Error() string {
	return fmt.Sprintf("permission denied: %s may not %s %s", e.Role, e.Action, e.Kind)
}

func (e *Error) Unwrap() error {
	return ErrPermissionDenied
}

// rule grants an action to a set of roles, and to a second set of roles
// only when the actor owns the resource.
type rule struct {
	any   []model.Role
	owner []model.Role
}

func (r rule) allows(role model.Role, actorID, ownerID string) bool {
	for _, allowed := range r.any {
		if allowed == role {
			return true
		}
	}
	if actorID == "" || actorID != ownerID {
		return false
	}
	for _, allowed := range r.owner {
		if allowed == role {
			return true
		}
	}
	return false
}

var (
	everyone    = []model.Role{model.RoleSuperAdmin, model.RoleAdmin, model.RoleJournalist, model.RoleAnalyst}
	managers    = []model.Role{model.RoleSuperAdmin, model.RoleAdmin}
	authors     = []model.Role{model.RoleSuperAdmin, model.RoleAdmin, model.RoleJournalist}
	superOnly   = []model.Role{model.RoleSuperAdmin}
	journalists = []model.Role{model.RoleJournalist}
)

// contentRules covers news and ad campaigns: managers act on anything,
// journalists only on what they own, analysts only read.
var contentRules = map[Action]rule{
	ActionRead:            {any: everyone},
	ActionReadTrash:       {any: managers, owner: journalists},
	ActionCreate:          {any: authors},
	ActionUpdate:          {any: managers, owner: journalists},
	ActionChangeStatus:    {any: managers, owner: journalists},
	ActionSoftDelete:      {any: managers, owner: journalists},
	ActionRestore:         {any: managers, owner: journalists},
	ActionPermanentDelete: {any: managers, owner: journalists},
	ActionEmptyTrash:      {any: managers},
}

var table = map[model.Kind]map[Action]rule{
	model.KindNews: contentRules,
	model.KindAd:   contentRules,
	model.KindCategory: {
		ActionRead:            {any: everyone},
		ActionReadTrash:       {any: managers},
		ActionCreate:          {any: managers},
		ActionUpdate:          {any: managers},
		ActionChangeStatus:    {any: managers},
		ActionSoftDelete:      {any: superOnly},
		ActionRestore:         {any: superOnly},
		ActionPermanentDelete: {any: superOnly},
		ActionEmptyTrash:      {any: superOnly},
	},
	model.KindStaff: {
		ActionRead:         {any: everyone},
		ActionCreate:       {any: superOnly},
		ActionUpdate:       {any: superOnly},
		ActionChangeStatus: {any: superOnly},
	},
}

// IsAllowed reports whether an actor with the given role and id may perform
// action on a resource of kind owned by ownerID. It is total and fails
// closed: unknown roles, kinds and actions are denied.
func IsAllowed(role model.Role, actorID string, kind model.Kind, action Action, ownerID string) bool {
	rules, ok := table[kind]
	if !ok {
		return false
	}
	r, ok := rules[action]
	if !ok {
		return false
	}
	return r.allows(role, actorID, ownerID)
}

// Check is IsAllowed returning a *Error on denial.
func Check(actor model.Actor, kind model.Kind, action Action, ownerID string) error {
	if IsAllowed(actor.Role, actor.ID, kind, action, ownerID) {
		return nil
	}
	return &Error{Role: actor.Role, Kind: kind, Action: action}
}

// Capabilities lists the actions the actor may perform on kind regardless
// of ownership, and separately those allowed only on resources they own.
func Capabilities(actor model.Actor, kind model.Kind) (always, owned []Action) {
	rules := table[kind]
	for _, action := range Actions {
		r, ok := rules[action]
		if !ok {
			continue
		}
		switch {
		case r.allows(actor.Role, "", ""):
			always = append(always, action)
		case r.allows(actor.Role, actor.ID, actor.ID):
			owned = append(owned, action)
		}
	}
	return always, owned
}
