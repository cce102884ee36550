// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package lifecycle encodes the status graphs of every resource kind and the
// soft-delete overlay shared by all of them. It is the only code that
// changes an entity's status or trash flag.
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
)

var (
	// ErrInvalidTransition indicates the requested edge is not in the graph.
	ErrInvalidTransition = errors.New("lifecycle: invalid transition")
	// ErrScheduleInPast indicates a schedule time that is not strictly in the future.
	ErrScheduleInPast = errors.New("lifecycle: schedule time must be in the future")
	// ErrPublishAtRequired indicates a schedule request without a time.
	ErrPublishAtRequired = errors.New("lifecycle: publish time required")
	// ErrUnknownKind indicates no definition is registered for the entity kind.
	ErrUnknownKind = errors.New("lifecycle: unknown resource kind")
)

// TransitionError wraps a rejected request with its context.
type TransitionError struct {
	Kind   model.Kind
	From   string
	Op     Op
	Target string
	Err    error
}

func (e *TransitionError) Error() string {
	if e.Target != "" {
		return fmt.Sprintf("%s: %s %s from %q to %q", e.Err, e.Kind, e.Op, e.From, e.Target)
	}
	return fmt.Sprintf("%s: %s %s from %q", e.Err, e.Kind, e.Op, e.From)
}

func (e *TransitionError) Unwrap() error {
	return e.Err
}

// Request is a requested status change.
type Request struct {
	Op Op `json:"op"`
	// Target is the destination status for OpSetStatus.
	Target string `json:"target,omitempty"`
	// PublishAt is the schedule time for OpSchedule and OpReschedule.
	PublishAt *time.Time `json:"publish_at,omitempty"`
}

// Schedule requests Draft -> Scheduled at the given time.
func Schedule(at time.Time) Request { return Request{Op: OpSchedule, PublishAt: &at} }

// Reschedule requests a new publish time for a scheduled article.
func Reschedule(at time.Time) Request { return Request{Op: OpReschedule, PublishAt: &at} }

// PublishNow requests immediate publication.
func PublishNow() Request { return Request{Op: OpPublish} }

// CancelSchedule returns a scheduled article to draft.
func CancelSchedule() Request { return Request{Op: OpCancelSchedule} }

// Toggle requests the quick single-click status flip.
func Toggle() Request { return Request{Op: OpToggle} }

// SetStatus requests an explicit target status.
func SetStatus(status string) Request { return Request{Op: OpSetStatus, Target: status} }

// Outcome reports the effect of a transition. Changed is false for the
// already-in-state no-op, which is a success and must not notify.
type Outcome struct {
	Changed bool   `json:"changed"`
	From    string `json:"from"`
	To      string `json:"to"`
}

// Machine holds the status graph of every resource kind.
type Machine struct {
	definitions map[model.Kind]Definition
}

// NewMachine creates a machine with the newsroom definitions registered.
func NewMachine() *Machine {
	m := &Machine{definitions: make(map[model.Kind]Definition)}
	for _, d := range []Definition{newsDefinition(), adDefinition(), staffDefinition(), categoryDefinition()} {
		m.definitions[d.Kind] = d
	}
	return m
}

// Default is the machine used by the package-level helpers.
var Default = NewMachine()

// Definition returns the graph registered for kind.
func (m *Machine) Definition(kind model.Kind) (Definition, bool) {
	d, ok := m.definitions[kind]
	return d, ok
}

// Available lists the edges leaving status for kind.
func (m *Machine) Available(kind model.Kind, status string) []Edge {
	d, ok := m.definitions[kind]
	if !ok {
		return nil
	}
	var out []Edge
	for _, e := range d.Edges {
		if e.From == status {
			out = append(out, e)
		}
	}
	return out
}

// Apply validates req against the entity's graph and mutates the entity in
// place on success. Callers pass a private copy and commit it only when no
// error is returned. Timestamps and versions are left to the caller.
func (m *Machine) Apply(e model.Entity, req Request, now time.Time) (Outcome, error) {
	d, ok := m.definitions[e.Kind()]
	if !ok {
		return Outcome{}, fmt.Errorf("%w: %s", ErrUnknownKind, e.Kind())
	}
	from := e.StatusLabel()
	op := req.Op

	fail := func(err error, target string) (Outcome, error) {
		return Outcome{}, &TransitionError{Kind: d.Kind, From: from, Op: op, Target: target, Err: err}
	}

	// Scheduling an already scheduled article replaces its time.
	if d.Kind == model.KindNews && op == OpSchedule && from == string(model.NewsStatusScheduled) {
		op = OpReschedule
	}

	target := req.Target
	if op != OpSetStatus {
		target = d.targetOf(op)
	}
	if op == OpSetStatus && !d.hasState(target) {
		return fail(ErrInvalidTransition, target)
	}

	if target != "" && target == from && op != OpReschedule {
		return Outcome{Changed: false, From: from, To: from}, nil
	}

	edge, ok := d.lookup(op, from, target)
	if !ok {
		return fail(ErrInvalidTransition, target)
	}

	switch entity := e.(type) {
	case *model.NewsArticle:
		return applyNews(entity, edge, req, now, fail)
	case *model.AdCampaign:
		entity.Status = model.AdStatus(edge.To)
	case *model.StaffAccount:
		entity.Status = model.StaffStatus(edge.To)
	default:
		return fail(ErrInvalidTransition, edge.To)
	}
	return Outcome{Changed: true, From: from, To: edge.To}, nil
}

func applyNews(a *model.NewsArticle, edge Edge, req Request, now time.Time, fail func(error, string) (Outcome, error)) (Outcome, error) {
	switch edge.Op {
	case OpSchedule, OpReschedule:
		if req.PublishAt == nil {
			return fail(ErrPublishAtRequired, edge.To)
		}
		at := *req.PublishAt
		if !at.After(now) {
			return fail(ErrScheduleInPast, edge.To)
		}
		if edge.Op == OpReschedule && a.PublishAt != nil && a.PublishAt.Equal(at) {
			return Outcome{Changed: false, From: edge.From, To: edge.To}, nil
		}
		a.Status = model.NewsStatusScheduled
		a.PublishAt = &at
	case OpPublish:
		a.Status = model.NewsStatusPublished
		a.PublishAt = nil
		published := now
		a.PublishedAt = &published
	case OpCancelSchedule:
		a.Status = model.NewsStatusDraft
		a.PublishAt = nil
	default:
		return fail(ErrInvalidTransition, edge.To)
	}
	return Outcome{Changed: true, From: edge.From, To: edge.To}, nil
}

// Apply runs req through the default machine.
func Apply(e model.Entity, req Request, now time.Time) (Outcome, error) {
	return Default.Apply(e, req, now)
}

// MaybeAutoPublish promotes a scheduled article whose publish time has been
// reached (now >= PublishAt) through the regular publish edge. Anything
// else, including trashed articles, is a no-op so that a restore brings the
// article back exactly as it was scheduled.
func MaybeAutoPublish(a *model.NewsArticle, now time.Time) (Outcome, error) {
	status := string(a.Status)
	if a.IsDeleted || !a.IsScheduled() || a.PublishAt == nil || now.Before(*a.PublishAt) {
		return Outcome{Changed: false, From: status, To: status}, nil
	}
	return Default.Apply(a, PublishNow(), now)
}

// Trash sets the soft-delete overlay, preserving the status underneath.
// Trashing an already trashed entity is a no-op.
func Trash(e model.Entity, now time.Time) Outcome {
	l := e.Base()
	if l.IsDeleted {
		return Outcome{Changed: false, From: model.StateTrashed, To: model.StateTrashed}
	}
	deleted := now
	l.IsDeleted = true
	l.DeletedAt = &deleted
	return Outcome{Changed: true, From: visibleState(e), To: model.StateTrashed}
}

// Restore clears the soft-delete overlay; the entity comes back with the
// status it had when trashed. Restoring a live entity is a no-op.
func Restore(e model.Entity) Outcome {
	l := e.Base()
	if !l.IsDeleted {
		s := visibleState(e)
		return Outcome{Changed: false, From: s, To: s}
	}
	l.IsDeleted = false
	l.DeletedAt = nil
	return Outcome{Changed: true, From: model.StateTrashed, To: visibleState(e)}
}

// visibleState is the status label, or "Active" for kinds without status.
func visibleState(e model.Entity) string {
	if s := e.StatusLabel(); s != "" {
		return s
	}
	return "Active"
}
