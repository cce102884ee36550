// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package resource is the canonical in-memory store for news articles, ad
// campaigns, categories and staff accounts. Every write consults the role
// policy first, routes status and trash changes through the lifecycle
// machine, and emits a change event once the new state is committed.
package resource

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
)

// Options configures a Store. Zero values select the defaults.
type Options struct {
	// Now is the clock source; defaults to time.Now in UTC.
	Now func() time.Time
	// NewID generates entity ids; defaults to random UUIDs.
	NewID func() string
	// Sink receives change events.
	Sink EventSink
	// Logger defaults to slog.Default.
	Logger *slog.Logger
	// Machine defaults to lifecycle.Default.
	Machine *lifecycle.Machine
	// Denials, when set, records every refused operation in the event log.
	Denials DenialRecorder
}

// DenialRecorder persists access-control refusals.
type DenialRecorder interface {
	LogRBACEvent(ctx context.Context, level, message, actorID string, metadata map[string]any) error
}

// Result is the outcome of a write. Changed is false when the request was
// an already-in-state no-op; no event is emitted in that case.
type Result[T any] struct {
	Entity  T    `json:"entity"`
	Changed bool `json:"changed"`
}

// Store holds one arena per resource kind.
type Store struct {
	now     func() time.Time
	newID   func() string
	sink    EventSink
	logger  *slog.Logger
	machine *lifecycle.Machine
	denials DenialRecorder

	news       *collection[*model.NewsArticle]
	ads        *collection[*model.AdCampaign]
	categories *collection[*model.Category]
	staff      *collection[*model.StaffAccount]
}

// New creates an empty store.
func New(opts Options) *Store {
	s := &Store{
		now:     opts.Now,
		newID:   opts.NewID,
		sink:    opts.Sink,
		logger:  opts.Logger,
		machine: opts.Machine,
		denials: opts.Denials,

		news:       newCollection(model.KindNews, (*model.NewsArticle).Clone),
		ads:        newCollection(model.KindAd, (*model.AdCampaign).Clone),
		categories: newCollection(model.KindCategory, (*model.Category).Clone),
		staff:      newCollection(model.KindStaff, (*model.StaffAccount).Clone),
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}
	if s.sink == nil {
		s.sink = discardSink{}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.machine == nil {
		s.machine = lifecycle.Default
	}
	return s
}

// Now returns the store's clock reading.
func (s *Store) Now() time.Time {
	return s.now()
}

func (s *Store) collection(kind model.Kind) (entities, error) {
	switch kind {
	case model.KindNews:
		return s.news, nil
	case model.KindAd:
		return s.ads, nil
	case model.KindCategory:
		return s.categories, nil
	case model.KindStaff:
		return s.staff, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

// Revision returns a counter that changes on every committed write to kind.
// It is used to key cached list projections.
func (s *Store) Revision(kind model.Kind) int64 {
	c, err := s.collection(kind)
	if err != nil {
		return 0
	}
	return c.rev()
}

// authorize consults the role policy. Denials go to the event log through
// the recorder when one is set and to the logger as a warning otherwise.
func (s *Store) authorize(ctx context.Context, actor model.Actor, kind model.Kind, action policy.Action, ownerID string) error {
	err := policy.Check(actor, kind, action, ownerID)
	if err == nil {
		return nil
	}

	attrs := []any{
		"category", model.EventCategoryRBAC,
		"actor_id", actor.ID,
		"role", string(actor.Role),
		"kind", string(kind),
		"action", string(action),
	}
	if s.denials == nil {
		s.logger.WarnContext(ctx, "permission denied", attrs...)
		return err
	}

	s.logger.InfoContext(ctx, "permission denied", attrs...)
	msg := fmt.Sprintf("%s denied %s on %s", actor.Role.Label(), action, kind)
	meta := map[string]any{"role": string(actor.Role), "kind": string(kind), "action": string(action)}
	if ownerID != "" {
		meta["owner_id"] = ownerID
	}
	if recErr := s.denials.LogRBACEvent(ctx, model.EventLevelWarning, msg, actor.ID, meta); recErr != nil {
		s.logger.ErrorContext(ctx, "recording permission denial", "error", recErr)
	}
	return err
}

func (s *Store) emit(ctx context.Context, kind model.Kind, id string, actor model.Actor, action string, out lifecycle.Outcome, message string) {
	event := model.ChangeEvent{
		Kind:          kind,
		EntityID:      id,
		ActorID:       actor.ID,
		Action:        action,
		PreviousState: out.From,
		NewState:      out.To,
		Timestamp:     s.now(),
		Message:       message,
	}
	s.logger.DebugContext(ctx, "change committed", "event", event.Type(), "entity_id", id, "actor_id", actor.ID)
	s.sink.Notify(ctx, event)
}

// Get returns any entity by kind and id. Trashed entities are returned
// only to actors allowed to see them in the trash view.
func (s *Store) Get(ctx context.Context, actor model.Actor, kind model.Kind, id string) (model.Entity, error) {
	c, err := s.collection(kind)
	if err != nil {
		return nil, err
	}
	e, err := c.getEntity(id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Store) authorizeRead(ctx context.Context, actor model.Actor, e model.Entity) error {
	action := policy.ActionRead
	if e.Base().IsDeleted {
		action = policy.ActionReadTrash
	}
	return s.authorize(ctx, actor, e.Kind(), action, e.Base().OwnerID)
}

// visible filters a snapshot down to what actor may read: every live
// entity, and trashed ones only where the trash view is permitted.
func visible[T model.Entity](actor model.Actor, items []T) []T {
	out := items[:0:0]
	for _, e := range items {
		b := e.Base()
		if b.IsDeleted && !policy.IsAllowed(actor.Role, actor.ID, e.Kind(), policy.ActionReadTrash, b.OwnerID) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func listFor[T model.Entity](ctx context.Context, s *Store, c *collection[T], actor model.Actor) ([]T, error) {
	if err := s.authorize(ctx, actor, c.kind, policy.ActionRead, ""); err != nil {
		return nil, err
	}
	return visible(actor, c.snapshot()), nil
}

func getFor[T model.Entity](ctx context.Context, s *Store, c *collection[T], actor model.Actor, id string) (T, error) {
	e, err := c.get(id)
	if err != nil {
		return e, err
	}
	if err := s.authorizeRead(ctx, actor, e); err != nil {
		var zero T
		return zero, err
	}
	return e, nil
}

// ChangeStatus applies a lifecycle request to the entity. expectedVersion
// is the version the caller read; a mismatch fails with ErrConflict and
// zero applies against the current state.
func (s *Store) ChangeStatus(ctx context.Context, actor model.Actor, kind model.Kind, id string, expectedVersion int64, req lifecycle.Request) (Result[model.Entity], error) {
	c, err := s.collection(kind)
	if err != nil {
		return Result[model.Entity]{}, err
	}

	var out lifecycle.Outcome
	now := s.now()
	e, changed, err := c.mutateEntity(id, expectedVersion, now,
		func(e model.Entity) error {
			return s.authorize(ctx, actor, kind, policy.ActionChangeStatus, e.Base().OwnerID)
		},
		func(e model.Entity) (bool, error) {
			if e.Base().IsDeleted {
				return false, fmt.Errorf("%w: %s %q", ErrInTrash, kind, id)
			}
			var applyErr error
			if out, applyErr = s.machine.Apply(e, req, now); applyErr != nil {
				return false, applyErr
			}
			if acc, ok := e.(*model.StaffAccount); ok && out.Changed {
				if err := s.keepSuperAdmin(acc); err != nil {
					return false, err
				}
			}
			return out.Changed, nil
		})
	if err != nil {
		return Result[model.Entity]{}, err
	}
	if changed {
		s.emit(ctx, kind, id, actor, model.ActionStatusChanged, out, describeTransition(e, req.Op, out))
	}
	return Result[model.Entity]{Entity: e, Changed: changed}, nil
}

// SoftDelete moves the entity to the trash, keeping its status. Trashing an
// already trashed entity succeeds with Changed false.
func (s *Store) SoftDelete(ctx context.Context, actor model.Actor, kind model.Kind, id string, expectedVersion int64) (Result[model.Entity], error) {
	return s.overlay(ctx, actor, kind, id, expectedVersion, policy.ActionSoftDelete, model.ActionSoftDeleted,
		func(e model.Entity, now time.Time) (lifecycle.Outcome, error) { return lifecycle.Trash(e, now), nil })
}

// Restore brings a trashed entity back with the status it had when it was
// trashed. Restoring a live entity succeeds with Changed false. An article
// whose category is gone or trashed cannot be restored.
func (s *Store) Restore(ctx context.Context, actor model.Actor, kind model.Kind, id string, expectedVersion int64) (Result[model.Entity], error) {
	return s.overlay(ctx, actor, kind, id, expectedVersion, policy.ActionRestore, model.ActionRestored,
		func(e model.Entity, _ time.Time) (lifecycle.Outcome, error) {
			if a, ok := e.(*model.NewsArticle); ok && a.IsDeleted {
				if err := s.requireLiveCategory(a.CategoryID); err != nil {
					return lifecycle.Outcome{}, err
				}
			}
			return lifecycle.Restore(e), nil
		})
}

func (s *Store) overlay(ctx context.Context, actor model.Actor, kind model.Kind, id string, expectedVersion int64, action policy.Action, eventAction string, apply func(model.Entity, time.Time) (lifecycle.Outcome, error)) (Result[model.Entity], error) {
	c, err := s.collection(kind)
	if err != nil {
		return Result[model.Entity]{}, err
	}

	var out lifecycle.Outcome
	now := s.now()
	e, changed, err := c.mutateEntity(id, expectedVersion, now,
		func(e model.Entity) error {
			return s.authorize(ctx, actor, kind, action, e.Base().OwnerID)
		},
		func(e model.Entity) (bool, error) {
			var applyErr error
			out, applyErr = apply(e, now)
			return out.Changed, applyErr
		})
	if err != nil {
		return Result[model.Entity]{}, err
	}
	if changed {
		s.emit(ctx, kind, id, actor, eventAction, out, fmt.Sprintf("%s %q %s", kind, displayName(e), eventAction))
	}
	return Result[model.Entity]{Entity: e, Changed: changed}, nil
}

// PermanentDelete removes a trashed entity irrecoverably.
func (s *Store) PermanentDelete(ctx context.Context, actor model.Actor, kind model.Kind, id string) error {
	c, err := s.collection(kind)
	if err != nil {
		return err
	}

	e, err := c.removeEntity(id, func(e model.Entity) error {
		if err := s.authorize(ctx, actor, kind, policy.ActionPermanentDelete, e.Base().OwnerID); err != nil {
			return err
		}
		if !e.Base().IsDeleted {
			return fmt.Errorf("%w: %s %q", ErrNotInTrash, kind, id)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.emit(ctx, kind, id, actor, model.ActionPermanentDeleted,
		lifecycle.Outcome{Changed: true, From: model.StateTrashed, To: model.StateGone},
		fmt.Sprintf("%s %q permanently deleted", kind, displayName(e)))
	return nil
}

// EmptyTrash permanently deletes every trashed entity of kind and returns
// how many were removed. It requires the bulk empty-trash permission,
// which is stricter than per-item permanent delete.
func (s *Store) EmptyTrash(ctx context.Context, actor model.Actor, kind model.Kind) (int, error) {
	c, err := s.collection(kind)
	if err != nil {
		return 0, err
	}
	if err := s.authorize(ctx, actor, kind, policy.ActionEmptyTrash, ""); err != nil {
		return 0, err
	}

	removed := c.removeEntitiesWhere(func(e model.Entity) bool { return e.Base().IsDeleted })
	for _, e := range removed {
		s.emit(ctx, kind, e.Base().ID, actor, model.ActionPermanentDeleted,
			lifecycle.Outcome{Changed: true, From: model.StateTrashed, To: model.StateGone},
			fmt.Sprintf("%s %q permanently deleted (trash emptied)", kind, displayName(e)))
	}
	if len(removed) > 0 {
		s.logger.InfoContext(ctx, "trash emptied", "kind", string(kind), "actor_id", actor.ID, "count", len(removed))
	}
	return len(removed), nil
}

// AutoPublish promotes every scheduled article whose publish time has
// passed. Each article goes through the same serialized write path as a
// manual publish, so a concurrent "publish now" either wins or turns the
// sweep into a no-op for that article.
func (s *Store) AutoPublish(ctx context.Context) ([]*model.NewsArticle, error) {
	now := s.now()

	var due []string
	for _, a := range s.news.snapshot() {
		if a.IsScheduled() && !a.IsDeleted && a.PublishAt != nil && !now.Before(*a.PublishAt) {
			due = append(due, a.ID)
		}
	}

	var published []*model.NewsArticle
	var errs []error
	for _, id := range due {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		var out lifecycle.Outcome
		a, changed, err := s.news.mutate(id, 0, now, nil, func(a *model.NewsArticle) (bool, error) {
			var err error
			out, err = lifecycle.MaybeAutoPublish(a, now)
			return out.Changed, err
		})
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("auto-publishing %s: %w", id, err))
			continue
		}
		if !changed {
			continue
		}
		published = append(published, a)
		s.emit(ctx, model.KindNews, id, model.SystemActor, model.ActionAutoPublished, out,
			fmt.Sprintf("article %q published automatically", a.Title))
	}
	return published, errors.Join(errs...)
}

func describeTransition(e model.Entity, op lifecycle.Op, out lifecycle.Outcome) string {
	name := displayName(e)
	if a, ok := e.(*model.NewsArticle); ok && a.PublishAt != nil && (op == lifecycle.OpSchedule || op == lifecycle.OpReschedule) {
		return fmt.Sprintf("article %q scheduled for %s", name, a.PublishAt.Format(time.RFC3339))
	}
	return fmt.Sprintf("%s %q changed from %s to %s", e.Kind(), name, out.From, out.To)
}

func displayName(e model.Entity) string {
	switch v := e.(type) {
	case *model.NewsArticle:
		return v.Title
	case *model.AdCampaign:
		return v.Title
	case *model.Category:
		return v.Name
	case *model.StaffAccount:
		return v.Name
	default:
		return e.Base().ID
	}
}
