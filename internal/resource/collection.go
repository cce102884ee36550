// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"iter"
	"sort"
	"sync"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
)

// slot is one arena cell: the committed entity and its insertion order.
type slot[T model.Entity] struct {
	entity T
	seq    int64
}

// collection is the arena for one resource kind. Every write takes the
// write lock, works on a private clone and swaps it in only on success, so
// readers never observe a partially applied transition.
type collection[T model.Entity] struct {
	kind  model.Kind
	clone func(T) T

	mu       sync.RWMutex
	slots    map[string]*slot[T]
	nextSeq  int64
	revision int64
}

func newCollection[T model.Entity](kind model.Kind, clone func(T) T) *collection[T] {
	return &collection[T]{
		kind:  kind,
		clone: clone,
		slots: make(map[string]*slot[T]),
	}
}

// add inserts the entity returned by build. build sees the committed
// entities under the write lock so uniqueness checks cannot race.
func (c *collection[T]) add(build func(existing iter.Seq[T]) (T, error)) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, err := build(c.each)
	if err != nil {
		var zero T
		return zero, err
	}
	c.nextSeq++
	c.slots[e.Base().ID] = &slot[T]{entity: e, seq: c.nextSeq}
	c.revision++
	return c.clone(e), nil
}

// each yields committed entities; callers must hold the lock.
func (c *collection[T]) each(yield func(T) bool) {
	for _, s := range c.slots {
		if !yield(s.entity) {
			return
		}
	}
}

func (c *collection[T]) get(id string) (T, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[id]
	if !ok {
		var zero T
		return zero, &NotFoundError{Kind: c.kind, ID: id}
	}
	return c.clone(s.entity), nil
}

// snapshot returns clones of every entity in insertion order.
func (c *collection[T]) snapshot() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()

	slots := make([]*slot[T], 0, len(c.slots))
	for _, s := range c.slots {
		slots = append(slots, s)
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].seq < slots[j].seq })

	out := make([]T, len(slots))
	for i, s := range slots {
		out[i] = c.clone(s.entity)
	}
	return out
}

func (c *collection[T]) rev() int64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.revision
}

// mutate serializes a write on one entity. guard sees the committed entity
// and runs before the version check, so a denied caller learns nothing
// about versions. apply works on a clone; when it reports a change the
// clone is touched (UpdatedAt, Version) and committed. expected == 0 skips
// the version check.
func (c *collection[T]) mutate(id string, expected int64, now time.Time, guard func(T) error, apply func(T) (bool, error)) (T, bool, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[id]
	if !ok {
		return zero, false, &NotFoundError{Kind: c.kind, ID: id}
	}
	if guard != nil {
		if err := guard(s.entity); err != nil {
			return zero, false, err
		}
	}
	if current := s.entity.Base().Version; expected != 0 && expected != current {
		return zero, false, &ConflictError{Kind: c.kind, ID: id, Expected: expected, Actual: current}
	}

	work := c.clone(s.entity)
	changed, err := apply(work)
	if err != nil {
		return zero, false, err
	}
	if !changed {
		return c.clone(s.entity), false, nil
	}

	work.Base().Touch(now)
	s.entity = work
	c.revision++
	return c.clone(work), true, nil
}

// remove deletes one entity after guard approves it.
func (c *collection[T]) remove(id string, guard func(T) error) (T, error) {
	var zero T

	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.slots[id]
	if !ok {
		return zero, &NotFoundError{Kind: c.kind, ID: id}
	}
	if err := guard(s.entity); err != nil {
		return zero, err
	}
	delete(c.slots, id)
	c.revision++
	return s.entity, nil
}

// removeWhere deletes every entity matching pred, returned in insertion order.
func (c *collection[T]) removeWhere(pred func(T) bool) []T {
	c.mu.Lock()
	defer c.mu.Unlock()

	var removed []*slot[T]
	for id, s := range c.slots {
		if pred(s.entity) {
			removed = append(removed, s)
			delete(c.slots, id)
		}
	}
	if len(removed) == 0 {
		return nil
	}
	c.revision++

	sort.Slice(removed, func(i, j int) bool { return removed[i].seq < removed[j].seq })
	out := make([]T, len(removed))
	for i, s := range removed {
		out[i] = s.entity
	}
	return out
}

// entities adapts a typed collection to the kind-agnostic operations.
type entities interface {
	getEntity(id string) (model.Entity, error)
	mutateEntity(id string, expected int64, now time.Time, guard func(model.Entity) error, apply func(model.Entity) (bool, error)) (model.Entity, bool, error)
	removeEntity(id string, guard func(model.Entity) error) (model.Entity, error)
	removeEntitiesWhere(pred func(model.Entity) bool) []model.Entity
	listEntities() []model.Entity
	rev() int64
}

func (c *collection[T]) getEntity(id string) (model.Entity, error) {
	e, err := c.get(id)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (c *collection[T]) mutateEntity(id string, expected int64, now time.Time, guard func(model.Entity) error, apply func(model.Entity) (bool, error)) (model.Entity, bool, error) {
	var g func(T) error
	if guard != nil {
		g = func(e T) error { return guard(e) }
	}
	e, changed, err := c.mutate(id, expected, now, g, func(e T) (bool, error) { return apply(e) })
	if err != nil {
		return nil, false, err
	}
	return e, changed, nil
}

func (c *collection[T]) removeEntity(id string, guard func(model.Entity) error) (model.Entity, error) {
	e, err := c.remove(id, func(e T) error { return guard(e) })
	if err != nil {
		return nil, err
	}
	return e, nil
}

func (c *collection[T]) removeEntitiesWhere(pred func(model.Entity) bool) []model.Entity {
	removed := c.removeWhere(func(e T) bool { return pred(e) })
	out := make([]model.Entity, len(removed))
	for i, e := range removed {
		out[i] = e
	}
	return out
}

func (c *collection[T]) listEntities() []model.Entity {
	items := c.snapshot()
	out := make([]model.Entity, len(items))
	for i, e := range items {
		out[i] = e
	}
	return out
}
