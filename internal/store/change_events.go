// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"fmt"
	"time"
)

// ChangeEvent is a persisted row of the change trail.
type ChangeEvent struct {
	ID            int64     `json:"id"`
	Kind          string    `json:"kind"`
	EntityID      string    `json:"entity_id"`
	ActorID       string    `json:"actor_id"`
	Action        string    `json:"action"`
	PreviousState string    `json:"previous_state"`
	NewState      string    `json:"new_state"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"created_at"`
}

const insertChangeEvent = `
INSERT INTO change_events (kind, entity_id, actor_id, action, previous_state, new_state, message, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id`

// InsertChangeEventParams holds the columns of a new change trail row.
type InsertChangeEventParams struct {
	Kind          string
	EntityID      string
	ActorID       string
	Action        string
	PreviousState string
	NewState      string
	Message       string
	CreatedAt     time.Time
}

// InsertChangeEvent appends a row to the change trail and returns its id.
func (q *Queries) InsertChangeEvent(ctx context.Context, arg InsertChangeEventParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, insertChangeEvent,
		arg.Kind,
		arg.EntityID,
		arg.ActorID,
		arg.Action,
		arg.PreviousState,
		arg.NewState,
		arg.Message,
		arg.CreatedAt.UTC(),
	).Scan(&id)
	return id, err
}

const listChangeEvents = `
SELECT id, kind, entity_id, actor_id, action, previous_state, new_state, message, created_at
FROM change_events
WHERE (?1 = '' OR kind = ?1)
  AND (?2 = '' OR entity_id = ?2)
  AND (?3 = '' OR actor_id = ?3)
ORDER BY id DESC
LIMIT ?4 OFFSET ?5`

// ListChangeEventsParams filters and pages the change trail. Empty filters
// match all.
type ListChangeEventsParams struct {
	Kind     string
	EntityID string
	ActorID  string
	Limit    int64
	Offset   int64
}

// ListChangeEvents returns change trail rows, newest first.
func (q *Queries) ListChangeEvents(ctx context.Context, arg ListChangeEventsParams) ([]ChangeEvent, error) {
	rows, err := q.db.QueryContext(ctx, listChangeEvents, arg.Kind, arg.EntityID, arg.ActorID, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []ChangeEvent
	for rows.Next() {
		var e ChangeEvent
		if err := rows.Scan(
			&e.ID,
			&e.Kind,
			&e.EntityID,
			&e.ActorID,
			&e.Action,
			&e.PreviousState,
			&e.NewState,
			&e.Message,
			&e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning change event: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const countChangeEvents = `
SELECT COUNT(*) FROM change_events
WHERE (?1 = '' OR kind = ?1)
  AND (?2 = '' OR entity_id = ?2)
  AND (?3 = '' OR actor_id = ?3)`

// CountChangeEvents counts change trail rows matching the filters of arg.
func (q *Queries) CountChangeEvents(ctx context.Context, arg ListChangeEventsParams) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countChangeEvents, arg.Kind, arg.EntityID, arg.ActorID).Scan(&n)
	return n, err
}
