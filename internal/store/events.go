// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
)

const createEvent = `
INSERT INTO events (level, category, message, actor_id, metadata, created_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, level, category, message, actor_id, metadata, created_at`

// CreateEventParams holds the columns of a new event log row.
type CreateEventParams struct {
	Level     string
	Category  string
	Message   string
	ActorID   sql.NullString
	Metadata  string
	CreatedAt time.Time
}

// CreateEvent inserts an event log row.
func (q *Queries) CreateEvent(ctx context.Context, arg CreateEventParams) (model.Event, error) {
	row := q.db.QueryRowContext(ctx, createEvent,
		arg.Level,
		arg.Category,
		arg.Message,
		arg.ActorID,
		arg.Metadata,
		arg.CreatedAt.UTC(),
	)
	var e model.Event
	err := row.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.ActorID, &e.Metadata, &e.CreatedAt)
	return e, err
}

const listEvents = `
SELECT id, level, category, message, actor_id, metadata, created_at
FROM events
WHERE (?1 = '' OR category = ?1) AND (?2 = '' OR level = ?2)
ORDER BY created_at DESC, id DESC
LIMIT ?3 OFFSET ?4`

// ListEventsParams filters and pages the event log. Empty filters match all.
type ListEventsParams struct {
	Category string
	Level    string
	Limit    int64
	Offset   int64
}

// ListEvents returns events newest first.
func (q *Queries) ListEvents(ctx context.Context, arg ListEventsParams) ([]model.Event, error) {
	rows, err := q.db.QueryContext(ctx, listEvents, arg.Category, arg.Level, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var items []model.Event
	for rows.Next() {
		var e model.Event
		if err := rows.Scan(&e.ID, &e.Level, &e.Category, &e.Message, &e.ActorID, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning event: %w", err)
		}
		items = append(items, e)
	}
	return items, rows.Err()
}

const countEvents = `
SELECT COUNT(*) FROM events
WHERE (?1 = '' OR category = ?1) AND (?2 = '' OR level = ?2)`

// CountEvents counts events matching the filters of arg.
func (q *Queries) CountEvents(ctx context.Context, arg ListEventsParams) (int64, error) {
	var n int64
	err := q.db.QueryRowContext(ctx, countEvents, arg.Category, arg.Level).Scan(&n)
	return n, err
}

const deleteOldEvents = `DELETE FROM events WHERE created_at < ?`

// DeleteOldEvents removes events created before cutoff and reports how many
// rows were deleted.
func (q *Queries) DeleteOldEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteOldEvents, cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
