// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// testDB creates a temporary test database.
func testDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "audit.db")

	db, err := NewDB(dbPath)
	if err != nil {
		t.Fatalf("NewDB: %v", err)
	}

	if err := Migrate(db); err != nil {
		_ = db.Close()
		t.Fatalf("Migrate: %v", err)
	}

	cleanup := func() {
		_ = db.Close()
		_ = os.Remove(dbPath)
	}
	return db, cleanup
}

func TestMigrateIsIdempotent(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	if err := Migrate(db); err != nil {
		t.Fatalf("second Migrate: %v", err)
	}
}

func TestCreateAndListEvents(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	base := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	inputs := []CreateEventParams{
		{Level: "info", Category: "news", Message: "article created", Metadata: "{}", CreatedAt: base},
		{Level: "warning", Category: "rbac", Message: "permission denied", ActorID: sql.NullString{String: "j1", Valid: true}, Metadata: `{"action":"empty_trash"}`, CreatedAt: base.Add(time.Minute)},
		{Level: "error", Category: "system", Message: "webhook failed", Metadata: "{}", CreatedAt: base.Add(2 * time.Minute)},
	}
	for _, in := range inputs {
		e, err := q.CreateEvent(ctx, in)
		if err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
		if e.ID == 0 {
			t.Error("event ID should not be 0")
		}
		if !e.CreatedAt.Equal(in.CreatedAt) {
			t.Errorf("CreatedAt = %v, want %v", e.CreatedAt, in.CreatedAt)
		}
	}

	all, err := q.ListEvents(ctx, ListEventsParams{Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("len(events) = %d, want 3", len(all))
	}
	if all[0].Message != "webhook failed" {
		t.Errorf("first event = %q, want newest first", all[0].Message)
	}

	rbac, err := q.ListEvents(ctx, ListEventsParams{Category: "rbac", Limit: 10})
	if err != nil {
		t.Fatalf("ListEvents(rbac): %v", err)
	}
	if len(rbac) != 1 {
		t.Fatalf("len(rbac) = %d, want 1", len(rbac))
	}
	if !rbac[0].ActorID.Valid || rbac[0].ActorID.String != "j1" {
		t.Errorf("ActorID = %+v, want j1", rbac[0].ActorID)
	}

	n, err := q.CountEvents(ctx, ListEventsParams{Level: "error"})
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("CountEvents(error) = %d, want 1", n)
	}

	paged, err := q.ListEvents(ctx, ListEventsParams{Limit: 1, Offset: 1})
	if err != nil {
		t.Fatalf("ListEvents(page 2): %v", err)
	}
	if len(paged) != 1 || paged[0].Message != "permission denied" {
		t.Errorf("page 2 = %+v, want the rbac event", paged)
	}
}

func TestDeleteOldEvents(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

	for _, age := range []time.Duration{48 * time.Hour, 25 * time.Hour, time.Hour} {
		if _, err := q.CreateEvent(ctx, CreateEventParams{
			Level: "info", Category: "system", Message: "tick", Metadata: "{}", CreatedAt: now.Add(-age),
		}); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	deleted, err := q.DeleteOldEvents(ctx, now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	n, err := q.CountEvents(ctx, ListEventsParams{})
	if err != nil {
		t.Fatalf("CountEvents: %v", err)
	}
	if n != 1 {
		t.Errorf("remaining = %d, want 1", n)
	}
}

func TestChangeEvents(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	q := New(db)
	at := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	rows := []InsertChangeEventParams{
		{Kind: "news", EntityID: "n1", ActorID: "j1", Action: "created", NewState: "Draft", CreatedAt: at},
		{Kind: "news", EntityID: "n1", ActorID: "j1", Action: "status_changed", PreviousState: "Draft", NewState: "Scheduled", CreatedAt: at},
		{Kind: "news", EntityID: "n1", ActorID: "system", Action: "auto_published", PreviousState: "Scheduled", NewState: "Published", CreatedAt: at},
		{Kind: "ad", EntityID: "a1", ActorID: "ad", Action: "soft_deleted", PreviousState: "Active", NewState: "Trashed", CreatedAt: at},
	}
	for _, r := range rows {
		id, err := q.InsertChangeEvent(ctx, r)
		if err != nil {
			t.Fatalf("InsertChangeEvent: %v", err)
		}
		if id == 0 {
			t.Error("change event id should not be 0")
		}
	}

	trail, err := q.ListChangeEvents(ctx, ListChangeEventsParams{Kind: "news", EntityID: "n1", Limit: 10})
	if err != nil {
		t.Fatalf("ListChangeEvents: %v", err)
	}
	if len(trail) != 3 {
		t.Fatalf("len(trail) = %d, want 3", len(trail))
	}
	if trail[0].Action != "auto_published" || trail[0].NewState != "Published" {
		t.Errorf("newest = %+v, want auto_published", trail[0])
	}
	if !trail[0].CreatedAt.Equal(at) {
		t.Errorf("CreatedAt = %v, want %v", trail[0].CreatedAt, at)
	}

	bySystem, err := q.CountChangeEvents(ctx, ListChangeEventsParams{ActorID: "system"})
	if err != nil {
		t.Fatalf("CountChangeEvents: %v", err)
	}
	if bySystem != 1 {
		t.Errorf("system events = %d, want 1", bySystem)
	}

	total, err := q.CountChangeEvents(ctx, ListChangeEventsParams{})
	if err != nil {
		t.Fatalf("CountChangeEvents: %v", err)
	}
	if total != 4 {
		t.Errorf("total = %d, want 4", total)
	}
}

func TestWithTxRollback(t *testing.T) {
	db, cleanup := testDB(t)
	defer cleanup()

	ctx := context.Background()
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx: %v", err)
	}

	q := New(db).WithTx(tx)
	if _, err := q.InsertChangeEvent(ctx, InsertChangeEventParams{
		Kind: "news", EntityID: "n1", ActorID: "j1", Action: "created", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("InsertChangeEvent: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback: %v", err)
	}

	n, err := New(db).CountChangeEvents(ctx, ListChangeEventsParams{})
	if err != nil {
		t.Fatalf("CountChangeEvents: %v", err)
	}
	if n != 0 {
		t.Errorf("rows after rollback = %d, want 0", n)
	}
}
