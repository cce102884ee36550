// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/testutil"
)

func TestNewEventService(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db)
	if svc == nil {
		t.Error("NewEventService returned nil")
	}
}

func TestLogEvent(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db)
	ctx := context.Background()

	err := svc.LogEvent(ctx, model.EventLevelInfo, model.EventCategoryNews, "Article created", "j1", map[string]any{
		"key": "value",
	})
	if err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	var level, category, message, metadata string
	var actorID sql.NullString
	err = db.QueryRow("SELECT level, category, message, actor_id, metadata FROM events").Scan(&level, &category, &message, &actorID, &metadata)
	if err != nil {
		t.Fatalf("failed to read event: %v", err)
	}

	if level != "info" {
		t.Errorf("level = %q, want %q", level, "info")
	}
	if category != "news" {
		t.Errorf("category = %q, want %q", category, "news")
	}
	if message != "Article created" {
		t.Errorf("message = %q, want %q", message, "Article created")
	}
	if !actorID.Valid || actorID.String != "j1" {
		t.Errorf("actor_id = %v, want j1", actorID)
	}
	if metadata != `{"key":"value"}` {
		t.Errorf("metadata = %q, want %q", metadata, `{"key":"value"}`)
	}
}

func TestLogEvent_EmptyActorAndMetadata(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	svc := NewEventService(db)
	if err := svc.LogSystemEvent(context.Background(), model.EventLevelWarning, "No actor", nil); err != nil {
		t.Fatalf("LogSystemEvent failed: %v", err)
	}

	var actorID sql.NullString
	var metadata string
	if err := db.QueryRow("SELECT actor_id, metadata FROM events").Scan(&actorID, &metadata); err != nil {
		t.Fatalf("failed to read event: %v", err)
	}
	if actorID.Valid {
		t.Error("actor_id should be NULL")
	}
	if metadata != "{}" {
		t.Errorf("metadata = %q, want %q", metadata, "{}")
	}
}

func TestLogLevels(t *testing.T) {
	tests := []struct {
		name     string
		logFn    func(*EventService, context.Context) error
		expected string
	}{
		{"info", func(svc *EventService, ctx context.Context) error { return svc.LogInfo(ctx, model.EventCategoryAd, "Campaign created", "", nil) }, "info"},
		{"system", func(svc *EventService, ctx context.Context) error { return svc.LogSystemEvent(ctx, model.EventLevelError, "Redis down", nil) }, "error"},
		{"rbac", func(svc *EventService, ctx context.Context) error { return svc.LogRBACEvent(ctx, model.EventLevelWarning, "Denied", "j1", nil) }, "warning"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, cleanup := testutil.TestDB(t)
			defer cleanup()

			svc := NewEventService(db)
			if err := tt.logFn(svc, context.Background()); err != nil {
				t.Fatalf("log function failed: %v", err)
			}

			var got string
			if err := db.QueryRow("SELECT level FROM events").Scan(&got); err != nil {
				t.Fatalf("failed to read event: %v", err)
			}
			if got != tt.expected {
				t.Errorf("level = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestListAndDeleteOldEvents(t *testing.T) {
	db, cleanup := testutil.TestDB(t)
	defer cleanup()

	clock := testutil.NewClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	svc := NewEventService(db)
	svc.now = clock.Now
	ctx := context.Background()

	for i := range 3 {
		if err := svc.LogInfo(ctx, model.EventCategoryNews, "tick", "", map[string]any{"n": i}); err != nil {
			t.Fatalf("LogInfo: %v", err)
		}
		clock.Advance(24 * time.Hour)
	}
	if err := svc.LogRBACEvent(ctx, model.EventLevelWarning, "denied", "j1", nil); err != nil {
		t.Fatalf("LogRBACEvent: %v", err)
	}

	events, total, err := svc.ListEvents(ctx, model.EventCategoryNews, "", 2, 0)
	if err != nil {
		t.Fatalf("ListEvents: %v", err)
	}
	if total != 3 || len(events) != 2 {
		t.Fatalf("ListEvents = %d events of %d, want 2 of 3", len(events), total)
	}

	deleted, err := svc.DeleteOldEvents(ctx, 36*time.Hour)
	if err != nil {
		t.Fatalf("DeleteOldEvents: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}
}
