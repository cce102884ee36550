// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package lifecycle

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/olegiv/newsmate-go/internal/model"
)

var now = time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC)

func draft() *model.NewsArticle {
	return &model.NewsArticle{Lifecycle: model.Lifecycle{ID: "n1", OwnerID: "j1"}, Status: model.NewsStatusDraft}
}

func scheduled(at time.Time) *model.NewsArticle {
	a := draft()
	a.Status = model.NewsStatusScheduled
	a.PublishAt = &at
	return a
}

func TestApply_NewsSchedule(t *testing.T) {
	at := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	a := draft()

	out, err := Apply(a, Schedule(at), now)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, "Draft", out.From)
	assert.Equal(t, "Scheduled", out.To)
	assert.Equal(t, model.NewsStatusScheduled, a.Status)
	require.NotNil(t, a.PublishAt)
	assert.Equal(t, at, *a.PublishAt)
}

func TestApply_ScheduleInPast(t *testing.T) {
	tests := []struct {
		name string
		at   time.Time
	}{
		{"now", now},
		{"past", now.Add(-time.Minute)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := draft()
			_, err := Apply(a, Schedule(tt.at), now)
			require.ErrorIs(t, err, ErrScheduleInPast)
			assert.Equal(t, model.NewsStatusDraft, a.Status)
			assert.Nil(t, a.PublishAt)

			var te *TransitionError
			require.True(t, errors.As(err, &te))
			assert.Equal(t, model.KindNews, te.Kind)
			assert.Equal(t, "Draft", te.From)
		})
	}
}

func TestApply_ScheduleWithoutTime(t *testing.T) {
	_, err := Apply(draft(), Request{Op: OpSchedule}, now)
	assert.ErrorIs(t, err, ErrPublishAtRequired)
}

func TestApply_Reschedule(t *testing.T) {
	first := now.Add(24 * time.Hour)
	second := now.Add(48 * time.Hour)
	a := scheduled(first)

	out, err := Apply(a, Reschedule(second), now)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, "Scheduled", out.From)
	assert.Equal(t, "Scheduled", out.To)
	assert.Equal(t, second, *a.PublishAt)

	// Same time again is the already-in-state no-op.
	out, err = Apply(a, Reschedule(second), now)
	require.NoError(t, err)
	assert.False(t, out.Changed)

	// Scheduling a scheduled article is a reschedule.
	out, err = Apply(a, Schedule(first), now)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, first, *a.PublishAt)

	_, err = Apply(a, Reschedule(now.Add(-time.Second)), now)
	require.ErrorIs(t, err, ErrScheduleInPast)
	assert.Equal(t, first, *a.PublishAt)
}

func TestApply_RescheduleToLapsedTime(t *testing.T) {
	at := now.Add(time.Hour)
	a := scheduled(at)
	later := now.Add(2 * time.Hour)

	// The sweep has not promoted the article yet; its own publish time is
	// already past and must not pass as a no-op.
	_, err := Apply(a, Reschedule(at), later)
	require.ErrorIs(t, err, ErrScheduleInPast)
	_, err = Apply(a, Reschedule(at.Add(time.Minute)), later)
	require.ErrorIs(t, err, ErrScheduleInPast)
	assert.Equal(t, at, *a.PublishAt)
	assert.Equal(t, model.NewsStatusScheduled, a.Status)
}

func TestApply_PublishAndCancel(t *testing.T) {
	a := scheduled(now.Add(time.Hour))
	out, err := Apply(a, CancelSchedule(), now)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.Equal(t, model.NewsStatusDraft, a.Status)
	assert.Nil(t, a.PublishAt)

	a = scheduled(now.Add(time.Hour))
	_, err = Apply(a, PublishNow(), now)
	require.NoError(t, err)
	assert.Equal(t, model.NewsStatusPublished, a.Status)
	assert.Nil(t, a.PublishAt)
	require.NotNil(t, a.PublishedAt)
	assert.Equal(t, now, *a.PublishedAt)

	a = draft()
	_, err = Apply(a, PublishNow(), now)
	require.NoError(t, err)
	assert.True(t, a.IsPublished())
}

func TestApply_PublishedIsTerminal(t *testing.T) {
	a := draft()
	_, err := Apply(a, PublishNow(), now)
	require.NoError(t, err)

	for _, req := range []Request{Schedule(now.Add(time.Hour)), Reschedule(now.Add(time.Hour)), CancelSchedule(), Toggle()} {
		t.Run(string(req.Op), func(t *testing.T) {
			_, err := Apply(a, req, now)
			assert.ErrorIs(t, err, ErrInvalidTransition)
			assert.Equal(t, model.NewsStatusPublished, a.Status)
		})
	}

	out, err := Apply(a, PublishNow(), now)
	require.NoError(t, err)
	assert.False(t, out.Changed, "publishing a published article is a no-op")
}

func TestApply_NewsInvalidFromDraft(t *testing.T) {
	_, err := Apply(draft(), Reschedule(now.Add(time.Hour)), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(draft(), SetStatus("Bogus"), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_AdToggle(t *testing.T) {
	tests := []struct {
		from    model.AdStatus
		want    model.AdStatus
		wantErr error
	}{
		{model.AdStatusActive, model.AdStatusInactive, nil},
		{model.AdStatusInactive, model.AdStatusActive, nil},
		{model.AdStatusBlocked, model.AdStatusBlocked, ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(string(tt.from), func(t *testing.T) {
			ad := &model.AdCampaign{Status: tt.from}
			_, err := Apply(ad, Toggle(), now)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.want, ad.Status)
		})
	}
}

func TestApply_AdSetStatus(t *testing.T) {
	for _, from := range model.AdStatuses {
		for _, to := range model.AdStatuses {
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				ad := &model.AdCampaign{Status: from}
				out, err := Apply(ad, SetStatus(string(to)), now)
				require.NoError(t, err)
				assert.Equal(t, from != to, out.Changed)
				assert.Equal(t, to, ad.Status)
			})
		}
	}

	_, err := Apply(&model.AdCampaign{Status: model.AdStatusActive}, SetStatus("Draft"), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	_, err = Apply(&model.AdCampaign{Status: model.AdStatusActive}, PublishNow(), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_Staff(t *testing.T) {
	s := &model.StaffAccount{Status: model.StaffStatusActive}
	_, err := Apply(s, Toggle(), now)
	require.NoError(t, err)
	assert.Equal(t, model.StaffStatusInactive, s.Status)

	out, err := Apply(s, SetStatus("Inactive"), now)
	require.NoError(t, err)
	assert.False(t, out.Changed)

	_, err = Apply(s, SetStatus("Blocked"), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestApply_CategoryHasNoStatus(t *testing.T) {
	_, err := Apply(&model.Category{}, Toggle(), now)
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestMaybeAutoPublish(t *testing.T) {
	at := time.Date(2026, 3, 11, 9, 0, 0, 0, time.UTC)

	a := scheduled(at)
	out, err := MaybeAutoPublish(a, at.Add(-time.Nanosecond))
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.True(t, a.IsScheduled())

	out, err = MaybeAutoPublish(a, at)
	require.NoError(t, err)
	assert.True(t, out.Changed)
	assert.True(t, a.IsPublished())
	assert.Nil(t, a.PublishAt)
	assert.Equal(t, at, *a.PublishedAt)

	late := scheduled(at)
	_, err = MaybeAutoPublish(late, at.Add(time.Hour))
	require.NoError(t, err)
	assert.True(t, late.IsPublished())

	out, err = MaybeAutoPublish(draft(), at)
	require.NoError(t, err)
	assert.False(t, out.Changed)

	trashed := scheduled(at)
	Trash(trashed, now)
	out, err = MaybeAutoPublish(trashed, at)
	require.NoError(t, err)
	assert.False(t, out.Changed)
	assert.True(t, trashed.IsScheduled())
}

func TestTrashRestorePreservesState(t *testing.T) {
	at := now.Add(24 * time.Hour)
	a := scheduled(at)

	out := Trash(a, now)
	assert.True(t, out.Changed)
	assert.Equal(t, "Scheduled", out.From)
	assert.Equal(t, model.StateTrashed, out.To)
	assert.True(t, a.IsDeleted)
	require.NotNil(t, a.DeletedAt)
	assert.Equal(t, now, *a.DeletedAt)

	again := Trash(a, now.Add(time.Minute))
	assert.False(t, again.Changed)
	assert.Equal(t, now, *a.DeletedAt)

	out = Restore(a)
	assert.True(t, out.Changed)
	assert.Equal(t, "Scheduled", out.To)
	assert.False(t, a.IsDeleted)
	assert.Nil(t, a.DeletedAt)
	assert.Equal(t, model.NewsStatusScheduled, a.Status)
	assert.Equal(t, at, *a.PublishAt)

	assert.False(t, Restore(a).Changed)
}

func TestTrashCategory(t *testing.T) {
	c := &model.Category{}
	out := Trash(c, now)
	assert.Equal(t, "Active", out.From)
	assert.Equal(t, "Active", Restore(c).To)
}

func TestAvailable(t *testing.T) {
	edges := Default.Available(model.KindNews, "Scheduled")
	ops := make(map[Op]bool)
	for _, e := range edges {
		ops[e.Op] = true
	}
	assert.True(t, ops[OpPublish])
	assert.True(t, ops[OpCancelSchedule])
	assert.True(t, ops[OpReschedule])
	assert.False(t, ops[OpSchedule])

	assert.Empty(t, Default.Available(model.KindNews, "Published"))
	assert.Len(t, Default.Available(model.KindAd, "Blocked"), 2)
	assert.Nil(t, Default.Available(model.Kind("unknown"), "Active"))
}

func TestApply_UnknownKind(t *testing.T) {
	m := &Machine{definitions: map[model.Kind]Definition{}}
	_, err := m.Apply(draft(), PublishNow(), now)
	assert.ErrorIs(t, err, ErrUnknownKind)
}
