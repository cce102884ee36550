// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler runs the periodic background jobs: the auto-publish
// sweep that promotes due scheduled articles and event log retention.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/olegiv/newsmate-go/internal/model"
)

// DefaultSweepSchedule runs the auto-publish sweep every minute.
const DefaultSweepSchedule = "* * * * *"

// SweepJobName is the registered name of the auto-publish sweep.
const SweepJobName = "auto_publish"

// ErrJobNotFound is returned by TriggerNow for an unregistered name.
var ErrJobNotFound = errors.New("scheduler: job not found")

// Publisher promotes scheduled articles whose publish time has passed.
type Publisher interface {
	AutoPublish(ctx context.Context) ([]*model.NewsArticle, error)
}

// JobFunc is the body of a scheduled job.
type JobFunc func(ctx context.Context) error

type registeredJob struct {
	name        string
	description string
	schedule    string
	entryID     cron.EntryID
	fn          JobFunc
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Schedule    string    `json:"schedule"`
	LastRun     time.Time `json:"last_run"`
	NextRun     time.Time `json:"next_run"`
}

// Scheduler wraps a cron instance with named jobs.
type Scheduler struct {
	cron      *cron.Cron
	logger    *slog.Logger
	publisher Publisher
	schedule  string

	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.RWMutex
	jobs map[string]*registeredJob
}

// New creates a scheduler whose sweep runs on schedule. An empty schedule
// selects DefaultSweepSchedule.
func New(publisher Publisher, schedule string, logger *slog.Logger) *Scheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:      cron.New(),
		logger:    logger,
		publisher: publisher,
		schedule:  schedule,
		ctx:       ctx,
		cancel:    cancel,
		jobs:      make(map[string]*registeredJob),
	}
}

// ValidateSchedule reports whether spec is a standard five-field cron
// expression or a descriptor such as "@every 30s".
func ValidateSchedule(spec string) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", spec, err)
	}
	return nil
}

// Register adds a named job. It may be called before or after Start.
func (s *Scheduler) Register(name, description, schedule string, fn JobFunc) error {
	if err := ValidateSchedule(schedule); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job already registered: %s", name)
	}

	run := func() {
		if err := fn(s.ctx); err != nil {
			s.logger.Error("scheduled job failed", "job", name, "error", err)
		}
	}
	entryID, err := s.cron.AddFunc(schedule, run)
	if err != nil {
		return err
	}

	s.jobs[name] = &registeredJob{
		name:        name,
		description: description,
		schedule:    schedule,
		entryID:     entryID,
		fn:          fn,
	}
	s.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// Start registers the auto-publish sweep and starts the cron loop.
func (s *Scheduler) Start() error {
	if err := s.Register(SweepJobName, "Publish scheduled articles whose time has come", s.schedule, s.Sweep); err != nil {
		return err
	}

	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", len(s.cron.Entries()), "sweep_schedule", s.schedule)
	return nil
}

// Stop gracefully stops the scheduler, waiting for running jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("scheduler stopped")
}

// Sweep runs one auto-publish pass. Failures on individual articles are
// logged and do not stop the pass.
func (s *Scheduler) Sweep(ctx context.Context) error {
	published, err := s.publisher.AutoPublish(ctx)
	for _, a := range published {
		s.logger.InfoContext(ctx, "published scheduled article",
			"category", "news",
			"article_id", a.ID,
			"article_title", a.Title,
			"scheduled_at", a.PublishAt,
		)
	}
	if len(published) > 0 {
		s.logger.InfoContext(ctx, "auto-publish sweep finished", "category", "news", "count", len(published))
	}
	return err
}

// List returns all registered jobs sorted by name.
func (s *Scheduler) List() []JobInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]JobInfo, 0, len(s.jobs))
	for _, job := range s.jobs {
		entry := s.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:        job.name,
			Description: job.description,
			Schedule:    job.schedule,
			LastRun:     entry.Prev,
			NextRun:     entry.Next,
		})
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// TriggerNow runs a job immediately on the calling goroutine and returns
// its error.
func (s *Scheduler) TriggerNow(name string) error {
	s.mu.RLock()
	job, ok := s.jobs[name]
	s.mu.RUnlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}

	s.logger.Info("manually triggering job", "name", name)
	return job.fn(s.ctx)
}
