// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"errors"
	"fmt"

	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
)

// Errors returned by the store. Policy and lifecycle sentinels are
// re-exported so callers only need this package for errors.Is checks.
var (
	ErrNotFound          = errors.New("resource: not found")
	ErrConflict          = errors.New("resource: version conflict")
	ErrNotInTrash        = errors.New("resource: not in trash")
	ErrInTrash           = errors.New("resource: in trash")
	ErrValidation        = errors.New("resource: validation failed")
	ErrUnknownKind       = errors.New("resource: unknown kind")
	ErrAlreadySetUp      = errors.New("resource: staff already exists")
	ErrPermissionDenied  = policy.ErrPermissionDenied
	ErrInvalidTransition = lifecycle.ErrInvalidTransition
	ErrScheduleInPast    = lifecycle.ErrScheduleInPast
)

// NotFoundError identifies the missing entity.
type NotFoundError struct {
	Kind model.Kind
	ID   string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// ConflictError reports a write against a stale version. Callers re-read
// the entity and retry with the current version.
type ConflictError struct {
	Kind     model.Kind
	ID       string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s %q changed: expected version %d, current %d", e.Kind, e.ID, e.Expected, e.Actual)
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}

// ValidationError describes an invalid input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}

func invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}
