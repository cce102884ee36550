// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package resource

import (
	"context"
	"fmt"
	"iter"
	"net/mail"
	"strings"

	"github.com/olegiv/newsmate-go/internal/auth"
	"github.com/olegiv/newsmate-go/internal/lifecycle"
	"github.com/olegiv/newsmate-go/internal/model"
	"github.com/olegiv/newsmate-go/internal/policy"
)

// credentialAttempts bounds retries when a generated email is taken.
const credentialAttempts = 10

// StaffInput describes a new staff account.
type StaffInput struct {
	Name string     `json:"name"`
	Role model.Role `json:"role"`
}

// StaffCreated is returned once on creation; the plaintext password is not
// stored anywhere else.
type StaffCreated struct {
	Account     *model.StaffAccount `json:"account"`
	Credentials auth.Credentials    `json:"credentials"`
}

func emailTaken(existing iter.Seq[*model.StaffAccount], email string) bool {
	for s := range existing {
		if strings.EqualFold(s.Email, email) {
			return true
		}
	}
	return false
}

// newAccount builds an account with generated credentials unique within
// existing. ownerID empty means the account owns itself.
func (s *Store) newAccount(existing iter.Seq[*model.StaffAccount], ownerID, name string, role model.Role) (*model.StaffAccount, auth.Credentials, error) {
	var creds auth.Credentials
	for attempt := 0; ; attempt++ {
		if attempt == credentialAttempts {
			return nil, auth.Credentials{}, invalid("name", "Could not generate a unique email for this name")
		}
		var err error
		if creds, err = auth.GenerateCredentials(name); err != nil {
			return nil, auth.Credentials{}, err
		}
		if !emailTaken(existing, creds.Email) {
			break
		}
	}

	hash, err := auth.HashPassword(creds.Password)
	if err != nil {
		return nil, auth.Credentials{}, fmt.Errorf("hashing password: %w", err)
	}

	now := s.now()
	id := s.newID()
	if ownerID == "" {
		ownerID = id
	}
	return &model.StaffAccount{
		Lifecycle:    model.Lifecycle{ID: id, OwnerID: ownerID, CreatedAt: now, UpdatedAt: now, Version: 1},
		Name:         name,
		Email:        creds.Email,
		Role:         role,
		Status:       model.StaffStatusActive,
		PasswordHash: hash,
	}, creds, nil
}

func validateStaff(in StaffInput) (string, error) {
	name := cleanLine(in.Name)
	if name == "" {
		return "", invalid("name", "Name is required")
	}
	if !in.Role.Valid() {
		return "", invalid("role", "Role must be one of super_admin, admin, journalist, analyst")
	}
	return name, nil
}

// CreateStaff creates an active account with generated credentials. Only a
// super admin may create staff.
func (s *Store) CreateStaff(ctx context.Context, actor model.Actor, in StaffInput) (StaffCreated, error) {
	if err := s.authorize(ctx, actor, model.KindStaff, policy.ActionCreate, ""); err != nil {
		return StaffCreated{}, err
	}
	name, err := validateStaff(in)
	if err != nil {
		return StaffCreated{}, err
	}

	var creds auth.Credentials
	account, err := s.staff.add(func(existing iter.Seq[*model.StaffAccount]) (*model.StaffAccount, error) {
		var acc *model.StaffAccount
		var err error
		acc, creds, err = s.newAccount(existing, actor.ID, name, in.Role)
		return acc, err
	})
	if err != nil {
		return StaffCreated{}, err
	}

	s.emit(ctx, model.KindStaff, account.ID, actor, model.ActionCreated,
		lifecycle.Outcome{Changed: true, To: string(account.Status)},
		fmt.Sprintf("staff account %q created as %s", account.Name, account.Role.Label()))
	return StaffCreated{Account: account, Credentials: creds}, nil
}

// StaffPatch holds the editable profile fields of an account. Role and
// credentials are fixed at creation.
type StaffPatch struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

func validateEmail(raw string) (string, error) {
	email := strings.TrimSpace(raw)
	if email == "" {
		return "", invalid("email", "Email is required")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalid("email", "Email is not a valid address")
	}
	return email, nil
}

// UpdateStaff edits an account's name and email. Only a super admin may
// edit profiles, and an email may belong to one account only.
func (s *Store) UpdateStaff(ctx context.Context, actor model.Actor, id string, expectedVersion int64, p StaffPatch) (Result[*model.StaffAccount], error) {
	var name, email string
	if p.Name != nil {
		if name = cleanLine(*p.Name); name == "" {
			return Result[*model.StaffAccount]{}, invalid("name", "Name is required")
		}
	}
	if p.Email != nil {
		var err error
		if email, err = validateEmail(*p.Email); err != nil {
			return Result[*model.StaffAccount]{}, err
		}
	}

	acc, changed, err := s.staff.mutate(id, expectedVersion, s.now(),
		func(acc *model.StaffAccount) error {
			return s.authorize(ctx, actor, model.KindStaff, policy.ActionUpdate, acc.OwnerID)
		},
		func(acc *model.StaffAccount) (bool, error) {
			before := acc.Name + "\x00" + acc.Email
			if p.Name != nil {
				acc.Name = name
			}
			if p.Email != nil && !strings.EqualFold(email, acc.Email) {
				// mutate holds the staff lock, so the scan cannot race a
				// concurrent create or edit.
				if emailTaken(s.staff.each, email) {
					return false, invalid("email", "Email is already in use")
				}
			}
			if p.Email != nil {
				acc.Email = email
			}
			return acc.Name+"\x00"+acc.Email != before, nil
		})
	if err != nil {
		return Result[*model.StaffAccount]{}, err
	}
	if changed {
		state := string(acc.Status)
		s.emit(ctx, model.KindStaff, id, actor, model.ActionUpdated,
			lifecycle.Outcome{Changed: true, From: state, To: state},
			fmt.Sprintf("staff account %q updated", acc.Name))
	}
	return Result[*model.StaffAccount]{Entity: acc, Changed: changed}, nil
}

// keepSuperAdmin refuses a change that would leave no active super admin.
// The caller must hold the staff lock.
func (s *Store) keepSuperAdmin(acc *model.StaffAccount) error {
	if acc.Role != model.RoleSuperAdmin || acc.IsActive() {
		return nil
	}
	for other := range s.staff.each {
		if other.ID != acc.ID && other.Role == model.RoleSuperAdmin && other.IsActive() {
			return nil
		}
	}
	return invalid("status", "At least one Super Admin must stay active")
}

// Bootstrap creates the first super admin of an empty store. It fails with
// ErrAlreadySetUp once any account exists.
func (s *Store) Bootstrap(ctx context.Context, name string) (StaffCreated, error) {
	name, err := validateStaff(StaffInput{Name: name, Role: model.RoleSuperAdmin})
	if err != nil {
		return StaffCreated{}, err
	}

	var creds auth.Credentials
	account, err := s.staff.add(func(existing iter.Seq[*model.StaffAccount]) (*model.StaffAccount, error) {
		for range existing {
			return nil, ErrAlreadySetUp
		}
		var acc *model.StaffAccount
		var err error
		acc, creds, err = s.newAccount(existing, "", name, model.RoleSuperAdmin)
		return acc, err
	})
	if err != nil {
		return StaffCreated{}, err
	}

	s.emit(ctx, model.KindStaff, account.ID, model.SystemActor, model.ActionCreated,
		lifecycle.Outcome{Changed: true, To: string(account.Status)},
		fmt.Sprintf("initial super admin %q created", account.Name))
	return StaffCreated{Account: account, Credentials: creds}, nil
}

// Staff returns one account.
func (s *Store) Staff(ctx context.Context, actor model.Actor, id string) (*model.StaffAccount, error) {
	return getFor(ctx, s, s.staff, actor, id)
}

// ListStaff returns every account in creation order.
func (s *Store) ListStaff(ctx context.Context, actor model.Actor) ([]*model.StaffAccount, error) {
	return listFor(ctx, s, s.staff, actor)
}

// ResolveActor returns the actor for an active account. It is the lookup
// behind the API's actor resolution and performs no permission check.
func (s *Store) ResolveActor(id string) (model.Actor, error) {
	acc, err := s.staff.get(id)
	if err != nil {
		return model.Actor{}, err
	}
	if !acc.IsActive() {
		return model.Actor{}, fmt.Errorf("%w: staff %q is not active", ErrPermissionDenied, id)
	}
	return acc.Actor(), nil
}

// Authenticate checks an email and password against the stored hash and
// returns the matching active account.
func (s *Store) Authenticate(email, password string) (*model.StaffAccount, error) {
	var match *model.StaffAccount
	for _, acc := range s.staff.snapshot() {
		if strings.EqualFold(acc.Email, email) {
			match = acc
			break
		}
	}
	if match == nil || !match.IsActive() {
		return nil, ErrPermissionDenied
	}
	ok, err := auth.CheckPassword(password, match.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("checking password: %w", err)
	}
	if !ok {
		return nil, ErrPermissionDenied
	}
	return match, nil
}
