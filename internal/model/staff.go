// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package model

// StaffStatus is the status of a staff account.
type StaffStatus string

// Staff statuses.
const (
	StaffStatusActive   StaffStatus = "Active"
	StaffStatusInactive StaffStatus = "Inactive"
)

// StaffAccount is a console user. Role is fixed at creation.
type StaffAccount struct {
	Lifecycle
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Role         Role        `json:"role"`
	Status       StaffStatus `json:"status"`
	PasswordHash string      `json:"-"` // Never expose in JSON
}

// Kind implements Entity.
func (s *StaffAccount) Kind() Kind { return KindStaff }

// StatusLabel implements Entity.
func (s *StaffAccount) StatusLabel() string { return string(s.Status) }

// IsActive returns true if the account may act in the console.
func (s *StaffAccount) IsActive() bool {
	return s.Status == StaffStatusActive && !s.IsDeleted
}

// Actor returns the account as a store actor.
func (s *StaffAccount) Actor() Actor {
	return Actor{ID: s.ID, Role: s.Role}
}

// Clone returns a copy of the account.
func (s *StaffAccount) Clone() *StaffAccount {
	cp := *s
	cp.Lifecycle = s.Lifecycle.clone()
	return &cp
}
