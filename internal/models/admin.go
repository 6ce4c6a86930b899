// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"slices"
	"strings"
	"time"
)

// Admin is a back-office account. Roles are stored comma-separated.
type Admin struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64     `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Roles        string    `db:"roles" json:"-"`
	TOTPSecret   *string   `db:"totp_secret" json:"-"`
	TOTPEnabled  bool      `db:"totp_enabled" json:"two_factor_enabled"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// RoleList returns the admin's roles.
func (a *Admin) RoleList() []string {
	if a.Roles == "" {
		return []string{}
	}
	roles := strings.Split(a.Roles, ",")
	for i := range roles {
		roles[i] = strings.TrimSpace(roles[i])
	}
	return roles
}

func (a *Admin) HasRole(role string) bool {
	return slices.Contains(a.RoleList(), role)
}

func (a *Admin) Ref() PrincipalRef {
	return AdminRef(a.ID)
}

func (a *Admin) Account() *Account {
	return &Account{
		Ref:          a.Ref(),
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		TOTPSecret:   a.TOTPSecret,
		TOTPEnabled:  a.TOTPEnabled,
	}
}
