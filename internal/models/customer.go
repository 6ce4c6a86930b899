// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Customer is a shop account. A nil EmailVerifiedAt means the email has not
// been confirmed with a one-time code yet.
type Customer struct { //nolint:govet // fieldalignment: readability over optimization
	ID              int64      `db:"id" json:"id"`
	Name            string     `db:"name" json:"name"`
	Email           string     `db:"email" json:"email"`
	PasswordHash    string     `db:"password_hash" json:"-"`
	Phone           *string    `db:"phone" json:"phone"`
	Avatar          *string    `db:"avatar" json:"avatar"`
	EmailVerifiedAt *time.Time `db:"email_verified_at" json:"email_verified_at"`
	IsActive        bool       `db:"is_active" json:"is_active"`
	TOTPSecret      *string    `db:"totp_secret" json:"-"`
	TOTPEnabled     bool       `db:"totp_enabled" json:"two_factor_enabled"`
	CreatedAt       time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at" json:"updated_at"`
}

// IsVerified reports whether the customer confirmed their email.
func (c *Customer) IsVerified() bool {
	return c.EmailVerifiedAt != nil
}

func (c *Customer) Ref() PrincipalRef {
	return CustomerRef(c.ID)
}

func (c *Customer) Account() *Account {
	return &Account{
		Ref:          c.Ref(),
		Name:         c.Name,
		Email:        c.Email,
		PasswordHash: c.PasswordHash,
		TOTPSecret:   c.TOTPSecret,
		TOTPEnabled:  c.TOTPEnabled,
	}
}
