// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"errors"
	"fmt"
)

// PrincipalKind discriminates the two account types that can own tokens,
// devices and notifications.
type PrincipalKind string

const (
	PrincipalAdmin    PrincipalKind = "admin"
	PrincipalCustomer PrincipalKind = "customer"
)

// ErrUnknownPrincipalKind is returned for a kind other than admin or customer.
var ErrUnknownPrincipalKind = errors.New("unknown principal kind")

// Valid reports whether k is one of the known kinds.
func (k PrincipalKind) Valid() bool {
	return k == PrincipalAdmin || k == PrincipalCustomer
}

// ParsePrincipalKind converts a stored or claimed kind string.
func ParsePrincipalKind(s string) (PrincipalKind, error) {
	k := PrincipalKind(s)
	if !k.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownPrincipalKind, s)
	}
	return k, nil
}

// PrincipalRef identifies an admin or a customer.
type PrincipalRef struct {
	Kind PrincipalKind `json:"kind"`
	ID   int64         `json:"id"`
}

func AdminRef(id int64) PrincipalRef    { return PrincipalRef{Kind: PrincipalAdmin, ID: id} }
func CustomerRef(id int64) PrincipalRef { return PrincipalRef{Kind: PrincipalCustomer, ID: id} }

func (r PrincipalRef) String() string {
	return fmt.Sprintf("%s:%d", r.Kind, r.ID)
}

// Account is the credential view shared by admins and customers.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	Ref          PrincipalRef
	Name         string
	Email        string
	PasswordHash string
	TOTPSecret   *string
	TOTPEnabled  bool
}

// HasTOTPSecret reports whether an enrollment has been started.
func (a *Account) HasTOTPSecret() bool {
	return a.TOTPSecret != nil && *a.TOTPSecret != ""
}
