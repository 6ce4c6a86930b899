// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

func accountTable(kind models.PrincipalKind) (string, error) {
	switch kind {
	case models.PrincipalAdmin:
		return "admins", nil
	case models.PrincipalCustomer:
		return "customers", nil
	default:
		return "", fmt.Errorf("%w: %q", models.ErrUnknownPrincipalKind, kind)
	}
}

// GetAccount loads the credential view of an admin or customer.
func (r *Repository) GetAccount(ctx context.Context, ref models.PrincipalRef) (*models.Account, error) {
	switch ref.Kind {
	case models.PrincipalAdmin:
		admin, err := r.GetAdminByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return admin.Account(), nil
	case models.PrincipalCustomer:
		customer, err := r.GetCustomerByID(ctx, ref.ID)
		if err != nil {
			return nil, err
		}
		return customer.Account(), nil
	default:
		return nil, fmt.Errorf("%w: %q", models.ErrUnknownPrincipalKind, ref.Kind)
	}
}

// SetTwoFactor stores the TOTP secret and enabled flag of an account.
// A nil secret clears it.
func (r *Repository) SetTwoFactor(ctx context.Context, ref models.PrincipalRef, secret *string, enabled bool) error {
	table, err := accountTable(ref.Kind)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE `+table+` SET totp_secret = ?, totp_enabled = ?, updated_at = ? WHERE id = ?`,
		secret, enabled, r.now(), ref.ID)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
