// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"strings"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// CreateAdmin creates a new admin account.
func (r *Repository) CreateAdmin(ctx context.Context, name, email, passwordHash string, roles []string) (*models.Admin, error) {
	now := r.now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (name, email, password_hash, roles, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?)`,
		name, email, passwordHash, strings.Join(roles, ","), now, now)
	if err != nil {
		return nil, wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetAdminByID(ctx, id)
}

// GetAdminByID retrieves an admin by ID.
func (r *Repository) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// GetAdminByEmail retrieves an admin by email address.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// ListAdminIDs returns the IDs of all admins.
func (r *Repository) ListAdminIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM admins ORDER BY id`); err != nil {
		return nil, err
	}
	return ids, nil
}

// CountAdmins returns the number of admin accounts.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, err
	}
	return count, nil
}

// UpdateAdminPassword replaces an admin's password hash.
func (r *Repository) UpdateAdminPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE admins SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, r.now(), id)
	return err
}
