// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/samber/lo"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// inChunkSize bounds the number of bound parameters in IN (...) queries.
const inChunkSize = 500

// CreateCustomer creates a new, unverified and active customer.
func (r *Repository) CreateCustomer(ctx context.Context, name, email, passwordHash string) (*models.Customer, error) {
	now := r.now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO customers (name, email, password_hash, is_active, created_at, updated_at) VALUES (?, ?, ?, 1, ?, ?)`,
		name, email, passwordHash, now, now)
	if err != nil {
		return nil, wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, err
	}

	return r.GetCustomerByID(ctx, id)
}

// GetCustomerByID retrieves a customer by ID.
func (r *Repository) GetCustomerByID(ctx context.Context, id int64) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, `SELECT * FROM customers WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &customer, nil
}

// GetCustomerByEmail retrieves a customer by email address.
func (r *Repository) GetCustomerByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.GetContext(ctx, &customer, `SELECT * FROM customers WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &customer, nil
}

// MarkCustomerVerified sets email_verified_at.
func (r *Repository) MarkCustomerVerified(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE customers SET email_verified_at = ?, updated_at = ? WHERE id = ?`,
		at.UTC(), r.now(), id)
	return err
}

// SetCustomerActive activates or deactivates a customer.
func (r *Repository) SetCustomerActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE customers SET is_active = ?, updated_at = ? WHERE id = ?`,
		active, r.now(), id)
	return err
}

// UpdateCustomerProfile updates the profile fields of a customer.
func (r *Repository) UpdateCustomerProfile(ctx context.Context, c *models.Customer) error {
	c.UpdatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE customers SET name = ?, phone = ?, avatar = ?, updated_at = ? WHERE id = ?`,
		c.Name, c.Phone, c.Avatar, c.UpdatedAt, c.ID)
	return err
}

// ListActiveCustomerIDs returns the IDs of all active customers.
func (r *Repository) ListActiveCustomerIDs(ctx context.Context) ([]int64, error) {
	ids := []int64{}
	if err := r.db.SelectContext(ctx, &ids, `SELECT id FROM customers WHERE is_active = 1 ORDER BY id`); err != nil {
		return nil, err
	}
	return ids, nil
}

// ExistingCustomerIDs returns the subset of ids that belong to a customer.
func (r *Repository) ExistingCustomerIDs(ctx context.Context, ids []int64) ([]int64, error) {
	found := []int64{}
	for _, chunk := range lo.Chunk(lo.Uniq(ids), inChunkSize) {
		query, args, err := sqlx.In(`SELECT id FROM customers WHERE id IN (?) ORDER BY id`, chunk)
		if err != nil {
			return nil, err
		}
		var part []int64
		if err := r.db.SelectContext(ctx, &part, r.db.Rebind(query), args...); err != nil {
			return nil, err
		}
		found = append(found, part...)
	}
	return found, nil
}
