// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// CreateProduct inserts p and fills in its ID and timestamps.
func (r *Repository) CreateProduct(ctx context.Context, p *models.Product) error {
	now := r.now()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO products (name, slug, price_cents, stock, is_active, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Name, p.Slug, p.PriceCents, p.Stock, p.IsActive, now, now)
	if err != nil {
		return wrapError(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = id
	p.CreatedAt = now
	p.UpdatedAt = now
	return nil
}

// GetProductByID retrieves a product by ID.
func (r *Repository) GetProductByID(ctx context.Context, id int64) (*models.Product, error) {
	var p models.Product
	if err := r.db.GetContext(ctx, &p, `SELECT * FROM products WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &p, nil
}

// ListProducts returns all products ordered by name.
func (r *Repository) ListProducts(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	if err := r.db.SelectContext(ctx, &products, `SELECT * FROM products ORDER BY name`); err != nil {
		return nil, err
	}
	return products, nil
}

// UpdateProduct loads a product, lets apply modify it and writes it back in
// one transaction. It returns the row as it was before and after the change.
func (r *Repository) UpdateProduct(ctx context.Context, id int64, apply func(p *models.Product) error) (before, after *models.Product, err error) {
	err = r.WithTx(ctx, func(tx *sqlx.Tx) error {
		var current models.Product
		if err := tx.GetContext(ctx, &current, `SELECT * FROM products WHERE id = ?`, id); err != nil {
			return wrapError(err)
		}

		prev := current
		if err := apply(&current); err != nil {
			return err
		}
		current.UpdatedAt = r.now()

		if _, err := tx.ExecContext(ctx,
			`UPDATE products SET name = ?, slug = ?, price_cents = ?, stock = ?, is_active = ?, updated_at = ? WHERE id = ?`,
			current.Name, current.Slug, current.PriceCents, current.Stock, current.IsActive, current.UpdatedAt, id); err != nil {
			return wrapError(err)
		}

		before, after = &prev, &current
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return before, after, nil
}
