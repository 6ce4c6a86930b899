// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// GetCustomerSettings returns a customer's settings, creating the default
// row on first access.
func (r *Repository) GetCustomerSettings(ctx context.Context, customerID int64) (*models.CustomerSettings, error) {
	defaults := models.DefaultCustomerSettings(customerID)
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO customer_settings (customer_id, language, theme, notifications_enabled, addresses, payment_methods, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?) ON CONFLICT(customer_id) DO NOTHING`,
		customerID, defaults.Language, defaults.Theme, defaults.NotificationsEnabled,
		defaults.Addresses, defaults.PaymentMethods, r.now())
	if err != nil {
		return nil, err
	}

	var s models.CustomerSettings
	if err := r.db.GetContext(ctx, &s, `SELECT * FROM customer_settings WHERE customer_id = ?`, customerID); err != nil {
		return nil, wrapError(err)
	}
	return &s, nil
}

// SaveCustomerSettings writes all settings fields.
func (r *Repository) SaveCustomerSettings(ctx context.Context, s *models.CustomerSettings) error {
	s.UpdatedAt = r.now()
	_, err := r.db.ExecContext(ctx,
		`UPDATE customer_settings SET language = ?, theme = ?, notifications_enabled = ?, addresses = ?, payment_methods = ?, updated_at = ?
		 WHERE customer_id = ?`,
		s.Language, s.Theme, s.NotificationsEnabled, s.Addresses, s.PaymentMethods, s.UpdatedAt, s.CustomerID)
	return err
}

// CustomerLanguage returns the saved language preference. ErrNotFound means
// the customer never stored settings.
func (r *Repository) CustomerLanguage(ctx context.Context, customerID int64) (string, error) {
	var lang string
	if err := r.db.GetContext(ctx, &lang, `SELECT language FROM customer_settings WHERE customer_id = ?`, customerID); err != nil {
		return "", wrapError(err)
	}
	return lang, nil
}
