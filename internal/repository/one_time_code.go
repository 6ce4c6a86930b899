// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// ReplaceOneTimeCode stores code as the only code for email, discarding any
// previous one.
func (r *Repository) ReplaceOneTimeCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO one_time_codes (email, code, expires_at, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(email) DO UPDATE SET code = excluded.code, expires_at = excluded.expires_at, created_at = excluded.created_at`,
		email, code, expiresAt.UTC(), r.now())
	return err
}

// GetOneTimeCode retrieves the current code for an email.
func (r *Repository) GetOneTimeCode(ctx context.Context, email string) (*models.OneTimeCode, error) {
	var code models.OneTimeCode
	if err := r.db.GetContext(ctx, &code, `SELECT * FROM one_time_codes WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &code, nil
}

// ConsumeOneTimeCode deletes and returns the record matching email and code.
// It returns ErrNotFound, without touching anything, when nothing matches.
func (r *Repository) ConsumeOneTimeCode(ctx context.Context, email, code string) (*models.OneTimeCode, error) {
	var consumed models.OneTimeCode
	err := r.WithTx(ctx, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &consumed,
			`SELECT * FROM one_time_codes WHERE email = ? AND code = ?`, email, code); err != nil {
			return wrapError(err)
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM one_time_codes WHERE id = ?`, consumed.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return &consumed, nil
}

// DeleteExpiredOneTimeCodes removes codes that expired before now.
func (r *Repository) DeleteExpiredOneTimeCodes(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM one_time_codes WHERE expires_at < ?`, now.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
