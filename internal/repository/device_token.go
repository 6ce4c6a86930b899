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

// UpsertDeviceToken registers token for owner. An existing row with the same
// token is moved to owner; a nil platform keeps the stored platform.
func (r *Repository) UpsertDeviceToken(ctx context.Context, owner models.PrincipalRef, token string, platform *models.Platform, usedAt time.Time) (*models.DeviceToken, error) {
	var p *string
	if platform != nil {
		s := string(*platform)
		p = &s
	}
	now := r.now()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO device_tokens (token, platform, owner_kind, owner_id, last_used_at, created_at, updated_at)
		 VALUES (?, COALESCE(?, 'unknown'), ?, ?, ?, ?, ?)
		 ON CONFLICT(token) DO UPDATE SET
		   platform = COALESCE(?, device_tokens.platform),
		   owner_kind = excluded.owner_kind,
		   owner_id = excluded.owner_id,
		   last_used_at = excluded.last_used_at,
		   updated_at = excluded.updated_at`,
		token, p, owner.Kind, owner.ID, usedAt.UTC(), now, now, p)
	if err != nil {
		return nil, err
	}

	return r.GetDeviceToken(ctx, token)
}

// GetDeviceToken retrieves a device token by its token string.
func (r *Repository) GetDeviceToken(ctx context.Context, token string) (*models.DeviceToken, error) {
	var dt models.DeviceToken
	if err := r.db.GetContext(ctx, &dt, `SELECT * FROM device_tokens WHERE token = ?`, token); err != nil {
		return nil, wrapError(err)
	}
	return &dt, nil
}

// ListDeviceTokens returns all device tokens of an owner.
func (r *Repository) ListDeviceTokens(ctx context.Context, owner models.PrincipalRef) ([]models.DeviceToken, error) {
	tokens := []models.DeviceToken{}
	err := r.db.SelectContext(ctx, &tokens,
		`SELECT * FROM device_tokens WHERE owner_kind = ? AND owner_id = ? ORDER BY id`,
		owner.Kind, owner.ID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

// TokensForOwners returns the token strings of all devices owned by any of
// the given principals. The result may contain duplicates only if the
// caller passes duplicate owners.
func (r *Repository) TokensForOwners(ctx context.Context, owners []models.PrincipalRef) ([]string, error) {
	byKind := lo.GroupBy(owners, func(o models.PrincipalRef) models.PrincipalKind { return o.Kind })

	tokens := []string{}
	for kind, refs := range byKind {
		ids := lo.Map(refs, func(o models.PrincipalRef, _ int) int64 { return o.ID })
		for _, chunk := range lo.Chunk(ids, inChunkSize) {
			query, args, err := sqlx.In(
				`SELECT token FROM device_tokens WHERE owner_kind = ? AND owner_id IN (?) ORDER BY id`,
				kind, chunk)
			if err != nil {
				return nil, err
			}
			var part []string
			if err := r.db.SelectContext(ctx, &part, r.db.Rebind(query), args...); err != nil {
				return nil, err
			}
			tokens = append(tokens, part...)
		}
	}
	return tokens, nil
}
