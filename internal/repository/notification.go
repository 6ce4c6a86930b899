// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

// CreateNotifications inserts all records in a single transaction.
func (r *Repository) CreateNotifications(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx,
			`INSERT INTO notifications (id, owner_kind, owner_id, title, body, type, metadata, read_at, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer func() { _ = stmt.Close() }()

		for _, n := range notifications {
			if _, err := stmt.ExecContext(ctx,
				n.ID, n.OwnerKind, n.OwnerID, n.Title, n.Body, n.Type, n.Metadata, n.ReadAt, n.CreatedAt.UTC()); err != nil {
				return err
			}
		}
		return nil
	})
}

// ListNotifications returns an owner's notifications, newest first.
func (r *Repository) ListNotifications(ctx context.Context, owner models.PrincipalRef, limit, offset int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := r.db.SelectContext(ctx, &notifications,
		`SELECT * FROM notifications WHERE owner_kind = ? AND owner_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`,
		owner.Kind, owner.ID, limit, offset)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

// CountNotifications returns the total and unread number of an owner's notifications.
func (r *Repository) CountNotifications(ctx context.Context, owner models.PrincipalRef) (total, unread int64, err error) {
	var counts struct {
		Total  int64 `db:"total"`
		Unread int64 `db:"unread"`
	}
	err = r.db.GetContext(ctx, &counts,
		`SELECT COUNT(*) AS total, COALESCE(SUM(CASE WHEN read_at IS NULL THEN 1 ELSE 0 END), 0) AS unread
		 FROM notifications WHERE owner_kind = ? AND owner_id = ?`,
		owner.Kind, owner.ID)
	if err != nil {
		return 0, 0, err
	}
	return counts.Total, counts.Unread, nil
}

// GetNotification retrieves a notification that belongs to owner.
func (r *Repository) GetNotification(ctx context.Context, owner models.PrincipalRef, id string) (*models.Notification, error) {
	var n models.Notification
	err := r.db.GetContext(ctx, &n,
		`SELECT * FROM notifications WHERE id = ? AND owner_kind = ? AND owner_id = ?`,
		id, owner.Kind, owner.ID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &n, nil
}

// MarkNotificationRead sets read_at if it is not set yet. Marking an already
// read notification leaves the original timestamp in place.
func (r *Repository) MarkNotificationRead(ctx context.Context, owner models.PrincipalRef, id string, at time.Time) (*models.Notification, error) {
	_, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = ?
		 WHERE id = ? AND owner_kind = ? AND owner_id = ? AND read_at IS NULL`,
		at.UTC(), id, owner.Kind, owner.ID)
	if err != nil {
		return nil, err
	}
	return r.GetNotification(ctx, owner, id)
}

// MarkAllNotificationsRead marks every unread notification of owner as read.
func (r *Repository) MarkAllNotificationsRead(ctx context.Context, owner models.PrincipalRef, at time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE notifications SET read_at = ? WHERE owner_kind = ? AND owner_id = ? AND read_at IS NULL`,
		at.UTC(), owner.Kind, owner.ID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
