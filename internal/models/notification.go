// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

const (
	NotificationTypeGeneral    = "general"
	NotificationTypeStockAlert = "stock_alert"
)

// Notification is an inbox entry for a single admin or customer.
type Notification struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string        `db:"id" json:"id"`
	OwnerKind PrincipalKind `db:"owner_kind" json:"-"`
	OwnerID   int64         `db:"owner_id" json:"-"`
	Title     string        `db:"title" json:"title"`
	Body      string        `db:"body" json:"body"`
	Type      string        `db:"type" json:"type"`
	Metadata  JSONMap       `db:"metadata" json:"data"`
	ReadAt    *time.Time    `db:"read_at" json:"read_at"`
	CreatedAt time.Time     `db:"created_at" json:"created_at"`
}

func (n *Notification) Owner() PrincipalRef {
	return PrincipalRef{Kind: n.OwnerKind, ID: n.OwnerID}
}

func (n *Notification) IsRead() bool {
	return n.ReadAt != nil
}
