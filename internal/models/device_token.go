// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

type Platform string

const (
	PlatformIOS     Platform = "ios"
	PlatformAndroid Platform = "android"
	PlatformWeb     Platform = "web"
	PlatformUnknown Platform = "unknown"
)

// DeviceToken is a push registration id. The token is unique; registering
// it again moves it to the new owner.
type DeviceToken struct { //nolint:govet // fieldalignment: readability over optimization
	ID         int64         `db:"id" json:"id"`
	Token      string        `db:"token" json:"token"`
	Platform   Platform      `db:"platform" json:"platform"`
	OwnerKind  PrincipalKind `db:"owner_kind" json:"owner_kind"`
	OwnerID    int64         `db:"owner_id" json:"owner_id"`
	LastUsedAt time.Time     `db:"last_used_at" json:"last_used_at"`
	CreatedAt  time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time     `db:"updated_at" json:"updated_at"`
}

func (d *DeviceToken) Owner() PrincipalRef {
	return PrincipalRef{Kind: d.OwnerKind, ID: d.OwnerID}
}
