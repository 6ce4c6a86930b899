// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

const (
	DefaultLanguage = "en"
	DefaultTheme    = "system"
)

// CustomerSettings holds per-customer preferences and saved lists.
type CustomerSettings struct { //nolint:govet // fieldalignment: readability over optimization
	CustomerID           int64     `db:"customer_id" json:"-"`
	Language             string    `db:"language" json:"language"`
	Theme                string    `db:"theme" json:"theme"`
	NotificationsEnabled bool      `db:"notifications_enabled" json:"notifications_enabled"`
	Addresses            JSONList  `db:"addresses" json:"addresses"`
	PaymentMethods       JSONList  `db:"payment_methods" json:"payment_methods"`
	UpdatedAt            time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultCustomerSettings returns the settings a new customer starts with.
func DefaultCustomerSettings(customerID int64) *CustomerSettings {
	return &CustomerSettings{
		CustomerID:           customerID,
		Language:             DefaultLanguage,
		Theme:                DefaultTheme,
		NotificationsEnabled: true,
		Addresses:            JSONList{},
		PaymentMethods:       JSONList{},
	}
}
