// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package settings manages a customer's profile and preferences.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

// View is a customer together with their settings.
type View struct {
	Customer *models.Customer        `json:"customer"`
	Settings *models.CustomerSettings `json:"settings"`
}

// UpdateInput changes the fields that are set. Addresses and payment
// methods replace the stored lists.
type UpdateInput struct {
	Name                 *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Phone                *string          `json:"phone" validate:"omitempty,max=20"`
	Avatar               *string          `json:"avatar" validate:"omitempty,url,max=2048"`
	Language             *string          `json:"language" validate:"omitempty,oneof=en ar"`
	Theme                *string          `json:"theme" validate:"omitempty,oneof=light dark system"`
	NotificationsEnabled *bool            `json:"notifications_enabled"`
	Addresses            *models.JSONList `json:"addresses"`
	PaymentMethods       *models.JSONList `json:"payment_methods"`
}

type Service struct {
	repo *repository.Repository
}

func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo}
}

// Show returns the customer's settings, creating defaults on first access.
func (s *Service) Show(ctx context.Context, customerID int64) (*View, error) {
	customer, err := s.repo.GetCustomerByID(ctx, customerID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperr.NotFound("Customer not found")
		}
		return nil, err
	}
	prefs, err := s.repo.GetCustomerSettings(ctx, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return &View{Customer: customer, Settings: prefs}, nil
}

// Update applies in and returns the new state.
func (s *Service) Update(ctx context.Context, customerID int64, in UpdateInput) (*View, error) {
	view, err := s.Show(ctx, customerID)
	if err != nil {
		return nil, err
	}

	customer := view.Customer
	if in.Name != nil || in.Phone != nil || in.Avatar != nil {
		if in.Name != nil {
			customer.Name = strings.TrimSpace(*in.Name)
		}
		if in.Phone != nil {
			customer.Phone = emptyToNil(*in.Phone)
		}
		if in.Avatar != nil {
			customer.Avatar = emptyToNil(*in.Avatar)
		}
		if err := s.repo.UpdateCustomerProfile(ctx, customer); err != nil {
			return nil, fmt.Errorf("failed to update profile: %w", err)
		}
	}

	prefs := view.Settings
	if in.Language != nil {
		prefs.Language = *in.Language
	}
	if in.Theme != nil {
		prefs.Theme = *in.Theme
	}
	if in.NotificationsEnabled != nil {
		prefs.NotificationsEnabled = *in.NotificationsEnabled
	}
	if in.Addresses != nil {
		prefs.Addresses = *in.Addresses
	}
	if in.PaymentMethods != nil {
		prefs.PaymentMethods = *in.PaymentMethods
	}
	if err := s.repo.SaveCustomerSettings(ctx, prefs); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}

	return view, nil
}

func emptyToNil(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
