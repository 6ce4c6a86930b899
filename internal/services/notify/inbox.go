// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package notify

import (
	"context"
	"errors"
	"fmt"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

// PerPage is the inbox page size.
const PerPage = 20

// Page is one page of a principal's inbox.
type Page struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int64                 `json:"unread_count"`
	Total         int64                 `json:"total"`
	CurrentPage   int                   `json:"current_page"`
	LastPage      int                   `json:"last_page"`
	PerPage       int                   `json:"per_page"`
}

// Inbox returns page (1-based) of owner's notifications, newest first.
// Pages past the last one are empty.
func (s *Service) Inbox(ctx context.Context, owner models.PrincipalRef, page int) (*Page, error) {
	if page < 1 {
		page = 1
	}

	total, unread, err := s.repo.CountNotifications(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to count notifications: %w", err)
	}
	lastPage := max(int((total+PerPage-1)/PerPage), 1)

	items := []models.Notification{}
	if page <= lastPage {
		items, err = s.repo.ListNotifications(ctx, owner, PerPage, (page-1)*PerPage)
		if err != nil {
			return nil, fmt.Errorf("failed to list notifications: %w", err)
		}
	}

	return &Page{
		Notifications: items,
		UnreadCount:   unread,
		Total:         total,
		CurrentPage:   page,
		LastPage:      lastPage,
		PerPage:       PerPage,
	}, nil
}

// MarkRead sets read_at on one of owner's notifications. Repeating it keeps
// the first timestamp.
func (s *Service) MarkRead(ctx context.Context, owner models.PrincipalRef, id string) (*models.Notification, error) {
	n, err := s.repo.MarkNotificationRead(ctx, owner, id, s.now())
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("Notification not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to mark notification read: %w", err)
	}
	return n, nil
}

// MarkAllRead marks every unread notification of owner as read.
func (s *Service) MarkAllRead(ctx context.Context, owner models.PrincipalRef) (int64, error) {
	return s.repo.MarkAllNotificationsRead(ctx, owner, s.now())
}

// RegisterDevice attaches token to owner, taking it over from any previous
// owner. A nil platform keeps the stored one.
func (s *Service) RegisterDevice(ctx context.Context, owner models.PrincipalRef, token string, platform *models.Platform) (*models.DeviceToken, error) {
	d, err := s.repo.UpsertDeviceToken(ctx, owner, token, platform, s.now())
	if err != nil {
		return nil, fmt.Errorf("failed to register device: %w", err)
	}
	return d, nil
}
