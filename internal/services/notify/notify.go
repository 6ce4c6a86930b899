// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package notify fans a notification out to inbox records and device push.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/push"
)

// Scope selects which principal kinds a broadcast reaches.
type Scope string

const (
	ScopeCustomers Scope = "customers"
	ScopeAdmins    Scope = "admins"
	ScopeBoth      Scope = "both"
)

func (s Scope) includesCustomers() bool { return s == ScopeCustomers || s == ScopeBoth }
func (s Scope) includesAdmins() bool    { return s == ScopeAdmins || s == ScopeBoth }

// Targets are the resolved recipients of a notification.
type Targets struct {
	Customers []int64
	Admins    []int64
}

// Refs returns the targets as principal references, customers first.
func (t Targets) Refs() []models.PrincipalRef {
	refs := make([]models.PrincipalRef, 0, len(t.Customers)+len(t.Admins))
	for _, id := range t.Customers {
		refs = append(refs, models.CustomerRef(id))
	}
	for _, id := range t.Admins {
		refs = append(refs, models.AdminRef(id))
	}
	return refs
}

// Len returns the number of recipients.
func (t Targets) Len() int {
	return len(t.Customers) + len(t.Admins)
}

// Request is the content of a notification.
type Request struct {
	Title string
	Body  string
	Type  string
	Data  map[string]any
}

// Outcome reports what a dispatch did.
type Outcome struct {
	Recipients int         `json:"recipients"`
	Devices    int         `json:"devices"`
	Push       push.Result `json:"push"`
}

// Pusher delivers a message to device tokens.
type Pusher interface {
	Send(ctx context.Context, tokens []string, msg push.Message) push.Result
}

// Publisher streams stored notifications to connected clients.
type Publisher interface {
	PublishNotification(n *models.Notification)
}

type Service struct {
	repo   *repository.Repository
	pusher Pusher
	live   Publisher
	now    func() time.Time
}

// NewService creates a fan-out service. live may be nil.
func NewService(repo *repository.Repository, pusher Pusher, live Publisher) *Service {
	return &Service{
		repo:   repo,
		pusher: pusher,
		live:   live,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ResolveTargets determines the recipients for scope. Explicit customer ids
// must all exist; without them every active customer is targeted. Admin
// scopes always target every admin.
func (s *Service) ResolveTargets(ctx context.Context, scope Scope, customerIDs []int64) (Targets, error) {
	var targets Targets

	if scope.includesCustomers() {
		if len(customerIDs) > 0 {
			wanted := lo.Uniq(customerIDs)
			existing, err := s.repo.ExistingCustomerIDs(ctx, wanted)
			if err != nil {
				return Targets{}, fmt.Errorf("failed to look up customers: %w", err)
			}
			if len(existing) != len(wanted) {
				return Targets{}, apperr.Field("customer_ids", "The selected customer ids are invalid.")
			}
			targets.Customers = wanted
		} else {
			ids, err := s.repo.ListActiveCustomerIDs(ctx)
			if err != nil {
				return Targets{}, fmt.Errorf("failed to list customers: %w", err)
			}
			targets.Customers = ids
		}
	}

	if scope.includesAdmins() {
		ids, err := s.repo.ListAdminIDs(ctx)
		if err != nil {
			return Targets{}, fmt.Errorf("failed to list admins: %w", err)
		}
		targets.Admins = ids
	}

	return targets, nil
}

// Notify stores one unread inbox record per target in a single
// transaction and streams them to connected clients afterwards.
func (s *Service) Notify(ctx context.Context, targets Targets, req Request) ([]*models.Notification, error) {
	kind := req.Type
	if kind == "" {
		kind = models.NotificationTypeGeneral
	}
	now := s.now()

	records := lo.Map(targets.Refs(), func(ref models.PrincipalRef, _ int) *models.Notification {
		return &models.Notification{
			ID:        uuid.NewString(),
			OwnerKind: ref.Kind,
			OwnerID:   ref.ID,
			Title:     req.Title,
			Body:      req.Body,
			Type:      kind,
			Metadata:  models.JSONMap(req.Data),
			CreatedAt: now,
		}
	})

	if err := s.repo.CreateNotifications(ctx, records); err != nil {
		return nil, fmt.Errorf("failed to store notifications: %w", err)
	}

	metrics.NotificationsStored.WithLabelValues(string(models.PrincipalCustomer)).Add(float64(len(targets.Customers)))
	metrics.NotificationsStored.WithLabelValues(string(models.PrincipalAdmin)).Add(float64(len(targets.Admins)))

	if s.live != nil {
		for _, n := range records {
			s.live.PublishNotification(n)
		}
	}
	return records, nil
}

// CollectTokens returns the distinct device tokens of all targets.
func (s *Service) CollectTokens(ctx context.Context, targets Targets) ([]string, error) {
	if targets.Len() == 0 {
		return nil, nil
	}
	tokens, err := s.repo.TokensForOwners(ctx, targets.Refs())
	if err != nil {
		return nil, fmt.Errorf("failed to collect device tokens: %w", err)
	}
	return lo.Uniq(tokens), nil
}

// DispatchPush sends req to tokens. It never fails; see push.Client.Send.
func (s *Service) DispatchPush(ctx context.Context, tokens []string, req Request) push.Result {
	data := lo.Assign(map[string]any{}, req.Data)
	if req.Type != "" {
		data["type"] = req.Type
	}
	return s.pusher.Send(ctx, tokens, push.Message{Title: req.Title, Body: req.Body, Data: data})
}

// Dispatch runs the whole fan-out. Inbox records are stored before any push
// is attempted. Only storage errors are returned; push problems are logged.
func (s *Service) Dispatch(ctx context.Context, targets Targets, req Request) (*Outcome, error) {
	records, err := s.Notify(ctx, targets, req)
	if err != nil {
		return nil, err
	}
	outcome := &Outcome{Recipients: len(records)}

	tokens, err := s.CollectTokens(ctx, targets)
	if err != nil {
		slog.ErrorContext(ctx, "push_tokens_failed", "error", err)
		return outcome, nil
	}
	outcome.Devices = len(tokens)
	outcome.Push = s.DispatchPush(ctx, tokens, req)

	slog.InfoContext(ctx, "notification_dispatched",
		"type", req.Type,
		"recipients", outcome.Recipients,
		"devices", outcome.Devices,
		"push_failed", outcome.Push.Failed,
	)
	return outcome, nil
}

// Broadcast resolves targets for scope and dispatches req to them.
func (s *Service) Broadcast(ctx context.Context, scope Scope, customerIDs []int64, req Request) (*Outcome, error) {
	targets, err := s.ResolveTargets(ctx, scope, customerIDs)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, targets, req)
}

// StockAlert notifies every admin that a product ran out of stock.
func (s *Service) StockAlert(ctx context.Context, productID int64, productName string) (*Outcome, error) {
	targets, err := s.ResolveTargets(ctx, ScopeAdmins, nil)
	if err != nil {
		return nil, err
	}
	return s.Dispatch(ctx, targets, Request{
		Title: "Product out of stock",
		Body:  productName + " is out of stock.",
		Type:  models.NotificationTypeStockAlert,
		Data: map[string]any{
			"product_id":   productID,
			"product_name": productName,
		},
	})
}
