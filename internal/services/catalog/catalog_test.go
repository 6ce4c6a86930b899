// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package catalog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/events"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/notify"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/push"
	"codeberg.org/oliverandrich/go-shop-backend/internal/testutil"
)

type recorder struct {
	events []events.ProductOutOfStock
	err    error
}

func (r *recorder) PublishOutOfStock(_ context.Context, evt events.ProductOutOfStock) error {
	r.events = append(r.events, evt)
	return r.err
}

func newTestService(t *testing.T) (*Service, *repository.Repository, *recorder) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	rec := &recorder{}
	return NewService(repo, rec), repo, rec
}

func setStock(t *testing.T, svc *Service, id, stock int64) {
	t.Helper()
	_, err := svc.Update(context.Background(), id, UpdateInput{Stock: lo.ToPtr(stock)})
	require.NoError(t, err)
}

func TestCreate(t *testing.T) {
	svc, _, rec := newTestService(t)

	p, err := svc.Create(context.Background(), CreateInput{Name: "  Coffee Mug  ", PriceCents: 1299, Stock: 0})

	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.Equal(t, "Coffee Mug", p.Name)
	assert.Equal(t, "coffee-mug", p.Slug)
	assert.True(t, p.IsActive)
	assert.Empty(t, rec.events, "creating at zero stock is not a transition")
}

func TestCreate_DuplicateSlug(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateInput{Name: "Mug"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "mug"})

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindConflict, appErr.Kind)
}

func TestUpdate_StockTransitions(t *testing.T) {
	tests := []struct {
		name    string
		initial int64
		updates []int64
		events  int
	}{
		{"five to zero", 5, []int64{0}, 1},
		{"five to negative", 5, []int64{-1}, 1},
		{"zero to zero", 0, []int64{0}, 0},
		{"zero to five to zero", 0, []int64{5, 0}, 1},
		{"stays at zero", 5, []int64{0, 0, 0}, 1},
		{"two depletions", 5, []int64{0, 3, 0}, 2},
		{"decrease without depletion", 5, []int64{4, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, rec := newTestService(t)
			p := testutil.NewTestProduct(t, repo, "mug", tt.initial)

			for _, stock := range tt.updates {
				setStock(t, svc, p.ID, stock)
			}

			assert.Len(t, rec.events, tt.events)
		})
	}
}

func TestUpdate_EventContent(t *testing.T) {
	svc, repo, rec := newTestService(t)
	p := testutil.NewTestProduct(t, repo, "mug", 2)

	_, err := svc.Update(context.Background(), p.ID, UpdateInput{Name: lo.ToPtr("Travel Mug"), Stock: lo.ToPtr(int64(0))})

	require.NoError(t, err)
	require.Len(t, rec.events, 1)
	assert.Equal(t, events.ProductOutOfStock{ProductID: p.ID, ProductName: "Travel Mug", Stock: 0}, rec.events[0])
}

func TestUpdate_OtherFieldsNoEvent(t *testing.T) {
	svc, repo, rec := newTestService(t)
	p := testutil.NewTestProduct(t, repo, "mug", 0)

	updated, err := svc.Update(context.Background(), p.ID, UpdateInput{
		PriceCents: lo.ToPtr(int64(500)),
		IsActive:   lo.ToPtr(false),
		Slug:       lo.ToPtr(""),
	})

	require.NoError(t, err)
	assert.Equal(t, int64(500), updated.PriceCents)
	assert.False(t, updated.IsActive)
	assert.Equal(t, "mug", updated.Slug)
	assert.Empty(t, rec.events)
}

func TestUpdate_PublishErrorDoesNotFail(t *testing.T) {
	svc, repo, rec := newTestService(t)
	rec.err = errors.New("bus closed")
	p := testutil.NewTestProduct(t, repo, "mug", 1)

	updated, err := svc.Update(context.Background(), p.ID, UpdateInput{Stock: lo.ToPtr(int64(0))})

	require.NoError(t, err)
	assert.Zero(t, updated.Stock)
	stored, err := repo.GetProductByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.Stock)
}

func TestUpdate_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Update(context.Background(), 404, UpdateInput{Stock: lo.ToPtr(int64(0))})

	appErr, ok := apperr.As(err)
	require.True(t, ok)
	assert.Equal(t, apperr.KindNotFound, appErr.Kind)
}

func TestGet(t *testing.T) {
	svc, repo, _ := newTestService(t)
	p := testutil.NewTestProduct(t, repo, "mug", 1)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	_, err = svc.Get(context.Background(), 999)
	_, ok := apperr.As(err)
	assert.True(t, ok)
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Coffee Mug", "coffee-mug"},
		{"  Crème Brûlée -- Set ", "creme-brulee-set"},
		{"USB-C 2.0 Cable", "usb-c-2-0-cable"},
		{"!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, Slugify(tt.in))
		})
	}
}

// The stock alert travels through the event bus to the fan-out service and
// ends up in every admin's inbox exactly once.
func TestStockDepletionNotifiesAdmins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()
	a1 := testutil.NewTestAdmin(t, repo, "a1@example.com")
	a2 := testutil.NewTestAdmin(t, repo, "a2@example.com")

	bus, err := events.NewBus(slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	notifier := notify.NewService(repo, push.NewClient(&config.PushConfig{}), nil)
	handled := make(chan struct{}, 4)
	bus.OnOutOfStock("stock-alert", func(ctx context.Context, evt events.ProductOutOfStock) error {
		_, err := notifier.StockAlert(ctx, evt.ProductID, evt.ProductName)
		handled <- struct{}{}
		return err
	})

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Run(runCtx)
	}()
	t.Cleanup(func() {
		cancel()
		_ = bus.Close()
		<-done
	})
	<-bus.Running()

	svc := NewService(repo, bus)
	p, err := svc.Create(ctx, CreateInput{Name: "Mug", Stock: 5})
	require.NoError(t, err)

	setStock(t, svc, p.ID, 0)
	setStock(t, svc, p.ID, 0)

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("stock alert not handled")
	}
	select {
	case <-handled:
		t.Fatal("stock alert handled twice")
	case <-time.After(100 * time.Millisecond):
	}

	for _, ref := range []models.PrincipalRef{a1.Ref(), a2.Ref()} {
		total, unread, err := repo.CountNotifications(ctx, ref)
		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Equal(t, int64(1), unread)
	}
}
