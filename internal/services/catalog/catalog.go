// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package catalog manages products and emits stock events.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/events"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
)

// Publisher emits domain events after a change is committed.
type Publisher interface {
	PublishOutOfStock(ctx context.Context, evt events.ProductOutOfStock) error
}

// CreateInput describes a new product.
type CreateInput struct {
	Name       string `json:"name" validate:"required,max=255"`
	Slug       string `json:"slug" validate:"omitempty,max=255"`
	PriceCents int64  `json:"price_cents" validate:"min=0"`
	Stock      int64  `json:"stock"`
	IsActive   *bool  `json:"is_active"`
}

// UpdateInput changes the fields that are set.
type UpdateInput struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	Slug       *string `json:"slug" validate:"omitempty,max=255"`
	PriceCents *int64  `json:"price_cents" validate:"omitempty,min=0"`
	Stock      *int64  `json:"stock"`
	IsActive   *bool   `json:"is_active"`
}

type Service struct {
	repo   *repository.Repository
	events Publisher
}

func NewService(repo *repository.Repository, events Publisher) *Service {
	return &Service{repo: repo, events: events}
}

// Create stores a new product. Creating a product without stock emits no
// event.
func (s *Service) Create(ctx context.Context, in CreateInput) (*models.Product, error) {
	p := &models.Product{
		Name:       strings.TrimSpace(in.Name),
		Slug:       in.Slug,
		PriceCents: in.PriceCents,
		Stock:      in.Stock,
		IsActive:   in.IsActive == nil || *in.IsActive,
	}
	if p.Slug == "" {
		p.Slug = Slugify(p.Name)
	}

	if err := s.repo.CreateProduct(ctx, p); err != nil {
		return nil, mapError(err)
	}
	slog.InfoContext(ctx, "product_created", "product_id", p.ID, "stock", p.Stock)
	return p, nil
}

// Get returns a product by id.
func (s *Service) Get(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repo.GetProductByID(ctx, id)
	if err != nil {
		return nil, mapError(err)
	}
	return p, nil
}

// List returns all products.
func (s *Service) List(ctx context.Context) ([]models.Product, error) {
	return s.repo.ListProducts(ctx)
}

// Update applies in to a product. When the update takes stock from above
// zero to zero or below, a ProductOutOfStock event is published after the
// change is committed.
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (*models.Product, error) {
	before, after, err := s.repo.UpdateProduct(ctx, id, func(p *models.Product) error {
		if in.Name != nil {
			p.Name = strings.TrimSpace(*in.Name)
		}
		if in.Slug != nil {
			p.Slug = *in.Slug
			if p.Slug == "" {
				p.Slug = Slugify(p.Name)
			}
		}
		if in.PriceCents != nil {
			p.PriceCents = *in.PriceCents
		}
		if in.Stock != nil {
			p.Stock = *in.Stock
		}
		if in.IsActive != nil {
			p.IsActive = *in.IsActive
		}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	if before.InStock() && !after.InStock() {
		s.publishOutOfStock(ctx, after)
	}
	return after, nil
}

func (s *Service) publishOutOfStock(ctx context.Context, p *models.Product) {
	if s.events == nil {
		return
	}
	err := s.events.PublishOutOfStock(ctx, events.ProductOutOfStock{
		ProductID:   p.ID,
		ProductName: p.Name,
		Stock:       p.Stock,
	})
	if err != nil {
		// The stock change is committed; a lost alert must not fail it.
		slog.ErrorContext(ctx, "stock_event_failed", "product_id", p.ID, "error", err)
	}
}

func mapError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("Product not found")
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Conflict("The slug has already been taken.")
	default:
		return fmt.Errorf("product store: %w", err)
	}
}

var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Slugify turns a product name into a URL slug of lower case letters and
// digits joined by single dashes. Diacritics are removed.
func Slugify(name string) string {
	folded, _, err := transform.String(transform.Chain(norm.NFD, stripMarks, norm.NFC), name)
	if err != nil {
		folded = name
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(folded) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if dash && b.Len() > 0 {
				b.WriteByte('-')
			}
			b.WriteRune(r)
			dash = false
			continue
		}
		dash = true
	}
	return b.String()
}
