// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/catalog"
)

func productID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperr.NotFound("Product not found")
	}
	return id, nil
}

// Products lists all products.
func (h *Handlers) Products(c echo.Context) error {
	products, err := h.catalog.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", products)
}

// CreateProduct adds a product.
func (h *Handlers) CreateProduct(c echo.Context) error {
	var req catalog.CreateInput
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.catalog.Create(c.Request().Context(), req)
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Product created successfully", p)
}

// Product returns a single product.
func (h *Handlers) Product(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}

	p, err := h.catalog.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "", p)
}

// UpdateProduct changes a product. Taking the last stock away notifies admins.
func (h *Handlers) UpdateProduct(c echo.Context) error {
	id, err := productID(c)
	if err != nil {
		return err
	}
	var req catalog.UpdateInput
	if err := bind(c, &req); err != nil {
		return err
	}

	p, err := h.catalog.Update(c.Request().Context(), id, req)
	if err != nil {
		return err
	}
	return ok(c, "Product updated successfully", p)
}
