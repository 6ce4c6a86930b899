// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers implements the JSON API of the shop backend.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	authsvc "codeberg.org/oliverandrich/go-shop-backend/internal/services/auth"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/catalog"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/notify"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/settings"
	"codeberg.org/oliverandrich/go-shop-backend/internal/sse"
)

// Handlers contains all HTTP handlers.
type Handlers struct {
	auth     *authsvc.Service
	notify   *notify.Service
	catalog  *catalog.Service
	settings *settings.Service
	hub      *sse.Hub
}

// New creates a new Handlers instance.
func New(auth *authsvc.Service, notifier *notify.Service, products *catalog.Service, prefs *settings.Service, hub *sse.Hub) *Handlers {
	return &Handlers{
		auth:     auth,
		notify:   notifier,
		catalog:  products,
		settings: prefs,
		hub:      hub,
	}
}

// Health returns the health status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
