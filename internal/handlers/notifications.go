// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/notify"
)

type deviceRequest struct {
	Token    string           `json:"token" validate:"required,max=500"`
	Platform *models.Platform `json:"platform" validate:"omitempty,oneof=ios android web"`
}

type broadcastRequest struct {
	Title       string         `json:"title" validate:"required,max=255"`
	Body        string         `json:"body" validate:"required,max=1000"`
	Type        string         `json:"type" validate:"omitempty,max=50"`
	SendTo      string         `json:"send_to" validate:"omitempty,oneof=customers admins both"`
	CustomerIDs []int64        `json:"customer_ids" validate:"omitempty,dive,gt=0"`
	Data        map[string]any `json:"data"`
}

// Notifications lists the caller's inbox, newest first.
func (h *Handlers) Notifications(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	result, err := h.notify.Inbox(c.Request().Context(), ref, page)
	if err != nil {
		return err
	}
	return ok(c, "", result)
}

// MarkNotificationRead marks one of the caller's notifications as read.
func (h *Handlers) MarkNotificationRead(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}

	n, err := h.notify.MarkRead(c.Request().Context(), ref, c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, "Notification marked as read", n)
}

// MarkAllNotificationsRead marks the caller's whole inbox as read.
func (h *Handlers) MarkAllNotificationsRead(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}

	count, err := h.notify.MarkAllRead(c.Request().Context(), ref)
	if err != nil {
		return err
	}
	return ok(c, "All notifications marked as read", map[string]int64{"updated": count})
}

// RegisterDevice stores a push token for the caller.
func (h *Handlers) RegisterDevice(c echo.Context) error {
	ref, err := principalRef(c)
	if err != nil {
		return err
	}
	var req deviceRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	device, err := h.notify.RegisterDevice(c.Request().Context(), ref, req.Token, req.Platform)
	if err != nil {
		return err
	}
	return ok(c, "Device token registered", device)
}

// SendNotification lets an admin broadcast to customers, admins or both.
func (h *Handlers) SendNotification(c echo.Context) error {
	var req broadcastRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	scope := notify.Scope(req.SendTo)
	if scope == "" {
		scope = notify.ScopeCustomers
	}

	outcome, err := h.notify.Broadcast(c.Request().Context(), scope, req.CustomerIDs, notify.Request{
		Title: req.Title,
		Body:  req.Body,
		Type:  req.Type,
		Data:  req.Data,
	})
	if err != nil {
		return err
	}
	return respond(c, http.StatusCreated, "Notification sent successfully", outcome)
}
