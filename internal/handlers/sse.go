// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/sse"
)

// HeartbeatInterval keeps idle streams open through proxies.
var HeartbeatInterval = 30 * time.Second

// NotificationStream streams the caller's new notifications as server-sent
// events. Connections sharing a bearer token share a hub key.
func (h *Handlers) NotificationStream(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}

	w := c.Response()
	flusher, ok := w.Writer.(http.Flusher)
	if !ok {
		return echo.NewHTTPError(http.StatusInternalServerError, "Streaming not supported")
	}

	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	ctx := c.Request().Context()
	ch := h.hub.Register(p.TokenID, p.Ref)
	slog.DebugContext(ctx, "stream_opened", "principal", p.Ref.String(), "clients", h.hub.ClientCount())
	defer func() {
		h.hub.Unregister(p.TokenID, p.Ref, ch)
		slog.DebugContext(ctx, "stream_closed", "principal", p.Ref.String(), "clients", h.hub.ClientCount())
	}()

	if _, err := w.Write([]byte(sse.FormatEvent("connected", "ok"))); err != nil {
		return nil
	}
	flusher.Flush()

	ticker := time.NewTicker(HeartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := w.Write([]byte(sse.Heartbeat)); err != nil {
				return nil
			}
			flusher.Flush()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			if _, err := w.Write([]byte(msg)); err != nil {
				return nil
			}
			flusher.Flush()
		}
	}
}
