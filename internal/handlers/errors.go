// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/go-shop-backend/internal/apperr"
	"codeberg.org/oliverandrich/go-shop-backend/internal/services/token"
)

// ErrorHandler renders every error returned by a handler or middleware as
// the JSON failure envelope.
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(c.Request().Context(), "request_failed",
			"method", c.Request().Method,
			"uri", c.Request().RequestURI,
			"error", err,
		)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(status)
	} else {
		writeErr = c.JSON(status, body)
	}
	if writeErr != nil {
		slog.ErrorContext(c.Request().Context(), "error_response_failed", "error", writeErr)
	}
}

func errorResponse(err error) (int, envelope) {
	if e, ok := apperr.As(err); ok {
		body := envelope{Message: e.Message, Errors: e.Fields}
		if len(e.Extra) > 0 {
			body.Data = e.Extra
		}
		if e.Kind == apperr.KindInternal {
			body.Message = "Server Error"
		}
		return e.Status(), body
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		} else if he.Message != nil {
			message = fmt.Sprint(he.Message)
		}
		return he.Code, envelope{Message: message}
	}

	switch {
	case errors.Is(err, token.ErrWrongKind):
		return http.StatusForbidden, envelope{Message: "This token is not valid for this endpoint"}
	case errors.Is(err, token.ErrInvalidToken), errors.Is(err, token.ErrRevoked):
		return http.StatusUnauthorized, envelope{Message: "Unauthenticated"}
	}

	return http.StatusInternalServerError, envelope{Message: "Server Error"}
}
