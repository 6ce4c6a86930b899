// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"codeberg.org/oliverandrich/go-shop-backend/internal/database"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
	"codeberg.org/oliverandrich/go-shop-backend/internal/repository"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// TestPassword is the plaintext password of fixtures created here.
const TestPassword = "correct-horse-battery"

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

func hashPassword(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

// NewTestCustomer creates an unverified, active customer.
func NewTestCustomer(t *testing.T, repo *repository.Repository, email string) *models.Customer {
	t.Helper()
	customer, err := repo.CreateCustomer(context.Background(), "Test Customer", email, hashPassword(t))
	require.NoError(t, err)
	return customer
}

// NewVerifiedCustomer creates an active customer with a confirmed email.
func NewVerifiedCustomer(t *testing.T, repo *repository.Repository, email string) *models.Customer {
	t.Helper()
	ctx := context.Background()
	customer := NewTestCustomer(t, repo, email)
	require.NoError(t, repo.MarkCustomerVerified(ctx, customer.ID, time.Now()))
	customer, err := repo.GetCustomerByID(ctx, customer.ID)
	require.NoError(t, err)
	return customer
}

// NewTestAdmin creates an admin without two-factor authentication.
func NewTestAdmin(t *testing.T, repo *repository.Repository, email string) *models.Admin {
	t.Helper()
	admin, err := repo.CreateAdmin(context.Background(), "Test Admin", email, hashPassword(t), []string{"super_admin"})
	require.NoError(t, err)
	return admin
}

// NewTestProduct creates an active product with the given stock.
func NewTestProduct(t *testing.T, repo *repository.Repository, name string, stock int64) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Slug: name, PriceCents: 1000, Stock: stock, IsActive: true}
	require.NoError(t, repo.CreateProduct(context.Background(), p))
	return p
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewRequest creates an HTTP request for testing.
func NewRequest(method, path string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	return req
}
