// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/middleware"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

func setupRoutes(e *echo.Echo, app *App, cfg *config.Config) {
	h := app.Handlers
	limited := middleware.RateLimit(cfg.RateLimit)

	e.GET("/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	api := e.Group("/api")
	api.POST("/auth/2fa/challenge", h.TwoFactorChallenge, limited)

	// Customer API
	customerAuth := api.Group("/customer/auth", limited)
	customerAuth.POST("/register", h.Register)
	customerAuth.POST("/verify-otp", h.VerifyOTP)
	customerAuth.POST("/resend-otp", h.ResendOTP)
	customerAuth.POST("/login", h.CustomerLogin)
	customerAuth.POST("/refresh", h.Refresh(models.PrincipalCustomer))

	customer := api.Group("/customer", middleware.RequirePrincipal(app.Tokens, models.PrincipalCustomer))
	principalRoutes(customer, app)
	customer.GET("/settings", h.Settings)
	customer.PUT("/settings", h.UpdateSettings)

	// Admin API
	adminAuth := api.Group("/admin/auth", limited)
	adminAuth.POST("/login", h.AdminLogin)
	adminAuth.POST("/refresh", h.Refresh(models.PrincipalAdmin))

	admin := api.Group("/admin", middleware.RequirePrincipal(app.Tokens, models.PrincipalAdmin))
	principalRoutes(admin, app)
	admin.POST("/notifications/send", h.SendNotification)
	admin.GET("/products", h.Products)
	admin.POST("/products", h.CreateProduct)
	admin.GET("/products/:id", h.Product)
	admin.PUT("/products/:id", h.UpdateProduct)
}

// principalRoutes registers the routes both customers and admins have.
func principalRoutes(g *echo.Group, app *App) {
	h := app.Handlers

	g.GET("/auth/me", h.Me)
	g.POST("/auth/logout", h.Logout)
	g.POST("/auth/2fa/enable", h.EnableTwoFactor)
	g.POST("/auth/2fa/verify", h.VerifyTwoFactor)
	g.POST("/auth/2fa/disable", h.DisableTwoFactor)

	g.GET("/notifications", h.Notifications)
	g.GET("/notifications/stream", h.NotificationStream)
	g.POST("/notifications/read-all", h.MarkAllNotificationsRead)
	g.POST("/notifications/:id/read", h.MarkNotificationRead)

	g.POST("/devices", h.RegisterDevice)
}
