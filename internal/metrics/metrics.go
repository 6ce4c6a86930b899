// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OTPIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "shop_otp_issued_total",
		Help: "Email verification codes issued.",
	})

	OTPVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_otp_verifications_total",
		Help: "Email verification attempts by result.",
	}, []string{"result"}) // success, expired, invalid

	Logins = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_logins_total",
		Help: "Password logins by principal kind and result.",
	}, []string{"kind", "result"})

	TwoFactorChecks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_two_factor_checks_total",
		Help: "TOTP code checks by result.",
	}, []string{"result"})

	TokensIssued = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_tokens_issued_total",
		Help: "Session tokens issued by principal kind.",
	}, []string{"kind"})

	NotificationsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_notifications_stored_total",
		Help: "Inbox records persisted by principal kind.",
	}, []string{"kind"})

	PushBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "shop_push_batches_total",
		Help: "Push gateway batches by outcome.",
	}, []string{"outcome"}) // delivered, failed, degraded

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_sse_clients",
		Help: "Open notification stream connections.",
	})

	StreamTokens = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_sse_tokens",
		Help: "Distinct session tokens with an open notification stream.",
	})

	StreamPrincipals = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "shop_sse_principals",
		Help: "Distinct customers and admins with an open notification stream.",
	})
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultExpired = "expired"
	ResultInvalid = "invalid"
)
