// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package challenge issues the short-lived tickets that bridge the password
// step and the two-factor step of a login.
package challenge

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/securecookie"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

const (
	// DefaultTTL is used when the configured lifetime is not positive.
	DefaultTTL = 5 * time.Minute

	ticketName = "two_factor_challenge"
)

var (
	ErrInvalidTicket = errors.New("invalid two-factor challenge")
	ErrExpired       = errors.New("two-factor challenge expired")
)

type ticket struct {
	Kind     models.PrincipalKind `json:"k"`
	ID       int64                `json:"i"`
	IssuedAt int64                `json:"t"`
}

// Manager signs and encrypts challenge tickets.
type Manager struct {
	codec *securecookie.SecureCookie
	ttl   time.Duration
	now   func() time.Time
}

// NewManager creates a Manager from the auth configuration. An empty hash
// key is replaced by a random one, so tickets do not survive a restart.
func NewManager(cfg *config.AuthConfig) (*Manager, error) {
	var hashKey []byte
	if cfg.ChallengeHashKey == "" {
		slog.Warn("no challenge hash key configured, generating a random one")
		hashKey = securecookie.GenerateRandomKey(32)
	} else {
		var err error
		hashKey, err = decodeKey(cfg.ChallengeHashKey, "hash")
		if err != nil {
			return nil, err
		}
	}

	var blockKey []byte
	if cfg.ChallengeBlockKey != "" {
		var err error
		blockKey, err = decodeKey(cfg.ChallengeBlockKey, "block")
		if err != nil {
			return nil, err
		}
	}

	ttl := cfg.ChallengeTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.MaxAge(int(ttl.Seconds()))
	codec.SetSerializer(securecookie.JSONEncoder{})

	return &Manager{codec: codec, ttl: ttl, now: time.Now}, nil
}

func decodeKey(value, name string) ([]byte, error) {
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("invalid challenge %s key: %w", name, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("challenge %s key must be 32 bytes, got %d", name, len(key))
	}
	return key, nil
}

// TTL returns how long an issued ticket stays valid.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue returns a ticket for ref.
func (m *Manager) Issue(ref models.PrincipalRef) (string, error) {
	value, err := m.codec.Encode(ticketName, ticket{
		Kind:     ref.Kind,
		ID:       ref.ID,
		IssuedAt: m.now().Unix(),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode challenge: %w", err)
	}
	return value, nil
}

// Verify decodes a ticket and returns the principal it was issued for.
func (m *Manager) Verify(value string) (models.PrincipalRef, error) {
	var t ticket
	if err := m.codec.Decode(ticketName, value, &t); err != nil {
		return models.PrincipalRef{}, ErrInvalidTicket
	}

	if m.now().Sub(time.Unix(t.IssuedAt, 0)) > m.ttl {
		return models.PrincipalRef{}, ErrExpired
	}
	if !t.Kind.Valid() || t.ID <= 0 {
		return models.PrincipalRef{}, ErrInvalidTicket
	}
	return models.PrincipalRef{Kind: t.Kind, ID: t.ID}, nil
}
