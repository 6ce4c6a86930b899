// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	altsrc "github.com/urfave/cli-altsrc/v3"
	"github.com/urfave/cli-altsrc/v3/toml"
	"github.com/urfave/cli/v3"
)

var (
	configPath = "config.toml"
	configFile = altsrc.NewStringPtrSourcer(&configPath)
)

type Config struct { //nolint:govet // fieldalignment not critical for config structs
	Server    ServerConfig
	Log       LogConfig
	Database  DatabaseConfig
	Auth      AuthConfig
	SMTP      SMTPConfig
	Push      PushConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct { //nolint:govet // fieldalignment not critical for config structs
	Host        string
	Port        int
	BaseURL     string
	MaxBodySize int // in MB
}

type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // text, json
}

type DatabaseConfig struct {
	DSN string
}

// AuthConfig holds the credentials and lifetimes used by the token,
// one-time-code and two-factor services.
type AuthConfig struct { //nolint:govet // fieldalignment not critical
	Issuer            string        // TOTP issuer and JWT iss claim
	SigningSecret     string        // HS256 secret for session tokens
	TokenTTL          time.Duration // Session token lifetime
	RefreshGrace      time.Duration // How long an expired token may still be refreshed
	CodeTTL           time.Duration // One-time code lifetime
	ChallengeTTL      time.Duration // Two-factor login ticket lifetime
	ChallengeHashKey  string        // 32-byte hex string for HMAC signing
	ChallengeBlockKey string        // 32-byte hex string for AES encryption (optional)
}

type SMTPConfig struct { //nolint:govet // fieldalignment not critical
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
	TLS      bool
}

// PushConfig configures the FCM push gateway. An empty ServerKey disables push.
type PushConfig struct { //nolint:govet // fieldalignment not critical
	ServerKey string
	Endpoint  string
	BatchSize int
	Timeout   time.Duration
}

type RateLimitConfig struct {
	Rate  float64 // requests per second per client on auth routes
	Burst int
}

func NewFromCLI(cmd *cli.Command) *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:        cmd.String("host"),
			Port:        int(cmd.Int("port")),
			BaseURL:     cmd.String("base-url"),
			MaxBodySize: int(cmd.Int("max-body-size")),
		},
		Log: LogConfig{
			Level:  cmd.String("log-level"),
			Format: cmd.String("log-format"),
		},
		Database: DatabaseConfig{
			DSN: cmd.String("database-dsn"),
		},
		Auth: AuthConfig{
			Issuer:            cmd.String("app-name"),
			SigningSecret:     cmd.String("jwt-secret"),
			TokenTTL:          cmd.Duration("token-ttl"),
			RefreshGrace:      cmd.Duration("token-refresh-grace"),
			CodeTTL:           cmd.Duration("otp-ttl"),
			ChallengeTTL:      cmd.Duration("challenge-ttl"),
			ChallengeHashKey:  cmd.String("challenge-hash-key"),
			ChallengeBlockKey: cmd.String("challenge-block-key"),
		},
		SMTP: SMTPConfig{
			Host:     cmd.String("smtp-host"),
			Port:     int(cmd.Int("smtp-port")),
			Username: cmd.String("smtp-username"),
			Password: cmd.String("smtp-password"),
			From:     cmd.String("smtp-from"),
			FromName: cmd.String("smtp-from-name"),
			TLS:      cmd.Bool("smtp-tls"),
		},
		Push: PushConfig{
			ServerKey: cmd.String("fcm-server-key"),
			Endpoint:  cmd.String("fcm-endpoint"),
			BatchSize: int(cmd.Int("fcm-batch-size")),
			Timeout:   cmd.Duration("fcm-timeout"),
		},
		RateLimit: RateLimitConfig{
			Rate:  cmd.Float("auth-rate-limit"),
			Burst: int(cmd.Int("auth-rate-burst")),
		},
	}

	if cfg.Server.BaseURL == "" {
		cfg.Server.BaseURL = buildBaseURL(cfg)
	}

	return cfg
}

func buildBaseURL(cfg *Config) string {
	host := cfg.Server.Host
	port := cfg.Server.Port

	scheme := "https"
	if IsLocalhost(host) {
		scheme = "http"
	}

	// Hide default ports in URL
	if (scheme == "http" && port == 80) || (scheme == "https" && port == 443) {
		return fmt.Sprintf("%s://%s", scheme, host)
	}
	return fmt.Sprintf("%s://%s:%d", scheme, host, port)
}

// IsLocalhost checks if the host is a localhost address.
func IsLocalhost(host string) bool {
	switch host {
	case "", "localhost", "127.0.0.1", "::1":
		return true
	}
	// Check for *.localhost subdomains (e.g., app.localhost)
	return strings.HasSuffix(host, ".localhost")
}

// IsDevelopment reports whether the configured base URL points at localhost.
func (c *Config) IsDevelopment() bool {
	u, err := url.Parse(c.Server.BaseURL)
	if err != nil {
		return false
	}
	return IsLocalhost(u.Hostname())
}

// EnsureSecrets fills in missing signing material. In development random
// values are generated so the server starts without setup; elsewhere a
// missing secret is an error.
func (c *Config) EnsureSecrets() error {
	dev := c.IsDevelopment()

	if c.Auth.SigningSecret == "" {
		if !dev {
			return errors.New("jwt secret is required outside development")
		}
		secret, err := randomHex(32)
		if err != nil {
			return err
		}
		c.Auth.SigningSecret = secret
		slog.Warn("generated ephemeral jwt secret, tokens will not survive a restart")
	}

	if c.Auth.ChallengeHashKey == "" {
		if !dev {
			return errors.New("challenge hash key is required outside development")
		}
		key, err := randomHex(32)
		if err != nil {
			return err
		}
		c.Auth.ChallengeHashKey = key
		slog.Warn("generated ephemeral challenge hash key")
	}

	return nil
}

func randomHex(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

func Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "config",
			Value:       "config.toml",
			Aliases:     []string{"c"},
			Usage:       "Path to the TOML configuration file",
			Destination: &configPath,
			Sources:     cli.EnvVars("CONFIG"),
		},
		&cli.StringFlag{
			Name:    "host",
			Value:   "localhost",
			Usage:   "Host to bind to",
			Sources: cli.NewValueSourceChain(cli.EnvVar("HOST"), toml.TOML("server.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "port",
			Value:   8080,
			Usage:   "Port to listen on",
			Sources: cli.NewValueSourceChain(cli.EnvVar("PORT"), toml.TOML("server.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "base-url",
			Usage:   "Base URL for the application",
			Sources: cli.NewValueSourceChain(cli.EnvVar("BASE_URL"), toml.TOML("server.base_url", configFile)),
		},
		&cli.IntFlag{
			Name:    "max-body-size",
			Value:   1,
			Usage:   "Maximum request body size in MB",
			Sources: cli.NewValueSourceChain(cli.EnvVar("MAX_BODY_SIZE"), toml.TOML("server.max_body_size", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-level",
			Value:   "info",
			Usage:   "Log level (debug, info, warn, error)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_LEVEL"), toml.TOML("log.level", configFile)),
		},
		&cli.StringFlag{
			Name:    "log-format",
			Value:   "text",
			Usage:   "Log format (text, json)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("LOG_FORMAT"), toml.TOML("log.format", configFile)),
		},
		&cli.StringFlag{
			Name:    "database-dsn",
			Value:   "./data/shop.db",
			Usage:   "Database DSN",
			Sources: cli.NewValueSourceChain(cli.EnvVar("DATABASE_DSN"), toml.TOML("database.dsn", configFile)),
		},
		// Auth flags
		&cli.StringFlag{
			Name:    "app-name",
			Value:   "Shop App",
			Usage:   "Application name used as TOTP issuer and token issuer",
			Sources: cli.NewValueSourceChain(cli.EnvVar("APP_NAME"), toml.TOML("auth.app_name", configFile)),
		},
		&cli.StringFlag{
			Name:    "jwt-secret",
			Usage:   "Session token signing secret (auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_SECRET"), toml.TOML("auth.jwt_secret", configFile)),
		},
		&cli.DurationFlag{
			Name:    "token-ttl",
			Value:   time.Hour,
			Usage:   "Session token lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_TTL"), toml.TOML("auth.token_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "token-refresh-grace",
			Value:   14 * 24 * time.Hour,
			Usage:   "How long after expiry a session token can still be refreshed",
			Sources: cli.NewValueSourceChain(cli.EnvVar("JWT_REFRESH_GRACE"), toml.TOML("auth.refresh_grace", configFile)),
		},
		&cli.DurationFlag{
			Name:    "otp-ttl",
			Value:   10 * time.Minute,
			Usage:   "Email verification code lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("OTP_TTL"), toml.TOML("auth.otp_ttl", configFile)),
		},
		&cli.DurationFlag{
			Name:    "challenge-ttl",
			Value:   5 * time.Minute,
			Usage:   "Two-factor login challenge lifetime",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CHALLENGE_TTL"), toml.TOML("auth.challenge_ttl", configFile)),
		},
		&cli.StringFlag{
			Name:    "challenge-hash-key",
			Usage:   "Challenge ticket hash key (32-byte hex, auto-generated if empty in dev)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CHALLENGE_HASH_KEY"), toml.TOML("auth.challenge_hash_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "challenge-block-key",
			Usage:   "Challenge ticket block key for encryption (32-byte hex, optional)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("CHALLENGE_BLOCK_KEY"), toml.TOML("auth.challenge_block_key", configFile)),
		},
		// SMTP flags
		&cli.StringFlag{
			Name:    "smtp-host",
			Usage:   "SMTP server host (emails are logged when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_HOST"), toml.TOML("smtp.host", configFile)),
		},
		&cli.IntFlag{
			Name:    "smtp-port",
			Value:   587,
			Usage:   "SMTP server port",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PORT"), toml.TOML("smtp.port", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-username",
			Usage:   "SMTP username",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_USERNAME"), toml.TOML("smtp.username", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-password",
			Usage:   "SMTP password",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_PASSWORD"), toml.TOML("smtp.password", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from",
			Value:   "noreply@localhost",
			Usage:   "Sender address",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM"), toml.TOML("smtp.from", configFile)),
		},
		&cli.StringFlag{
			Name:    "smtp-from-name",
			Value:   "Shop App",
			Usage:   "Sender display name",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_FROM_NAME"), toml.TOML("smtp.from_name", configFile)),
		},
		&cli.BoolFlag{
			Name:    "smtp-tls",
			Value:   true,
			Usage:   "Require TLS for SMTP",
			Sources: cli.NewValueSourceChain(cli.EnvVar("SMTP_TLS"), toml.TOML("smtp.tls", configFile)),
		},
		// Push flags
		&cli.StringFlag{
			Name:    "fcm-server-key",
			Usage:   "FCM legacy server key (push disabled when empty)",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FCM_SERVER_KEY"), toml.TOML("push.server_key", configFile)),
		},
		&cli.StringFlag{
			Name:    "fcm-endpoint",
			Value:   "https://fcm.googleapis.com/fcm/send",
			Usage:   "FCM send endpoint",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FCM_ENDPOINT"), toml.TOML("push.endpoint", configFile)),
		},
		&cli.IntFlag{
			Name:    "fcm-batch-size",
			Value:   900,
			Usage:   "Maximum registration ids per push request",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FCM_BATCH_SIZE"), toml.TOML("push.batch_size", configFile)),
		},
		&cli.DurationFlag{
			Name:    "fcm-timeout",
			Value:   10 * time.Second,
			Usage:   "Timeout for a single push request",
			Sources: cli.NewValueSourceChain(cli.EnvVar("FCM_TIMEOUT"), toml.TOML("push.timeout", configFile)),
		},
		// Rate limit flags
		&cli.FloatFlag{
			Name:    "auth-rate-limit",
			Value:   5,
			Usage:   "Requests per second per client on authentication routes",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_RATE_LIMIT"), toml.TOML("ratelimit.rate", configFile)),
		},
		&cli.IntFlag{
			Name:    "auth-rate-burst",
			Value:   10,
			Usage:   "Burst size for authentication rate limiting",
			Sources: cli.NewValueSourceChain(cli.EnvVar("AUTH_RATE_BURST"), toml.TOML("ratelimit.burst", configFile)),
		},
	}
}
