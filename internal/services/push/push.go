// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package push delivers notifications to device tokens through the FCM
// legacy HTTP API.
package push

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/goccy/go-json"
	"github.com/samber/lo"
	gobreaker "github.com/sony/gobreaker/v2"

	"codeberg.org/oliverandrich/go-shop-backend/internal/config"
	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
)

const (
	// MaxBatchSize is the gateway's registration id limit per request.
	MaxBatchSize = 900

	DefaultEndpoint = "https://fcm.googleapis.com/fcm/send"
	DefaultTimeout  = 10 * time.Second

	// maxErrorBody bounds how much of a failed response is logged.
	maxErrorBody = 4 << 10
)

// Message is the content shown on the device.
type Message struct {
	Title string
	Body  string
	Data  map[string]any
}

// Result summarizes a dispatch. Failed batches are counted, never returned
// as errors.
type Result struct {
	Batches   int `json:"batches"`
	Delivered int `json:"delivered"`
	Failed    int `json:"failed"`
}

type payload struct {
	RegistrationIDs []string       `json:"registration_ids"`
	Notification    notification   `json:"notification"`
	Data            map[string]any `json:"data"`
}

type notification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("push gateway returned %d", e.status)
}

// Client sends batched push requests.
type Client struct {
	serverKey string
	endpoint  string
	batchSize int
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker[struct{}]
}

// NewClient creates a push client. An empty server key yields a client
// whose Send is a no-op.
func NewClient(cfg *config.PushConfig) *Client {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	batchSize := cfg.BatchSize
	if batchSize <= 0 || batchSize > MaxBatchSize {
		batchSize = MaxBatchSize
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	// The breaker tracks gateway reachability. Only transport errors count
	// as failures; an HTTP error status means the gateway answered.
	breaker := gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "push-gateway",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			var se *statusError
			return err == nil || errors.As(err, &se)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit_breaker_state_change", "name", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		serverKey: cfg.ServerKey,
		endpoint:  endpoint,
		batchSize: batchSize,
		http:      &http.Client{Timeout: timeout},
		breaker:   breaker,
	}
}

// Enabled reports whether a server key is configured.
func (c *Client) Enabled() bool {
	return c.serverKey != ""
}

// Send posts msg to tokens in batches. A failed batch is logged and the
// remaining batches are still sent.
func (c *Client) Send(ctx context.Context, tokens []string, msg Message) Result {
	var res Result
	if !c.Enabled() || len(tokens) == 0 {
		return res
	}

	data := msg.Data
	if data == nil {
		data = map[string]any{}
	}

	for i, batch := range lo.Chunk(tokens, c.batchSize) {
		res.Batches++

		err := c.sendBatch(ctx, payload{
			RegistrationIDs: batch,
			Notification:    notification{Title: msg.Title, Body: msg.Body},
			Data:            data,
		})
		if err != nil {
			res.Failed += len(batch)
			c.logFailure(ctx, i, len(batch), err)
			continue
		}

		res.Delivered += len(batch)
		metrics.PushBatches.WithLabelValues("delivered").Inc()
	}

	slog.InfoContext(ctx, "push_dispatched",
		"batches", res.Batches,
		"delivered", res.Delivered,
		"failed", res.Failed,
	)
	return res
}

// sendBatch posts one batch. An open breaker never drops a batch: the
// request is still made, outside the breaker's accounting, and counted as
// degraded.
func (c *Client) sendBatch(ctx context.Context, p payload) error {
	_, err := c.breaker.Execute(func() (struct{}, error) {
		return struct{}{}, c.post(ctx, p)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.PushBatches.WithLabelValues("degraded").Inc()
		return c.post(ctx, p)
	}
	return err
}

func (c *Client) post(ctx context.Context, p payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encoding push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building push request: %w", err)
	}
	req.Header.Set("Authorization", "key="+c.serverKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("sending push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &statusError{status: resp.StatusCode, body: string(raw)}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func (c *Client) logFailure(ctx context.Context, batch, size int, err error) {
	var se *statusError
	switch {
	case errors.As(err, &se):
		metrics.PushBatches.WithLabelValues("failed").Inc()
		slog.ErrorContext(ctx, "push_batch_failed",
			"batch", batch,
			"tokens", size,
			"status", se.status,
			"body", se.body,
		)
	default:
		metrics.PushBatches.WithLabelValues("failed").Inc()
		slog.ErrorContext(ctx, "push_batch_failed", "batch", batch, "tokens", size, "error", err)
	}
}
