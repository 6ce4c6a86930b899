// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package events carries domain events from the request path to background
// consumers over an in-process pub/sub.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
)

// TopicProductOutOfStock receives ProductOutOfStock events.
const TopicProductOutOfStock = "product.out_of_stock"

// ProductOutOfStock is emitted after an update moved a product's stock from
// above zero to zero or below.
type ProductOutOfStock struct {
	ProductID   int64  `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int64  `json:"stock"`
}

// Bus publishes events and routes them to registered handlers.
type Bus struct {
	pubsub *gochannel.GoChannel
	router *message.Router
}

// NewBus creates a bus logging through logger.
func NewBus(logger *slog.Logger) (*Bus, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	pubsub := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: 64,
	}, wmLogger)

	router, err := message.NewRouter(message.RouterConfig{
		CloseTimeout: 30 * time.Second,
	}, wmLogger)
	if err != nil {
		return nil, fmt.Errorf("create event router: %w", err)
	}

	router.AddMiddleware(
		middleware.Recoverer,
		middleware.Retry{
			MaxRetries:      3,
			InitialInterval: 100 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
	)

	return &Bus{pubsub: pubsub, router: router}, nil
}

// PublishOutOfStock emits a ProductOutOfStock event.
func (b *Bus) PublishOutOfStock(ctx context.Context, evt ProductOutOfStock) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := b.pubsub.Publish(TopicProductOutOfStock, msg); err != nil {
		return fmt.Errorf("publish %s: %w", TopicProductOutOfStock, err)
	}

	slog.DebugContext(ctx, "event_published", "topic", TopicProductOutOfStock, "product_id", evt.ProductID)
	return nil
}

// OnOutOfStock registers fn as a consumer of ProductOutOfStock events. It
// must be called before Run. A returned error triggers redelivery.
func (b *Bus) OnOutOfStock(name string, fn func(ctx context.Context, evt ProductOutOfStock) error) {
	b.router.AddConsumerHandler(name, TopicProductOutOfStock, b.pubsub, func(msg *message.Message) error {
		var evt ProductOutOfStock
		if err := json.Unmarshal(msg.Payload, &evt); err != nil {
			// Malformed payloads cannot succeed on retry.
			slog.Error("event_decode_failed", "topic", TopicProductOutOfStock, "message", msg.UUID, "error", err)
			return nil
		}
		return fn(msg.Context(), evt)
	})
}

// Run starts the router and blocks until ctx is cancelled or Close is called.
func (b *Bus) Run(ctx context.Context) error {
	return b.router.Run(ctx)
}

// Running is closed once all handlers are subscribed.
func (b *Bus) Running() chan struct{} {
	return b.router.Running()
}

// Close stops the router, waiting for in-flight handlers, and the pub/sub.
func (b *Bus) Close() error {
	if err := b.router.Close(); err != nil {
		return err
	}
	return b.pubsub.Close()
}
