// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package sse

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"codeberg.org/oliverandrich/go-shop-backend/internal/metrics"
	"codeberg.org/oliverandrich/go-shop-backend/internal/models"
)

var (
	customer1 = models.CustomerRef(1)
	customer2 = models.CustomerRef(2)
	admin1    = models.AdminRef(1)
)

func gauge(g prometheus.Gauge) int {
	return int(testutil.ToFloat64(g))
}

func receive(t *testing.T, ch chan string) string {
	t.Helper()
	select {
	case msg := <-ch:
		return msg
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected a message")
		return ""
	}
}

func assertSilent(t *testing.T, ch chan string) {
	t.Helper()
	select {
	case msg := <-ch:
		t.Fatalf("unexpected message %q", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHub_RegisterAndUnregister(t *testing.T) {
	hub := NewHub()

	ch := hub.Register("key1", customer1)
	assert.NotNil(t, ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, gauge(metrics.StreamTokens))
	assert.Equal(t, 1, gauge(metrics.StreamPrincipals))

	// Second tab with the same token
	ch2 := hub.Register("key1", customer1)
	assert.Equal(t, 2, hub.ClientCount())
	assert.Equal(t, 1, gauge(metrics.StreamTokens))

	hub.Unregister("key1", customer1, ch)
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, gauge(metrics.StreamTokens))

	hub.Unregister("key1", customer1, ch2)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, gauge(metrics.StreamTokens))
	assert.Equal(t, 0, gauge(metrics.StreamPrincipals))
}

func TestHub_KindsAreSeparate(t *testing.T) {
	hub := NewHub()

	// Same numeric id, different principal kinds.
	chCustomer := hub.Register("key1", customer1)
	chAdmin := hub.Register("key2", admin1)
	assert.Equal(t, 2, gauge(metrics.StreamPrincipals))

	hub.SendToPrincipal(admin1, "for-admin")

	assert.Equal(t, "for-admin", receive(t, chAdmin))
	assertSilent(t, chCustomer)

	hub.Unregister("key1", customer1, chCustomer)
	hub.Unregister("key2", admin1, chAdmin)
}

func TestHub_SendToKey(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register("key1", customer1)
	ch2 := hub.Register("key1", customer1)
	ch3 := hub.Register("key2", customer2)

	hub.SendToKey("key1", "hello")

	assert.Equal(t, "hello", receive(t, ch1))
	assert.Equal(t, "hello", receive(t, ch2))
	assertSilent(t, ch3)

	hub.Unregister("key1", customer1, ch1)
	hub.Unregister("key1", customer1, ch2)
	hub.Unregister("key2", customer2, ch3)
}

func TestHub_SendToPrincipal(t *testing.T) {
	hub := NewHub()

	ch1 := hub.Register("key1", customer1)
	ch2 := hub.Register("key2", customer1)
	ch3 := hub.Register("key3", customer2)

	hub.SendToPrincipal(customer1, "customer1-message")

	assert.Equal(t, "customer1-message", receive(t, ch1))
	assert.Equal(t, "customer1-message", receive(t, ch2))
	assertSilent(t, ch3)

	hub.Unregister("key1", customer1, ch1)
	hub.Unregister("key2", customer1, ch2)
	hub.Unregister("key3", customer2, ch3)
}

func TestHub_CloseKey(t *testing.T) {
	hub := NewHub()

	phone := hub.Register("token-phone", customer1)
	tab := hub.Register("token-phone", customer1)
	laptop := hub.Register("token-laptop", customer1)

	assert.Equal(t, 2, hub.CloseKey("token-phone"))

	for _, ch := range []chan string{phone, tab} {
		_, open := <-ch
		assert.False(t, open)
	}
	assert.Equal(t, 1, hub.ClientCount())
	assert.Equal(t, 1, gauge(metrics.StreamTokens))

	hub.SendToPrincipal(customer1, "still-here")
	assert.Equal(t, "still-here", receive(t, laptop))

	// The stream handlers unregister after their channel closed.
	hub.Unregister("token-phone", customer1, phone)
	hub.Unregister("token-phone", customer1, tab)
	hub.Unregister("token-laptop", customer1, laptop)
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, 0, gauge(metrics.StreamPrincipals))
	assert.Equal(t, 0, hub.CloseKey("unknown"))
}

func TestHub_PublishNotification(t *testing.T) {
	hub := NewHub()
	ch := hub.Register("key1", admin1)

	hub.PublishNotification(&models.Notification{
		ID:        "n-1",
		OwnerKind: models.PrincipalAdmin,
		OwnerID:   1,
		Title:     "Product out of stock",
		Body:      "Mug is out of stock.",
		Type:      models.NotificationTypeStockAlert,
	})

	msg := receive(t, ch)
	assert.True(t, strings.HasPrefix(msg, "event: notification\ndata: {"))
	assert.Contains(t, msg, `"title":"Product out of stock"`)

	hub.Unregister("key1", admin1, ch)
}

func TestHub_NonBlockingSend(t *testing.T) {
	hub := NewHub()

	ch := hub.Register("key1", customer1)

	// Fill the channel buffer (size 10)
	for range 10 {
		hub.SendToKey("key1", "msg")
	}

	done := make(chan bool)
	go func() {
		hub.SendToKey("key1", "overflow")
		done <- true
	}()

	select {
	case <-done:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("SendToKey blocked on full channel")
	}

	hub.Unregister("key1", customer1, ch)
}

func TestHub_ConcurrentAccess(t *testing.T) {
	hub := NewHub()

	var wg sync.WaitGroup
	const numGoroutines = 100

	channels := make([]chan string, numGoroutines)
	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			channels[idx] = hub.Register("key", customer1)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, numGoroutines, hub.ClientCount())

	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			hub.SendToPrincipal(customer1, "concurrent")
		}()
	}
	wg.Wait()

	for i := range numGoroutines {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			hub.Unregister("key", customer1, channels[idx])
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, hub.ClientCount())
}
