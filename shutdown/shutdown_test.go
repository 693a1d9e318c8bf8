package shutdown_test

import (
	"context"
	"feedwatch/shutdown"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestShutdownBroadcastsToAllSubscribers(t *testing.T) {
	c := shutdown.New()
	first := c.Subscribe()
	second := c.Subscribe()

	assert.False(t, closed(first))
	assert.False(t, c.Stopping())

	c.Shutdown()

	assert.True(t, closed(first))
	assert.True(t, closed(second))
	assert.True(t, c.Stopping())
}

func TestLateSubscriberSeesShutdown(t *testing.T) {
	c := shutdown.New()
	c.Shutdown()

	assert.True(t, closed(c.Subscribe()))
}

func TestShutdownIsIdempotent(t *testing.T) {
	c := shutdown.New()
	assert.NotPanics(t, func() {
		c.Shutdown()
		c.Shutdown()
	})
}

func TestListenForSignals(t *testing.T) {
	c := shutdown.New()
	stopped := c.ListenForSignals(context.Background())

	// The handler is in place once ListenForSignals returns, so an
	// immediate SIGTERM must not take the default action
	assert.NoError(t, syscall.Kill(syscall.Getpid(), syscall.SIGTERM))

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not return")
	}
	assert.True(t, c.Stopping())
}

func TestListenForSignalsStopsWithContext(t *testing.T) {
	c := shutdown.New()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := c.ListenForSignals(ctx)
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not return")
	}
	assert.False(t, c.Stopping())
}

func TestListenForSignalsStopsOnShutdown(t *testing.T) {
	c := shutdown.New()
	stopped := c.ListenForSignals(context.Background())
	c.Shutdown()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("listener did not return")
	}
}
