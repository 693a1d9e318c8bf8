// Package shutdown broadcasts a single stop request to every watcher
package shutdown

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"

	log "github.com/sirupsen/logrus"
)

// Coordinator is a one-shot broadcast. Channels returned by Subscribe are
// closed together by the first call to Shutdown; subscribing after that
// yields an already closed channel.
type Coordinator struct {
	once sync.Once
	done chan struct{}
}

func New() *Coordinator {
	return &Coordinator{done: make(chan struct{})}
}

// Subscribe returns a channel that is closed on shutdown
func (c *Coordinator) Subscribe() <-chan struct{} {
	return c.done
}

// Shutdown broadcasts the stop request. Only the first call has an effect.
func (c *Coordinator) Shutdown() {
	c.once.Do(func() {
		close(c.done)
	})
}

// Stopping reports whether shutdown has been requested
func (c *Coordinator) Stopping() bool {
	select {
	case <-c.done:
		return true
	default:
		return false
	}
}

// ListenForSignals registers for SIGINT and SIGTERM before it returns and
// broadcasts shutdown when one arrives. The listener stops when a signal
// arrives, when shutdown was requested elsewhere, or when ctx ends; the
// returned channel is closed at that point.
func (c *Coordinator) ListenForSignals(ctx context.Context) <-chan struct{} {
	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		defer signal.Stop(signals)
		c.wait(ctx, signals)
	}()
	return stopped
}

func (c *Coordinator) wait(ctx context.Context, signals <-chan os.Signal) {
	select {
	case sig := <-signals:
		log.WithFields(log.Fields{
			"signal": sig.String(),
		}).Info("Gracefully shutting down...")
		c.Shutdown()
	case <-c.done:
	case <-ctx.Done():
	}
}
