// Package server exposes health and prometheus metrics over HTTP
package server

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

type ServerConfig struct {
	// Names of the watched feeds, reported by the health endpoint
	Feeds []string

	// Reports whether the process is shutting down
	Stopping func() bool
}

type health struct {
	Status string   `json:"status"`
	Feeds  []string `json:"feeds"`
}

// Returns a fiber.App serving /healthz and /metrics
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})

	// Middleware to track the latency of each request
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		log.WithFields(log.Fields{
			"method":  c.Method(),
			"route":   c.Route().Path,
			"status":  c.Response().StatusCode(),
			"latency": time.Since(start),
		}).Debug("Request")
		return err
	})

	app.Use(requestid.New(requestid.ConfigDefault))
	app.Use(compress.New())

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if config.Stopping != nil && config.Stopping() {
			return c.Status(fiber.StatusServiceUnavailable).JSON(health{
				Status: "stopping",
				Feeds:  config.Feeds,
			})
		}
		return c.JSON(health{Status: "ok", Feeds: config.Feeds})
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	return app
}

// Serve listens on addr until ctx is done
func Serve(ctx context.Context, app *fiber.App, addr string) error {
	errs := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{
			"address": addr,
		}).Info("Starting metrics server")
		errs <- app.Listen(addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
		log.Info("Stopping metrics server")
		return app.ShutdownWithTimeout(5 * time.Second)
	}
}
