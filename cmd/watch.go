package cmd

import (
	"context"
	"feedwatch/config"
	"feedwatch/feeds"
	"feedwatch/outputs"
	"feedwatch/server"
	"feedwatch/shutdown"
	"feedwatch/watcher"
	"net/http"

	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

func watchCmd() *cli.Command {
	return &cli.Command{
		Name:  "watch",
		Usage: "Watch the configured feeds until interrupted",
		Description: `Starts one watcher per configured feed and pushes new entries
to the outputs configured for the feed name and its tags.

Stops gracefully on SIGINT or SIGTERM. A watcher that fails permanently is
stopped on its own; the process exits with status 1 once all watchers are
done if any of them failed.`,
		Flags: []cli.Flag{
			configFlag(),
			&cli.BoolFlag{
				Name:    "test-mode",
				Usage:   "Push the 3 newest entries of every feed on the first poll",
				EnvVars: []string{"FEEDWATCH_TEST_MODE"},
			},
			&cli.StringFlag{
				Name:    "listen",
				Usage:   "Address for the /metrics and /healthz endpoints, e.g. :9090",
				EnvVars: []string{"FEEDWATCH_LISTEN"},
			},
		},
		Action: func(ctx *cli.Context) error {
			// Signals are handled from here on, before any watcher exists
			coordinator := shutdown.New()
			signalCtx, stopSignals := context.WithCancel(ctx.Context)
			defer stopSignals()
			coordinator.ListenForSignals(signalCtx)

			cfg, err := config.LoadConfig(ctx.String("config"))
			if err != nil {
				return cli.Exit(err, 1)
			}

			client := httpClient(cfg)
			userAgent := userAgent(cfg)

			orchestrator, err := watcher.Build(cfg, watcher.Dependencies{
				Fetcher:     feeds.NewFetcher(client, userAgent),
				Outputs:     outputBuilder(client, userAgent),
				Coordinator: coordinator,
				Options:     watcher.Options{PushLatest: ctx.Bool("test-mode")},
			})
			if err != nil {
				return cli.Exit(err, 1)
			}

			serverCtx, stopServer := context.WithCancel(ctx.Context)
			defer stopServer()
			var serverStopped <-chan struct{}
			if addr := ctx.String("listen"); addr != "" {
				serverStopped = startMetricsServer(serverCtx, addr, &server.ServerConfig{
					Feeds:    cfg.InputNames(),
					Stopping: coordinator.Stopping,
				})
			}

			log.WithFields(log.Fields{
				"feeds": orchestrator.Len(),
			}).Info("Watching feeds")

			runErr := orchestrator.Run(ctx.Context)

			stopServer()
			if serverStopped != nil {
				<-serverStopped
			}

			if runErr != nil {
				return cli.Exit(runErr, 1)
			}

			log.Info("Done!")
			return nil
		},
	}
}

// startMetricsServer serves until ctx ends. A failure is logged as soon as it
// happens; the returned channel is closed once the server has stopped.
func startMetricsServer(ctx context.Context, addr string, serverConfig *server.ServerConfig) <-chan struct{} {
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		if err := server.Serve(ctx, server.Server(serverConfig), addr); err != nil {
			log.WithFields(log.Fields{
				"address": addr,
				"error":   err,
			}).Error("Metrics server failed")
		}
	}()
	return stopped
}

func httpClient(cfg *config.Config) *http.Client {
	return &http.Client{Timeout: cfg.HTTP.Timeout.Duration}
}

func userAgent(cfg *config.Config) string {
	if cfg.HTTP.UserAgent == "" {
		return config.DefaultUserAgent
	}
	return cfg.HTTP.UserAgent
}

func outputBuilder(client *http.Client, userAgent string) outputs.Builder {
	opts := outputs.Options{Client: client, UserAgent: userAgent}
	return func(out config.Output) (outputs.Sink, error) {
		return outputs.New(out, opts)
	}
}
