package watcher

import (
	"context"
	"feedwatch/config"
	"feedwatch/feeds"
	"feedwatch/outputs"
	"feedwatch/shutdown"
	"fmt"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Orchestrator runs a set of independent watchers that share one shutdown
// signal.
type Orchestrator struct {
	members []member
}

type member struct {
	watcher  *Watcher
	shutdown <-chan struct{}
}

// Dependencies are the collaborators shared by every watcher
type Dependencies struct {
	Fetcher     Fetcher
	Outputs     outputs.Builder
	Coordinator *shutdown.Coordinator
	Options     Options
}

// Build creates one watcher per configured feed with its resolved outputs
func Build(cfg *config.Config, deps Dependencies) (*Orchestrator, error) {
	o := &Orchestrator{}

	for _, name := range cfg.InputNames() {
		feed := feeds.DescriptorFromConfig(name, cfg.Inputs[name])

		sinks, err := outputs.Resolve(feed.Name, feed.Tags, cfg.Outputs, deps.Outputs)
		if err != nil {
			return nil, fmt.Errorf("feed %s: %w", name, err)
		}
		if len(sinks) == 0 {
			log.WithFields(log.Fields{
				"feed": name,
				"tags": feed.Tags,
			}).Warn("No outputs configured for feed")
		}

		o.Add(New(feed, deps.Fetcher, sinks, deps.Options), deps.Coordinator.Subscribe())
	}

	return o, nil
}

// Add registers a watcher together with the shutdown channel it observes
func (o *Orchestrator) Add(w *Watcher, shutdown <-chan struct{}) {
	o.members = append(o.members, member{watcher: w, shutdown: shutdown})
}

// Len returns the number of watchers
func (o *Orchestrator) Len() int {
	return len(o.members)
}

// Run starts every watcher and waits for all of them to return. A failing
// watcher does not stop the others; the first error is returned once every
// watcher has finished.
func (o *Orchestrator) Run(ctx context.Context) error {
	var g errgroup.Group

	for _, m := range o.members {
		g.Go(func() error {
			name := m.watcher.Name()
			logger := log.WithFields(log.Fields{"feed": name})

			logger.Info("Start watcher")
			if err := m.watcher.Run(ctx, m.shutdown); err != nil {
				logger.WithFields(log.Fields{
					"error": err,
				}).Error("Watcher stopped with an error")
				return fmt.Errorf("watcher for %q: %w", name, err)
			}
			logger.Info("Watcher has stopped")
			return nil
		})
	}

	return g.Wait()
}
