// Package outputs delivers batches of new feed entries to notification
// sinks: Discord webhooks and bots, Slack, Bluesky and external commands.
package outputs

import (
	"context"
	"feedwatch/config"
	"feedwatch/models"
	"fmt"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// batchSize is the most entries sent in one outbound call for protocols that
// cap the number of embeds or blocks per message.
const batchSize = 10

var deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "feedwatch_deliveries_total",
	Help: "Number of Deliver calls per output type and result",
}, []string{"type", "result"})

// Sink receives the new entries of a feed. Entries are never empty and are
// ordered newest first.
type Sink interface {
	Deliver(ctx context.Context, feedName string, entries []models.Entry) error
}

// Options carries what sinks share between each other
type Options struct {
	Client    *http.Client
	UserAgent string
}

// New builds the sink described by cfg
func New(cfg config.Output, opts Options) (Sink, error) {
	var sink Sink
	switch cfg.Type {
	case config.TypeDiscordWebhook:
		sink = NewDiscordWebhook(cfg.URL, opts)
	case config.TypeDiscordBot:
		bot, err := NewDiscordBot(cfg.Token, cfg.UserID, cfg.APIURL, opts)
		if err != nil {
			return nil, err
		}
		sink = bot
	case config.TypeSlack:
		sink = NewSlack(cfg.URL, opts)
	case config.TypeCustom:
		sink = NewCustom(cfg.Command, cfg.Arguments, cfg.UseStdin)
	case config.TypeBluesky:
		sink = NewBluesky(cfg.Host, cfg.Identifier, cfg.Password, opts)
	default:
		return nil, fmt.Errorf("unknown output type %q", cfg.Type)
	}
	return &instrumented{kind: cfg.Type, sink: sink}, nil
}

// instrumented counts delivery outcomes for a sink
type instrumented struct {
	kind string
	sink Sink
}

func (i *instrumented) Deliver(ctx context.Context, feedName string, entries []models.Entry) error {
	err := i.sink.Deliver(ctx, feedName, entries)
	result := "success"
	if err != nil {
		result = "failure"
	}
	deliveries.WithLabelValues(i.kind, result).Inc()
	if err != nil {
		return fmt.Errorf("%s output: %w", i.kind, err)
	}
	return nil
}

func (i *instrumented) String() string {
	return i.kind
}

// entryTitle prefixes the entry title with the feed it came from
func entryTitle(feedName string, entry models.Entry) string {
	if entry.Title == "" {
		return feedName
	}
	return feedName + " - " + entry.Title
}
