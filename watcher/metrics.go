package watcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	polls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedwatch_polls_total",
		Help: "Number of feed polls per feed and result",
	}, []string{"feed", "result"})

	entriesDispatched = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feedwatch_entries_dispatched_total",
		Help: "Number of new entries handed to the outputs of a feed",
	}, []string{"feed"})

	retriesLeft = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feedwatch_retries_left",
		Help: "Remaining transient failures tolerated before a feed is stopped",
	}, []string{"feed"})

	lastSeen = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "feedwatch_last_seen_timestamp_seconds",
		Help: "Publish time of the newest entry seen for a feed",
	}, []string{"feed"})

	watchersRunning = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "feedwatch_watchers_running",
		Help: "The current number of running feed watchers",
	})
)
