// Package watcher polls feeds on their own schedules and pushes new entries
// to the outputs resolved for each feed.
package watcher

import (
	"context"
	"feedwatch/feeds"
	"feedwatch/models"
	"feedwatch/outputs"
	"fmt"
	"time"

	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

// Number of entries pushed on the first poll when Options.PushLatest is set
const latestOnFirstPoll = 3

// Fetcher retrieves a feed document
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*feeds.Document, error)
}

// Options changes how a watcher treats its first poll
type Options struct {
	// PushLatest dispatches the newest entries on the first poll instead of
	// only recording them as the baseline. Meant for checking output setup.
	PushLatest bool
}

// State is the mutable part of a watcher. A zero LastSeen means no dated
// entry has been seen yet.
type State struct {
	RetriesLeft int
	LastSeen    time.Time
}

// Watcher owns the polling loop of a single feed. It is not safe for
// concurrent use; Run confines it to one goroutine.
type Watcher struct {
	feed    feeds.Descriptor
	fetcher Fetcher
	sinks   []outputs.Sink
	opts    Options
	state   State
	logger  *log.Entry
	// ticks returns the poll ticks and a function releasing them
	ticks func(time.Duration) (<-chan time.Time, func())
}

func newTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// New creates a watcher whose retry budget starts at feed.RetryLimit
func New(feed feeds.Descriptor, fetcher Fetcher, sinks []outputs.Sink, opts Options) *Watcher {
	w := &Watcher{
		feed:    feed,
		fetcher: fetcher,
		sinks:   sinks,
		opts:    opts,
		state:   State{RetriesLeft: feed.RetryLimit},
		logger:  log.WithFields(log.Fields{"feed": feed.Name}),
		ticks:   newTicker,
	}
	retriesLeft.WithLabelValues(feed.Name).Set(float64(feed.RetryLimit))
	return w
}

// Name returns the configured feed name
func (w *Watcher) Name() string {
	return w.feed.Name
}

// State returns a copy of the current state. It must not be called while
// Run is active on another goroutine.
func (w *Watcher) State() State {
	return w.state
}

// Run polls the feed immediately and then once per interval until shutdown
// is closed or a poll fails fatally. Shutdown is only observed between polls,
// so a fetch or dispatch in progress always completes.
func (w *Watcher) Run(ctx context.Context, shutdown <-chan struct{}) error {
	watchersRunning.Inc()
	defer watchersRunning.Dec()

	ticks, stop := w.ticks(w.feed.Interval)
	defer stop()

	for first := true; ; first = false {
		if !first {
			select {
			case <-shutdown:
				return nil
			case <-ticks:
			}
		}

		// Shutdown wins over a tick that was ready at the same time
		select {
		case <-shutdown:
			return nil
		default:
		}

		if err := w.Poll(ctx); err != nil {
			return err
		}
	}
}

// Poll performs one fetch, diff and dispatch cycle. A nil error means the
// watcher should keep running.
func (w *Watcher) Poll(ctx context.Context) error {
	doc, err := w.fetcher.Fetch(ctx, w.feed.URL)
	if err != nil {
		return w.fetchFailed(err)
	}

	newest, ok := lo.Find(doc.Entries, models.Entry.HasTimestamp)
	if !ok {
		polls.WithLabelValues(w.feed.Name, "empty").Inc()
		w.logger.WithFields(log.Fields{
			"entries": len(doc.Entries),
		}).Debug("No dated entries in feed")
		return nil
	}

	polls.WithLabelValues(w.feed.Name, "success").Inc()
	w.restoreRetries()

	baseline := w.state.LastSeen.IsZero()

	var fresh []models.Entry
	switch {
	case baseline && w.opts.PushLatest:
		dated := lo.Filter(doc.Entries, func(entry models.Entry, _ int) bool {
			return entry.HasTimestamp()
		})
		fresh = lo.Slice(dated, 0, latestOnFirstPoll)
	case baseline:
		w.logger.WithFields(log.Fields{
			"last_seen": newest.Published,
		}).Info("Recorded baseline")
	default:
		fresh = NewEntries(doc.Entries, w.state.LastSeen)
	}

	if len(fresh) == 0 && !baseline {
		return nil
	}

	if len(fresh) > 0 {
		if err := w.dispatch(ctx, doc.Title, fresh); err != nil {
			return err
		}
	}

	w.state.LastSeen = newest.Published
	lastSeen.WithLabelValues(w.feed.Name).Set(float64(newest.Published.Unix()))
	return nil
}

func (w *Watcher) fetchFailed(err error) error {
	if feeds.IsTransient(err) && w.state.RetriesLeft > 0 {
		w.state.RetriesLeft--
		retriesLeft.WithLabelValues(w.feed.Name).Set(float64(w.state.RetriesLeft))
		polls.WithLabelValues(w.feed.Name, "transient").Inc()

		w.logger.WithFields(log.Fields{
			"error":        err,
			"retries_left": w.state.RetriesLeft,
		}).Error("Error while getting items")
		return nil
	}

	polls.WithLabelValues(w.feed.Name, "fatal").Inc()
	if feeds.IsTransient(err) {
		return fmt.Errorf("retry limit of %d exhausted: %w", w.feed.RetryLimit, err)
	}
	return err
}

func (w *Watcher) restoreRetries() {
	if w.state.RetriesLeft != w.feed.RetryLimit {
		w.state.RetriesLeft = w.feed.RetryLimit
		retriesLeft.WithLabelValues(w.feed.Name).Set(float64(w.state.RetriesLeft))
	}
}

func (w *Watcher) dispatch(ctx context.Context, title string, entries []models.Entry) error {
	w.logger.WithFields(log.Fields{
		"entries": len(entries),
		"title":   title,
		"outputs": len(w.sinks),
	}).Debug("Pushing new entries")

	for _, sink := range w.sinks {
		if err := sink.Deliver(ctx, w.feed.Name, entries); err != nil {
			return fmt.Errorf("failed to push %d entries: %w", len(entries), err)
		}
	}

	entriesDispatched.WithLabelValues(w.feed.Name).Add(float64(len(entries)))
	return nil
}

// NewEntries returns the leading run of entries published after watermark,
// newest first. Undated entries are skipped; the scan stops at the first
// dated entry that is not newer than the watermark.
func NewEntries(entries []models.Entry, watermark time.Time) []models.Entry {
	var fresh []models.Entry
	for _, entry := range entries {
		if !entry.HasTimestamp() {
			continue
		}
		if !entry.Published.After(watermark) {
			break
		}
		fresh = append(fresh, entry)
	}
	return fresh
}
