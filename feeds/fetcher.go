package feeds

import (
	"context"
	"feedwatch/models"
	"fmt"
	"net/http"

	"github.com/mmcdole/gofeed"
	log "github.com/sirupsen/logrus"
)

// Fetcher downloads and parses RSS, Atom and JSON feeds
type Fetcher struct {
	client    *http.Client
	userAgent string
}

func NewFetcher(client *http.Client, userAgent string) *Fetcher {
	return &Fetcher{client: client, userAgent: userAgent}
}

// Fetch retrieves the feed at url. Timeouts and connection failures are
// reported as transient; everything else is final.
func (f *Fetcher) Fetch(ctx context.Context, url string) (*Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err}
	}
	if f.userAgent != "" {
		req.Header.Set("User-Agent", f.userAgent)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &FetchError{URL: url, Err: err, Transient: isTransportFailure(err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{
			URL:        url,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("%s", resp.Status),
		}
	}

	// gofeed parsers keep per-document state, so one per fetch
	feed, err := gofeed.NewParser().Parse(resp.Body)
	if err != nil {
		if isTransportFailure(err) {
			return nil, &FetchError{URL: url, Err: err, Transient: true}
		}
		return nil, &FetchError{URL: url, Err: fmt.Errorf("%w: %v", ErrParse, err)}
	}

	log.WithFields(log.Fields{
		"url":     url,
		"title":   feed.Title,
		"entries": len(feed.Items),
	}).Debug("Fetched feed")

	return &Document{
		Title:   feed.Title,
		Entries: convertItems(feed.Items),
	}, nil
}

func convertItems(items []*gofeed.Item) []models.Entry {
	entries := make([]models.Entry, 0, len(items))
	for _, item := range items {
		entries = append(entries, convertItem(item))
	}
	return entries
}

func convertItem(item *gofeed.Item) models.Entry {
	entry := models.Entry{
		Title:       models.PlainText(item.Title),
		Description: models.Describe(item.Description, item.Content),
		URL:         item.Link,
	}

	if entry.URL == "" && len(item.Links) > 0 {
		entry.URL = item.Links[0]
	}

	if item.Author != nil && item.Author.Name != "" {
		entry.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		entry.Author = item.Authors[0].Name
	}

	// Atom feeds frequently carry only <updated>
	if item.PublishedParsed != nil {
		entry.Published = item.PublishedParsed.UTC()
	} else if item.UpdatedParsed != nil {
		entry.Published = item.UpdatedParsed.UTC()
	}

	return entry
}
