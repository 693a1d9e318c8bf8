// Package feeds retrieves and normalizes the feeds that are being watched
package feeds

import (
	"feedwatch/config"
	"feedwatch/models"
	"time"
)

// Descriptor is the immutable description of a watched feed
type Descriptor struct {
	Name       string
	URL        string
	Interval   time.Duration
	RetryLimit int
	Tags       []string
}

// DescriptorFromConfig applies the config defaults to a named input
func DescriptorFromConfig(name string, input config.Input) Descriptor {
	return Descriptor{
		Name:       name,
		URL:        input.URL,
		Interval:   input.PollInterval(),
		RetryLimit: input.Retries(),
		Tags:       input.TagList(),
	}
}

// Document is a fetched feed with its entries in source order, newest first
type Document struct {
	Title   string
	Entries []models.Entry
}
