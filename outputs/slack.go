package outputs

import (
	"context"
	"errors"
	"feedwatch/models"

	"github.com/cenkalti/backoff/v4"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

const (
	slackDateFormat   = "02 Jan 2006 03:04 PM MST"
	slackHeaderLength = 150
)

func plainText(text string, emoji bool) *slack.TextBlockObject {
	return slack.NewTextBlockObject(slack.PlainTextType, text, emoji, false)
}

// slackBlocks renders one entry as header, section with link, date and divider
func slackBlocks(feedName string, entry models.Entry) []slack.Block {
	sectionText := entry.Description
	if sectionText == "" {
		sectionText = entry.Title
	}
	if sectionText == "" {
		sectionText = entry.URL
	}

	button := slack.NewButtonBlockElement("button-action", "", plainText(":link: Open", true))
	button.URL = entry.URL

	return []slack.Block{
		slack.NewHeaderBlock(plainText(models.Truncate(entryTitle(feedName, entry), slackHeaderLength), false)),
		slack.NewSectionBlock(plainText(sectionText, false), nil, slack.NewAccessory(button)),
		slack.NewContextBlock("", plainText(entry.Published.Format(slackDateFormat), false)),
		slack.NewDividerBlock(),
	}
}

// Slack posts entries as Block Kit messages to an incoming webhook
type Slack struct {
	url string
	poster
}

func NewSlack(url string, opts Options) *Slack {
	return &Slack{url: url, poster: newPoster(opts)}
}

func (s *Slack) Deliver(ctx context.Context, feedName string, entries []models.Entry) error {
	log.WithFields(log.Fields{
		"feed":    feedName,
		"entries": len(entries),
	}).Debug("Pushing entries to slack")

	for _, chunk := range lo.Chunk(entries, batchSize) {
		message := &slack.WebhookMessage{
			Blocks: &slack.Blocks{
				BlockSet: lo.FlatMap(chunk, func(entry models.Entry, _ int) []slack.Block {
					return slackBlocks(feedName, entry)
				}),
			},
		}

		err := s.retry(ctx, s.url, func() error {
			err := slack.PostWebhookCustomHTTPContext(ctx, s.url, s.client, message)
			var statusErr slack.StatusCodeError
			if errors.As(err, &statusErr) {
				failure := &StatusError{URL: s.url, StatusCode: statusErr.Code}
				if !retryable(statusErr.Code) {
					return backoff.Permanent(failure)
				}
				return failure
			}
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}
