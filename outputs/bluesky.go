package outputs

import (
	"context"
	"feedwatch/bluesky"
	"feedwatch/models"
	"time"

	"github.com/bluesky-social/indigo/api/bsky"
	log "github.com/sirupsen/logrus"
)

// Bluesky allows at most 300 graphemes per post
const blueskyPostLength = 300

// Bluesky publishes one post with a link card per entry
type Bluesky struct {
	host  string
	creds bluesky.Credentials
	opts  Options
	now   func() time.Time
}

func NewBluesky(host, identifier, password string, opts Options) *Bluesky {
	return &Bluesky{
		host:  host,
		creds: bluesky.Credentials{Identifier: identifier, Password: password},
		opts:  opts,
		now:   time.Now,
	}
}

func (b *Bluesky) Deliver(ctx context.Context, feedName string, entries []models.Entry) error {
	client, err := bluesky.ClientFromCredentials(ctx, b.host, &b.creds, b.opts.Client)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		uri, err := client.CreatePost(ctx, blueskyPost(feedName, entry, b.now()))
		if err != nil {
			return err
		}
		log.WithFields(log.Fields{
			"feed": feedName,
			"uri":  uri,
		}).Debug("Published entry to bluesky")
	}
	return nil
}

func blueskyPost(feedName string, entry models.Entry, now time.Time) *bsky.FeedPost {
	post := &bsky.FeedPost{
		LexiconTypeID: bluesky.PostCollection,
		Text:          models.Truncate(entryTitle(feedName, entry), blueskyPostLength),
		CreatedAt:     bluesky.FormatTime(now),
	}
	if entry.URL != "" {
		post.Embed = &bsky.FeedPost_Embed{
			EmbedExternal: &bsky.EmbedExternal{
				LexiconTypeID: "app.bsky.embed.external",
				External: &bsky.EmbedExternal_External{
					Uri:         entry.URL,
					Title:       entry.Title,
					Description: entry.Description,
				},
			},
		}
	}
	return post
}
