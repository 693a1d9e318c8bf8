package outputs

import (
	"context"
	"feedwatch/models"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"
)

// Discord rejects embeds and messages above these sizes
const (
	discordTitleLength   = 256
	discordAuthorLength  = 256
	discordFooterLength  = 256
	discordMessageLength = 6000
)

type discordMessage struct {
	Embeds []*discordgo.MessageEmbed `json:"embeds"`
}

func newDiscordEmbed(feedName string, entry models.Entry) *discordgo.MessageEmbed {
	title := entry.Title
	if title == "" {
		title = feedName
	}

	embed := &discordgo.MessageEmbed{
		Title:       models.Truncate(title, discordTitleLength),
		Description: entry.Description,
		URL:         entry.URL,
		Timestamp:   entry.Published.Format(time.RFC3339),
		Footer:      &discordgo.MessageEmbedFooter{Text: models.Truncate(feedName, discordFooterLength)},
	}
	if entry.Author != "" {
		embed.Author = &discordgo.MessageEmbedAuthor{Name: models.Truncate(entry.Author, discordAuthorLength)}
	}
	return embed
}

// embedLength counts the characters Discord adds up for the message limit
func embedLength(embed *discordgo.MessageEmbed) int {
	n := len([]rune(embed.Title)) + len([]rune(embed.Description))
	if embed.Author != nil {
		n += len([]rune(embed.Author.Name))
	}
	if embed.Footer != nil {
		n += len([]rune(embed.Footer.Text))
	}
	return n
}

// discordMessages groups entries into messages of at most batchSize embeds
// whose combined text stays within the message limit.
func discordMessages(feedName string, entries []models.Entry) []discordMessage {
	var (
		messages []discordMessage
		current  discordMessage
		size     int
	)
	for _, entry := range entries {
		embed := newDiscordEmbed(feedName, entry)
		length := embedLength(embed)
		if len(current.Embeds) == batchSize || (len(current.Embeds) > 0 && size+length > discordMessageLength) {
			messages = append(messages, current)
			current, size = discordMessage{}, 0
		}
		current.Embeds = append(current.Embeds, embed)
		size += length
	}
	if len(current.Embeds) > 0 {
		messages = append(messages, current)
	}
	return messages
}

// DiscordWebhook posts entries as embeds to a Discord webhook URL
type DiscordWebhook struct {
	url string
	poster
}

func NewDiscordWebhook(url string, opts Options) *DiscordWebhook {
	return &DiscordWebhook{url: url, poster: newPoster(opts)}
}

func (d *DiscordWebhook) Deliver(ctx context.Context, feedName string, entries []models.Entry) error {
	for _, message := range discordMessages(feedName, entries) {
		log.WithFields(log.Fields{
			"feed":   feedName,
			"embeds": len(message.Embeds),
		}).Debug("Pushing embeds to discord webhook")

		if err := d.postJSON(ctx, d.url, nil, message, nil); err != nil {
			return err
		}
	}
	return nil
}

// DiscordBot sends entries as direct messages to one Discord user
type DiscordBot struct {
	session *discordgo.Session
	userID  uint64
}

// NewDiscordBot creates a REST-only session; no gateway connection is
// opened. A non-empty apiURL replaces the Discord API base URL.
func NewDiscordBot(token string, userID uint64, apiURL string, opts Options) (*DiscordBot, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("failed to create discord session: %w", err)
	}

	client := http.DefaultClient
	if opts.Client != nil {
		client = opts.Client
	}
	if apiURL != "" {
		base, err := url.Parse(strings.TrimSuffix(apiURL, "/"))
		if err != nil {
			return nil, fmt.Errorf("invalid api_url: %w", err)
		}
		rewritten := *client
		rewritten.Transport = &apiRewriter{base: base, next: client.Transport}
		client = &rewritten
	}
	session.Client = client
	if opts.UserAgent != "" {
		session.UserAgent = opts.UserAgent
	}

	return &DiscordBot{session: session, userID: userID}, nil
}

func (d *DiscordBot) Deliver(ctx context.Context, feedName string, entries []models.Entry) error {
	// Resolve the DM channel of the recipient once per delivery
	channel, err := d.session.UserChannelCreate(strconv.FormatUint(d.userID, 10), discordgo.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("failed to open DM channel with user %d: %w", d.userID, err)
	}

	for _, message := range discordMessages(feedName, entries) {
		log.WithFields(log.Fields{
			"feed":   feedName,
			"user":   d.userID,
			"embeds": len(message.Embeds),
		}).Debug("Pushing embeds to discord bot")

		if _, err := d.session.ChannelMessageSendEmbeds(channel.ID, message.Embeds, discordgo.WithContext(ctx)); err != nil {
			return fmt.Errorf("failed to send message to user %d: %w", d.userID, err)
		}
	}
	return nil
}

// apiRewriter sends requests for the Discord API to another base URL
type apiRewriter struct {
	base *url.URL
	next http.RoundTripper
}

func (r *apiRewriter) RoundTrip(req *http.Request) (*http.Response, error) {
	next := r.next
	if next == nil {
		next = http.DefaultTransport
	}

	rest, ok := strings.CutPrefix(req.URL.String(), discordgo.EndpointAPI)
	if !ok {
		return next.RoundTrip(req)
	}
	target, err := url.Parse(r.base.String() + "/" + rest)
	if err != nil {
		return nil, err
	}

	req = req.Clone(req.Context())
	req.URL = target
	req.Host = target.Host
	return next.RoundTrip(req)
}
