package bluesky

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/api/bsky"
	lexutil "github.com/bluesky-social/indigo/lex/util"
	"github.com/bluesky-social/indigo/xrpc"
	log "github.com/sirupsen/logrus"
)

const DefaultPDSHost = "https://bsky.social"

// PostCollection is the record collection for feed posts
const PostCollection = "app.bsky.feed.post"

type Credentials struct {
	Identifier string
	Password   string
}

type Client struct {
	xrpc *xrpc.Client
}

// ClientFromCredentials creates a session on host and returns an
// authenticated client. A nil httpClient uses http.DefaultClient.
func ClientFromCredentials(ctx context.Context, host string, creds *Credentials, httpClient *http.Client) (*Client, error) {
	if host == "" {
		host = DefaultPDSHost
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	auth, err := atproto.ServerCreateSession(ctx, &xrpc.Client{Host: host, Client: httpClient}, &atproto.ServerCreateSession_Input{
		Identifier: creds.Identifier,
		Password:   creds.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	xrpcClient := &xrpc.Client{
		Host: host,
		Auth: &xrpc.AuthInfo{
			AccessJwt:  auth.AccessJwt,
			RefreshJwt: auth.RefreshJwt,
			Handle:     auth.Handle,
			Did:        auth.Did,
		},
		Client: httpClient,
	}

	return &Client{xrpc: xrpcClient}, nil
}

// CreatePost publishes a post record in the authenticated user's repository
// and returns its AT URI.
func (c *Client) CreatePost(ctx context.Context, post *bsky.FeedPost) (string, error) {
	resp, err := atproto.RepoCreateRecord(ctx, c.xrpc, &atproto.RepoCreateRecord_Input{
		Collection: PostCollection,
		Repo:       c.xrpc.Auth.Did,
		Record: &lexutil.LexiconTypeDecoder{
			Val: post,
		},
	})
	if err != nil {
		log.Errorf("failed to create record: %s", err)
		return "", fmt.Errorf("failed to create record: %w", err)
	}
	return resp.Uri, nil
}

// FormatTime formats a time.Time into the format expected by AT Protocol
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
