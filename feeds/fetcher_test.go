package feeds_test

import (
	"context"
	"errors"
	"feedwatch/feeds"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRSSFeed = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Blog</title>
    <link>https://example.com</link>
    <description>A test RSS feed</description>
    <item>
      <title>Newest post</title>
      <link>https://example.com/post/3</link>
      <author>alice@example.com (Alice)</author>
      <description>&lt;p&gt;Some &lt;b&gt;HTML&lt;/b&gt; body.&lt;/p&gt;</description>
      <pubDate>Thu, 19 Feb 2026 08:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Older post</title>
      <link>https://example.com/post/2</link>
      <description>Plain summary</description>
      <pubDate>Thu, 19 Feb 2026 07:00:00 +0000</pubDate>
    </item>
    <item>
      <title>Undated post</title>
      <link>https://example.com/post/1</link>
      <description>No date here</description>
    </item>
  </channel>
</rss>`

const testAtomFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>Atom Blog</title>
  <entry>
    <title>Atom entry</title>
    <link href="https://example.com/atom/1"/>
    <author><name>Bob</name></author>
    <summary>Short summary</summary>
    <content type="html">&lt;p&gt;Much longer content&lt;/p&gt;</content>
    <updated>2026-02-19T09:00:00Z</updated>
  </entry>
</feed>`

func serve(content string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprint(w, content)
	}))
}

func TestFetchRSS(t *testing.T) {
	srv := serve(testRSSFeed)
	defer srv.Close()

	doc, err := feeds.NewFetcher(srv.Client(), "feedwatch-test").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	assert.Equal(t, "Test Blog", doc.Title)
	require.Len(t, doc.Entries, 3)

	newest := doc.Entries[0]
	assert.Equal(t, "Newest post", newest.Title)
	assert.Equal(t, "Some HTML body.", newest.Description)
	assert.Equal(t, "https://example.com/post/3", newest.URL)
	assert.Equal(t, "Alice", newest.Author)
	assert.Equal(t, time.Date(2026, 2, 19, 8, 0, 0, 0, time.UTC), newest.Published)

	assert.True(t, doc.Entries[1].Published.Before(newest.Published))
	assert.False(t, doc.Entries[2].HasTimestamp())
}

func TestFetchAtomFallsBackToUpdated(t *testing.T) {
	srv := serve(testAtomFeed)
	defer srv.Close()

	doc, err := feeds.NewFetcher(srv.Client(), "").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)

	require.Len(t, doc.Entries, 1)
	entry := doc.Entries[0]
	assert.Equal(t, "Short summary", entry.Description)
	assert.Equal(t, "Bob", entry.Author)
	assert.Equal(t, "https://example.com/atom/1", entry.URL)
	assert.Equal(t, time.Date(2026, 2, 19, 9, 0, 0, 0, time.UTC), entry.Published)
}

func TestFetchSendsUserAgent(t *testing.T) {
	var agent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		agent = r.Header.Get("User-Agent")
		fmt.Fprint(w, testAtomFeed)
	}))
	defer srv.Close()

	_, err := feeds.NewFetcher(srv.Client(), "feedwatch/1.0").Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "feedwatch/1.0", agent)
}

func TestFetchStatusErrorIsFatal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := feeds.NewFetcher(srv.Client(), "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)

	var fetchErr *feeds.FetchError
	require.True(t, errors.As(err, &fetchErr))
	assert.Equal(t, http.StatusNotFound, fetchErr.StatusCode)
	assert.False(t, feeds.IsTransient(err))
}

func TestFetchMalformedIsFatal(t *testing.T) {
	srv := serve("this is not a feed")
	defer srv.Close()

	_, err := feeds.NewFetcher(srv.Client(), "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, feeds.ErrParse)
	assert.False(t, feeds.IsTransient(err))
}

func TestFetchConnectionRefusedIsTransient(t *testing.T) {
	srv := serve(testRSSFeed)
	url := srv.URL
	srv.Close()

	_, err := feeds.NewFetcher(http.DefaultClient, "").Fetch(context.Background(), url)
	require.Error(t, err)
	assert.True(t, feeds.IsTransient(err))
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	client := &http.Client{Timeout: 50 * time.Millisecond}
	_, err := feeds.NewFetcher(client, "").Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.True(t, feeds.IsTransient(err))
}

func TestIsTransientIgnoresOtherErrors(t *testing.T) {
	assert.False(t, feeds.IsTransient(errors.New("boom")))
	assert.False(t, feeds.IsTransient(nil))
}
