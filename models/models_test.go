package models_test

import (
	"feedwatch/models"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
)

func TestPlainText(t *testing.T) {
	tests := []struct {
		name     string
		html     string
		expected string
	}{
		{
			name:     "empty string",
			html:     "",
			expected: "",
		},
		{
			name:     "plain text is collapsed",
			html:     "  hello \n\t world ",
			expected: "hello world",
		},
		{
			name:     "inline tags are stripped",
			html:     "<p>Hello <b>world</b></p>",
			expected: "Hello world",
		},
		{
			name:     "block boundaries become spaces",
			html:     "<p>first</p><p>second</p><ul><li>a</li><li>b</li></ul>",
			expected: "first second a b",
		},
		{
			name:     "entities are decoded",
			html:     "Fish &amp; chips &lt;3",
			expected: "Fish & chips <3",
		},
		{
			name:     "scripts are dropped",
			html:     "<div>text<script>alert(1)</script></div>",
			expected: "text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, models.PlainText(tt.html))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", models.Truncate("short", 10))
	assert.Equal(t, "exactly10!", models.Truncate("exactly10!", 10))
	assert.Equal(t, "abcdefg...", models.Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "ab", models.Truncate("abcdef", 2))

	// Counts runes, not bytes
	assert.Equal(t, "æøåæøåæ...", models.Truncate(strings.Repeat("æøå", 10), 10))
}

func TestDescribeLongHTMLIsTruncated(t *testing.T) {
	body := "<p>" + strings.Repeat("x", 500) + "</p>"

	description := models.Describe("", body)

	assert.Equal(t, models.MaxDescriptionLength, utf8.RuneCountInString(description))
	assert.True(t, strings.HasSuffix(description, "..."))
}

func TestDescribeShortPassesThrough(t *testing.T) {
	body := strings.Repeat("y", 50)

	assert.Equal(t, body, models.Describe(body, ""))
}

func TestDescribePrefersSummary(t *testing.T) {
	assert.Equal(t, "summary", models.Describe("<em>summary</em>", "<p>the full body</p>"))
	assert.Equal(t, "the full body", models.Describe("  ", "<p>the full body</p>"))
}

func TestHasTimestamp(t *testing.T) {
	assert.False(t, models.Entry{}.HasTimestamp())
	assert.True(t, models.Entry{Published: time.Now()}.HasTimestamp())
}
