package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
)

// MaxDescriptionLength is the maximum number of runes kept from an entry
// body, ellipsis included.
const MaxDescriptionLength = 300

const ellipsis = "..."

// Entry is a normalized feed item, independent of any output format
type Entry struct {
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Author      string    `json:"author,omitempty"`
	URL         string    `json:"url"`
	Published   time.Time `json:"timestamp"`
}

// HasTimestamp reports whether the entry can be ordered against a watermark
func (e Entry) HasTimestamp() bool {
	return !e.Published.IsZero()
}

// Describe picks the summary when present, otherwise the full body, and
// renders it as truncated plain text.
func Describe(summary, content string) string {
	body := summary
	if strings.TrimSpace(body) == "" {
		body = content
	}
	return Truncate(PlainText(body), MaxDescriptionLength)
}

// Block level elements whose boundaries should become whitespace
const blockSelector = "br, p, div, li, tr, h1, h2, h3, h4, h5, h6, blockquote, pre"

// PlainText converts an HTML fragment to a single line of text
func PlainText(html string) string {
	if !strings.ContainsAny(html, "<&") {
		return collapse(html)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return collapse(html)
	}

	doc.Find("script, style").Remove()
	doc.Find(blockSelector).AppendHtml("\n")

	return collapse(doc.Text())
}

// Truncate shortens s to at most max runes, marking the cut with an ellipsis
func Truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	if max <= len(ellipsis) {
		return string([]rune(s)[:max])
	}

	runes := []rune(s)
	cut := strings.TrimRight(string(runes[:max-len(ellipsis)]), " ")
	return cut + ellipsis
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
