package ingestion

import (
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Metadata holds page-level metadata read from head tags and time elements.
type Metadata struct {
	Title       string
	Description string
	OGType      string
	OGTitle     string
	SiteName    string
	Canonical   string
	Language    string
	PublishedAt time.Time
	ModifiedAt  time.Time
}

var publishedMeta = []string{
	"meta[property='article:published_time']",
	"meta[name='date']",
	"meta[name='pubdate']",
	"meta[itemprop='datePublished']",
	"meta[itemprop='datePosted']",
	"meta[property='og:published_time']",
}

var modifiedMeta = []string{
	"meta[property='article:modified_time']",
	"meta[property='og:updated_time']",
	"meta[itemprop='dateModified']",
	"meta[name='last-modified']",
}

// ReadMetadata extracts Metadata from a parsed document.
func ReadMetadata(doc *goquery.Document) Metadata {
	m := Metadata{
		Title:       strings.TrimSpace(doc.Find("title").First().Text()),
		Description: metaContent(doc, "meta[name='description']", "meta[property='og:description']"),
		OGType:      metaContent(doc, "meta[property='og:type']"),
		OGTitle:     metaContent(doc, "meta[property='og:title']"),
		SiteName:    metaContent(doc, "meta[property='og:site_name']", "meta[name='application-name']"),
		Language:    strings.ToLower(strings.TrimSpace(doc.Find("html").AttrOr("lang", ""))),
	}
	if href, ok := doc.Find("link[rel='canonical']").Attr("href"); ok {
		m.Canonical = strings.TrimSpace(href)
	}

	m.PublishedAt = ParseDate(metaContent(doc, publishedMeta...))
	m.ModifiedAt = ParseDate(metaContent(doc, modifiedMeta...))

	if m.PublishedAt.IsZero() {
		doc.Find("time[datetime]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if t := ParseDate(s.AttrOr("datetime", "")); !t.IsZero() {
				m.PublishedAt = t
				return false
			}
			return true
		})
	}
	return m
}

func metaContent(doc *goquery.Document, selectors ...string) string {
	for _, sel := range selectors {
		if v, ok := doc.Find(sel).First().Attr("content"); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z0700",
	"2006-01-02 15:04:05",
	"2006-01-02",
	time.RFC1123,
	time.RFC1123Z,
	"January 2, 2006",
	"Jan 2, 2006",
	"02/01/2006",
}

// ParseDate parses the date formats commonly found in page metadata.
// It returns the zero time when nothing matches.
func ParseDate(v string) time.Time {
	v = strings.TrimSpace(v)
	if v == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t
		}
	}
	return time.Time{}
}
