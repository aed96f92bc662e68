package ingestion

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractJSONLD decodes every application/ld+json block in raw HTML.
// Blocks that fail to decode are skipped.
func ExtractJSONLD(raw string) []any {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil
	}
	var out []any
	doc.Find("script[type='application/ld+json']").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		var payload any
		if err := json.Unmarshal([]byte(text), &payload); err != nil {
			return
		}
		out = append(out, payload)
	})
	return out
}

// FindJobPosting returns the first JobPosting object in the decoded blocks,
// searching arrays and @graph containers.
func FindJobPosting(blocks []any) map[string]any {
	for _, b := range blocks {
		if jp := findJobPosting(b); jp != nil {
			return jp
		}
	}
	return nil
}

func findJobPosting(payload any) map[string]any {
	switch t := payload.(type) {
	case map[string]any:
		if isJobPostingType(t["@type"]) {
			return t
		}
		if graph, ok := t["@graph"].([]any); ok {
			for _, item := range graph {
				if jp := findJobPosting(item); jp != nil {
					return jp
				}
			}
		}
	case []any:
		for _, item := range t {
			if jp := findJobPosting(item); jp != nil {
				return jp
			}
		}
	}
	return nil
}

func isJobPostingType(t any) bool {
	switch v := t.(type) {
	case string:
		return v == "JobPosting"
	case []any:
		for _, item := range v {
			if s, ok := item.(string); ok && s == "JobPosting" {
				return true
			}
		}
	}
	return false
}

// StringField reads a string property, following {"name": ...} objects such
// as hiringOrganization.
func StringField(obj map[string]any, key string) string {
	switch v := obj[key].(type) {
	case string:
		return strings.TrimSpace(v)
	case map[string]any:
		if name, ok := v["name"].(string); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}
