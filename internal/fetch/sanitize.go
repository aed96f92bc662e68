// Package fetch - sanitize.go strips active markup before structural inspection.
package fetch

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// activeElements are removed outright by Sanitize.
const activeElements = "script, style, iframe, frame, frameset, object, embed, applet, noscript, template, base, link[rel='import']"

// Sanitize parses raw HTML and removes active content: scripts, embedded
// frames and objects, inline event handlers and javascript: URLs.
func Sanitize(raw string) (*goquery.Document, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to parse HTML: %w", err)
	}
	SanitizeDocument(doc)
	return doc, nil
}

// SanitizeDocument removes active content from doc in place.
func SanitizeDocument(doc *goquery.Document) {
	doc.Find(activeElements).Remove()
	doc.Find("*").Each(func(_ int, s *goquery.Selection) {
		node := s.Get(0)
		kept := node.Attr[:0]
		for _, attr := range node.Attr {
			if dropAttr(attr.Key, attr.Val) {
				continue
			}
			kept = append(kept, attr)
		}
		node.Attr = kept
	})
}

func dropAttr(name, val string) bool {
	key := strings.ToLower(name)
	if strings.HasPrefix(key, "on") {
		return true
	}
	switch key {
	case "href", "src", "action", "formaction", "xlink:href":
		v := strings.ToLower(strings.TrimSpace(val))
		return strings.HasPrefix(v, "javascript:") || strings.HasPrefix(v, "vbscript:") ||
			strings.HasPrefix(v, "data:text/html")
	case "srcdoc":
		return true
	}
	return false
}
