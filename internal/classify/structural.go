package classify

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonathan/job-validator/internal/ingestion"
	"github.com/jonathan/job-validator/internal/types"
)

// listingLinkThreshold is the number of distinct job links that marks a page
// as a listing rather than a single posting.
const listingLinkThreshold = 5

var jobMarkupSelectors = []string{
	"[itemtype*='schema.org/JobPosting']",
	".job-description", "#job-description", ".job-details", "#job-details",
	".job__description", ".posting-page", ".posting-description",
	"[data-automation-id='jobPostingDescription']", "[data-automation-id='jobDescription']",
	"#jobDescriptionText", ".jobs-description", ".show-more-less-html__markup",
	"[data-testid='job-description']", ".job-sections",
}

var listingMarkupSelectors = []string{
	".job-list", ".jobs-list", ".job-listings", ".openings", ".opening",
	".postings-group", "[data-testid='job-list']", ".careers-list",
}

var (
	jobLinkPattern   = regexp.MustCompile(`(?i)/(jobs?|positions?|careers?|openings?|vacanc(y|ies)|roles?)/[^/?#]+`)
	applyTextPattern = regexp.MustCompile(`(?i)\bapply\b`)
	resumeFieldRe    = regexp.MustCompile(`(?i)(resume|cv|cover.?letter)`)
)

// structureSignals is what the structural extractor reads from the
// sanitized document and JSON-LD blocks.
type structureSignals struct {
	JobPostingData  bool
	Microdata       bool
	JobMarkup       bool
	ListingMarkup   bool
	ApplicationForm bool
	ApplyButton     bool
	JobLinks        int
	ArticleMarkup   bool
}

func analyzeStructure(page *ingestion.Page) structureSignals {
	s := structureSignals{
		JobPostingData: ingestion.FindJobPosting(page.JSONLD) != nil,
	}
	doc := page.Doc
	if doc == nil {
		return s
	}

	s.Microdata = doc.Find("[itemtype*='schema.org/JobPosting']").Length() > 0
	s.JobMarkup = anyMatch(doc, jobMarkupSelectors)
	s.ListingMarkup = anyMatch(doc, listingMarkupSelectors)
	s.ArticleMarkup = doc.Find("article time[datetime], [itemtype*='schema.org/BlogPosting'], [itemtype*='schema.org/NewsArticle']").Length() > 0

	doc.Find("form").EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if form.Find("input[type='file']").Length() > 0 {
			s.ApplicationForm = true
			return false
		}
		form.Find("input, textarea").EachWithBreak(func(_ int, in *goquery.Selection) bool {
			if resumeFieldRe.MatchString(in.AttrOr("name", "") + " " + in.AttrOr("id", "")) {
				s.ApplicationForm = true
				return false
			}
			return true
		})
		return !s.ApplicationForm
	})

	doc.Find("a, button, input[type='submit']").EachWithBreak(func(_ int, el *goquery.Selection) bool {
		label := el.Text() + " " + el.AttrOr("value", "") + " " + el.AttrOr("aria-label", "")
		if applyTextPattern.MatchString(label) {
			s.ApplyButton = true
			return false
		}
		return true
	})

	s.JobLinks = countJobLinks(doc, page.FinalURL)
	return s
}

// countJobLinks counts distinct links that look like individual postings,
// ignoring a link back to the page itself.
func countJobLinks(doc *goquery.Document, self string) int {
	base, _ := url.Parse(self)
	seen := make(map[string]struct{})
	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if href == "" || strings.HasPrefix(href, "#") {
			return
		}
		u, err := url.Parse(href)
		if err != nil {
			return
		}
		if base != nil {
			u = base.ResolveReference(u)
			if u.Path == base.Path {
				return
			}
		}
		if !jobLinkPattern.MatchString(u.Path) {
			return
		}
		seen[u.Host+u.Path] = struct{}{}
	})
	return len(seen)
}

func anyMatch(doc *goquery.Document, selectors []string) bool {
	for _, sel := range selectors {
		if doc.Find(sel).Length() > 0 {
			return true
		}
	}
	return false
}

// isListing reports whether the page lists several postings and is not
// itself marked up as one.
func (s structureSignals) isListing() bool {
	return (s.JobLinks >= listingLinkThreshold || s.ListingMarkup) && !s.JobPostingData && !s.Microdata && !s.ApplicationForm
}

// relevance is the structural evidence that the page is one posting.
func (s structureSignals) relevance() float64 {
	if s.JobPostingData || s.Microdata {
		return 1
	}
	score := 0.0
	if s.JobMarkup {
		score += 0.5
	}
	if s.ApplicationForm {
		score += 0.3
	}
	if s.ApplyButton {
		score += 0.2
	}
	if s.isListing() {
		score -= 0.4
	}
	return clamp01(score)
}

// adjustment returns the structural confidence correction for ct.
func (s structureSignals) adjustment(ct types.ContentType) float64 {
	adj := 0.0
	switch ct {
	case types.ContentJobPosting:
		if s.JobPostingData || s.Microdata {
			adj += 0.1
		}
		if s.JobMarkup {
			adj += 0.05
		}
		if s.ApplicationForm || s.ApplyButton {
			adj += 0.05
		}
		if s.isListing() {
			adj -= 0.15
		}
	case types.ContentCareerPage:
		if s.isListing() {
			adj += 0.1
		}
		if s.JobPostingData {
			adj -= 0.1
		}
	case types.ContentBlogPost, types.ContentNewsArticle:
		if s.ArticleMarkup {
			adj += 0.05
		}
		if s.JobPostingData {
			adj -= 0.1
		}
	}
	return clampAdjustment(adj)
}

// maxAdjustment bounds how far one secondary extractor can move confidence.
const maxAdjustment = 0.15

func clampAdjustment(v float64) float64 {
	if v > maxAdjustment {
		return maxAdjustment
	}
	if v < -maxAdjustment {
		return -maxAdjustment
	}
	return v
}
