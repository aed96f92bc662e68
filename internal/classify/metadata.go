package classify

import (
	"regexp"
	"strings"
	"time"

	"github.com/jonathan/job-validator/internal/ingestion"
	"github.com/jonathan/job-validator/internal/types"
)

// metaSignals is what the metadata extractor reads from head tags, time
// elements, response headers, and the JobPosting block.
type metaSignals struct {
	Title          string
	Description    string
	OGType         string
	SiteName       string
	JobTitle       string
	Organization   string
	HasDescription bool
	HasSalary      bool
	PublishedAt    time.Time
	ModifiedAt     time.Time
	ValidThrough   time.Time
}

var titleSplit = regexp.MustCompile(`\s+(?:[-|–—:]|at)\s+`)

func analyzeMetadata(page *ingestion.Page) metaSignals {
	m := metaSignals{
		Title:       page.Meta.Title,
		Description: page.Meta.Description,
		OGType:      strings.ToLower(page.Meta.OGType),
		SiteName:    page.Meta.SiteName,
		PublishedAt: page.Meta.PublishedAt,
		ModifiedAt:  page.Meta.ModifiedAt,
	}

	if jp := ingestion.FindJobPosting(page.JSONLD); jp != nil {
		m.JobTitle = ingestion.StringField(jp, "title")
		m.Organization = ingestion.StringField(jp, "hiringOrganization")
		m.HasDescription = ingestion.StringField(jp, "description") != ""
		_, m.HasSalary = jp["baseSalary"]
		if posted := ingestion.ParseDate(ingestion.StringField(jp, "datePosted")); !posted.IsZero() {
			m.PublishedAt = posted
		}
		m.ValidThrough = ingestion.ParseDate(ingestion.StringField(jp, "validThrough"))
	}

	if m.Organization == "" && page.Doc != nil {
		sel := page.Doc.Find("[itemprop='hiringOrganization'] [itemprop='name'], [itemprop='hiringOrganization']").First()
		m.Organization = strings.TrimSpace(sel.AttrOr("content", sel.Text()))
	}
	if m.ModifiedAt.IsZero() {
		m.ModifiedAt = page.LastModified
	}
	return m
}

// postedAt is the best available publication date: the page's own claim,
// else the last modification time.
func (m metaSignals) postedAt() time.Time {
	if !m.PublishedAt.IsZero() {
		return m.PublishedAt
	}
	return m.ModifiedAt
}

// detectedTitle prefers structured data, then og/title tags trimmed of the
// site suffix, then the first heading.
func (m metaSignals) detectedTitle(page *ingestion.Page) string {
	if m.JobTitle != "" {
		return m.JobTitle
	}
	if h1 := firstHeading(page); h1 != "" && jobTitlePattern.MatchString(h1) {
		return h1
	}
	if t := strings.TrimSpace(page.Meta.OGTitle); t != "" {
		return titleSplit.Split(t, 2)[0]
	}
	if m.Title != "" {
		return titleSplit.Split(m.Title, 2)[0]
	}
	return firstHeading(page)
}

// detectedCompany prefers the hiring organization, then a "Role at Company"
// title, then the site name.
func (m metaSignals) detectedCompany(platform string) string {
	if m.Organization != "" {
		return m.Organization
	}
	if idx := strings.LastIndex(strings.ToLower(m.Title), " at "); idx > 0 {
		rest := m.Title[idx+4:]
		if parts := titleSplit.Split(rest, 2); strings.TrimSpace(parts[0]) != "" {
			return strings.TrimSpace(parts[0])
		}
	}
	if m.SiteName != "" && !strings.EqualFold(m.SiteName, platform) {
		return m.SiteName
	}
	return ""
}

// adjustment returns the metadata confidence correction for ct.
func (m metaSignals) adjustment(ct types.ContentType) float64 {
	adj := 0.0
	article := m.OGType == "article" || m.OGType == "blog"
	switch ct {
	case types.ContentJobPosting:
		if m.JobTitle != "" || jobTitlePattern.MatchString(m.Title) {
			adj += 0.05
		}
		if m.Organization != "" {
			adj += 0.05
		}
		if !m.ValidThrough.IsZero() || m.HasSalary {
			adj += 0.05
		}
		if article && m.JobTitle == "" {
			adj -= 0.1
		}
	case types.ContentBlogPost, types.ContentNewsArticle:
		if article {
			adj += 0.1
		}
	case types.ContentCompanyPage:
		if m.OGType == "website" {
			adj += 0.05
		}
	}
	return clampAdjustment(adj)
}
