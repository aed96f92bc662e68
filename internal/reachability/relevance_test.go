package reachability

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/types"
)

func score(t *testing.T, raw string) Relevance {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return Score(u, fetch.DetectPlatform(raw), DefaultWeights())
}

func hasWarning(r Relevance, code string) bool {
	for _, w := range r.Warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}

func TestScore_JobPostings(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		minScore float64
	}{
		{"greenhouse posting", "https://boards.greenhouse.io/acme/jobs/4012345", 1.0},
		{"lever posting", "https://jobs.lever.co/acme/0f3a1b2c-1234-4abc-9def-0123456789ab", 1.0},
		{"linkedin view", "https://www.linkedin.com/jobs/view/3812345678/", 1.0},
		{"linkedin collection", "https://www.linkedin.com/jobs/collections/recommended/?currentJobId=3812345678", 0.9},
		{"indeed viewjob", "https://www.indeed.com/viewjob?jk=abc123def456", 1.0},
		{"glassdoor listing", "https://www.glassdoor.com/job-listing/senior-engineer-acme-JV_IC1147401_KO0,15.htm", 1.0},
		{"workday", "https://acme.wd5.myworkdayjobs.com/en-US/External/job/Remote/Senior-Engineer_R12345", 1.0},
		{"ashby", "https://jobs.ashbyhq.com/acme/5d2c7f9e-0000-4e2a-9f7b-1b2c3d4e5f60", 1.0},
		{"company careers posting", "https://careers.acme.com/jobs/12345-senior-engineer", 1.0},
		{"generic numeric id", "https://example.com/positions/98765", 1.0},
		{"embedded greenhouse widget", "https://acme.com/?gh_jid=4012345", 0.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := score(t, tt.url)
			assert.GreaterOrEqual(t, r.Score, tt.minScore)
			assert.True(t, r.HasJobSignal())
			assert.False(t, r.AntiPattern)
		})
	}
}

func TestScore_AntiPatterns(t *testing.T) {
	tests := []struct {
		name string
		url  string
		code string
	}{
		{"homepage", "https://acme.com/", types.WarnCompanyHomepage},
		{"about page", "https://acme.com/about-us", types.WarnCompanyPage},
		{"blog", "https://acme.com/blog/launch", types.WarnCompanyPage},
		{"pricing", "https://acme.com/pricing", types.WarnCompanyPage},
		{"login", "https://acme.com/login", types.WarnAuthPath},
		{"linkedin company", "https://www.linkedin.com/company/acme/", types.WarnCompanyPage},
		{"linkedin profile", "https://www.linkedin.com/in/someone", types.WarnCompanyPage},
		{"indeed company", "https://www.indeed.com/cmp/Acme", types.WarnCompanyPage},
		{"glassdoor overview", "https://www.glassdoor.com/Overview/Working-at-Acme.htm", types.WarnCompanyPage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := score(t, tt.url)
			assert.True(t, r.AntiPattern)
			assert.False(t, r.HasJobSignal())
			assert.True(t, hasWarning(r, tt.code), "expected warning %s", tt.code)
			assert.Less(t, r.Score, 0.4)
		})
	}
}

func TestScore_IndexPages(t *testing.T) {
	tests := []struct {
		name string
		url  string
	}{
		{"careers index", "https://acme.com/careers"},
		{"jobs index", "https://acme.com/jobs/"},
		{"greenhouse board", "https://boards.greenhouse.io/acme"},
		{"lever board", "https://jobs.lever.co/acme"},
		{"indeed search", "https://www.indeed.com/jobs?q=golang"},
		{"linkedin search", "https://www.linkedin.com/jobs/search/?keywords=go"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := score(t, tt.url)
			assert.True(t, r.Index)
			assert.False(t, r.AntiPattern)
			assert.False(t, r.PlatformMatch)
		})
	}
}

func TestScore_CareersIndexWarning(t *testing.T) {
	r := score(t, "https://acme.com/careers")
	assert.InDelta(t, 0.1, r.Score, 1e-9)
	assert.True(t, hasWarning(r, types.WarnCareerIndex))
}

func TestScore_GenericRootPenalty(t *testing.T) {
	r := score(t, "https://example.com/hello-world")
	assert.InDelta(t, 0.2, r.Score, 1e-9)

	slug := score(t, "https://example.com/senior-software-engineer")
	assert.True(t, slug.TitleSlug)
	assert.InDelta(t, 0.3, slug.Score, 1e-9)
}

func TestScore_CustomWeights(t *testing.T) {
	u, _ := url.Parse("https://example.com/positions/98765")
	w := DefaultWeights()
	w.JobIDBoost = 0
	w.JobPathBoost = 0.1

	r := Score(u, fetch.PlatformUnknown, w)
	assert.InDelta(t, 0.4, r.Score, 1e-9)
}

func TestIsAuthPath(t *testing.T) {
	assert.True(t, IsAuthPath("/account/login"))
	assert.True(t, IsAuthPath("/Sign-In"))
	assert.False(t, IsAuthPath("/jobs/12345"))
	assert.False(t, IsAuthPath("/authors"))
}
