package classify

import (
	"regexp"
	"strings"

	"github.com/jonathan/job-validator/internal/ingestion"
	"github.com/jonathan/job-validator/internal/types"
)

// vocabulary is a set of phrases whose presence votes for one content type.
// saturation is the number of distinct hits that counts as a full vote.
type vocabulary struct {
	contentType types.ContentType
	phrases     []string
	saturation  int
}

var vocabularies = []vocabulary{
	{types.ContentJobPosting, []string{
		"job description", "about the role", "about this role", "the role",
		"what you'll do", "what you will do", "we are looking for", "we're looking for",
		"you will", "experience with", "years of experience", "full-time", "full time",
		"part-time", "employment type", "job type", "reports to", "team", "benefits",
		"qualifications", "responsibilities", "apply",
	}, 6},
	{types.ContentCareerPage, []string{
		"open positions", "open roles", "job openings", "current openings", "view all jobs",
		"see all jobs", "search jobs", "browse jobs", "explore careers", "all departments",
		"all locations", "jobs found", "filter by", "join our team", "life at",
	}, 3},
	{types.ContentCompanyPage, []string{
		"about us", "our mission", "our story", "our values", "our customers", "our products",
		"contact us", "leadership team", "investors", "founded in", "headquartered",
	}, 4},
	{types.ContentErrorPage, []string{
		"page not found", "404", "not found", "something went wrong", "access denied",
		"page you are looking for", "page you're looking for", "doesn't exist", "does not exist",
		"return to homepage", "go back home",
	}, 2},
	{types.ContentBlogPost, []string{
		"posted by", "read more", "min read", "comments", "share this post", "subscribe",
		"related posts", "tags:", "written by", "leave a reply",
	}, 3},
	{types.ContentNewsArticle, []string{
		"press release", "according to", "reported", "news", "announced today", "breaking",
		"editor", "correspondent", "for immediate release", "media contact",
	}, 3},
}

// errorPageMaxWords bounds the size of soft error pages. Longer pages can
// mention "not found" without being one.
const errorPageMaxWords = 300

var (
	jobTitlePattern = regexp.MustCompile(`(?i)\b(engineer|developer|programmer|architect|manager|director|analyst|designer|scientist|specialist|coordinator|consultant|administrator|technician|accountant|representative|associate|intern|lead|officer|assistant|nurse|recruiter|writer|editor|executive|head of|vp|sre|devops)\b`)
	salaryPattern   = regexp.MustCompile(`(?i)([$€£]\s?\d{2,3}(?:[.,]\d{3})*(?:\s?k)?|\b\d{2,3}k\b|\b(salary|compensation|pay range|per hour|per year|annually|usd|eur|gbp)\b)`)
)

var (
	requirementsPhrases = []string{"requirements", "qualifications", "what you'll bring", "what you bring",
		"you have", "must have", "nice to have", "years of experience", "skills"}
	responsibilitiesPhrases = []string{"responsibilities", "what you'll do", "what you will do",
		"your role", "day to day", "you will"}
	benefitsPhrases    = []string{"benefits", "perks", "health insurance", "paid time off", "pto", "401(k)", "equity"}
	applicationPhrases = []string{"apply now", "apply for this job", "apply for this position", "submit your application",
		"how to apply", "send your resume", "send your cv", "apply today", "easy apply"}
	expiryPhrases = []string{
		"no longer accepting applications", "this job has expired", "this job posting has expired",
		"position has been filled", "job is no longer available", "this position is no longer available",
		"this posting is closed", "applications are closed", "position has been closed",
		"job has been removed", "this job is closed", "the job you are looking for is no longer open",
	}
)

// textSignals is what the textual extractor reads from page text.
type textSignals struct {
	Scores           map[types.ContentType]float64
	TitleMatch       bool
	Requirements     bool
	Responsibilities bool
	Benefits         bool
	Application      bool
	Salary           bool
	ExpiryPhrase     string
	Language         string
	WordCount        int
	Words            []string
}

// analyzeText runs the vocabulary, phrase, and language checks over the
// page's title and main text.
func analyzeText(page *ingestion.Page) textSignals {
	lower := strings.ToLower(page.Meta.Title + "\n" + page.Text)
	words := ingestion.Words(page.Text)

	s := textSignals{
		Scores:           make(map[types.ContentType]float64, len(vocabularies)),
		TitleMatch:       jobTitlePattern.MatchString(page.Meta.Title) || jobTitlePattern.MatchString(firstHeading(page)),
		Requirements:     containsAny(lower, requirementsPhrases),
		Responsibilities: containsAny(lower, responsibilitiesPhrases),
		Benefits:         containsAny(lower, benefitsPhrases),
		Application:      containsAny(lower, applicationPhrases),
		Salary:           salaryPattern.MatchString(lower),
		ExpiryPhrase:     firstMatch(lower, expiryPhrases),
		Language:         DetectLanguage(words),
		WordCount:        len(words),
		Words:            words,
	}

	for _, v := range vocabularies {
		hits := countHits(lower, v.phrases)
		score := float64(hits) / float64(v.saturation)
		if score > 1 {
			score = 1
		}
		s.Scores[v.contentType] = score
	}
	if s.WordCount > errorPageMaxWords {
		s.Scores[types.ContentErrorPage] = 0
	}
	s.Scores[types.ContentJobPosting] = s.jobScore()
	return s
}

// jobScore blends the job vocabulary with the section phrases a posting
// normally carries.
func (s textSignals) jobScore() float64 {
	score := 0.5 * s.Scores[types.ContentJobPosting]
	if s.TitleMatch {
		score += 0.1
	}
	if s.Requirements {
		score += 0.15
	}
	if s.Responsibilities {
		score += 0.1
	}
	if s.Application {
		score += 0.1
	}
	if s.Salary || s.Benefits {
		score += 0.05
	}
	return clamp01(score)
}

// decide picks the content type with the highest score. Pages where nothing
// scores are "other".
func (s textSignals) decide() (types.ContentType, float64) {
	order := []types.ContentType{
		types.ContentJobPosting, types.ContentCareerPage, types.ContentErrorPage,
		types.ContentCompanyPage, types.ContentBlogPost, types.ContentNewsArticle,
	}
	best, second := types.ContentOther, 0.0
	bestScore := 0.0
	for _, ct := range order {
		sc := s.Scores[ct]
		switch {
		case sc > bestScore:
			second = bestScore
			best, bestScore = ct, sc
		case sc > second:
			second = sc
		}
	}
	if bestScore < 0.2 {
		return types.ContentOther, 0.3
	}
	return best, clamp01(0.35 + 0.45*bestScore + 0.2*(bestScore-second))
}

func firstHeading(page *ingestion.Page) string {
	if page.Doc == nil {
		return ""
	}
	return strings.TrimSpace(page.Doc.Find("h1").First().Text())
}

func containsAny(text string, phrases []string) bool {
	return firstMatch(text, phrases) != ""
}

func firstMatch(text string, phrases []string) string {
	for _, p := range phrases {
		if strings.Contains(text, p) {
			return p
		}
	}
	return ""
}

func countHits(text string, phrases []string) int {
	n := 0
	for _, p := range phrases {
		if strings.Contains(text, p) {
			n++
		}
	}
	return n
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
