package reachability

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/types"
	"github.com/jonathan/job-validator/internal/urlutil"
)

// Weights tunes the relevance heuristic.
type Weights struct {
	Base               float64
	JobIDBoost         float64
	JobPathBoost       float64
	ATSParamBoost      float64
	TitleSlugBoost     float64
	PlatformMatchBoost float64
	AntiPatternPenalty float64
	IndexPenalty       float64
	GenericRootPenalty float64
}

// DefaultWeights returns the standard relevance weights.
func DefaultWeights() Weights {
	return Weights{
		Base:               0.3,
		JobIDBoost:         0.4,
		JobPathBoost:       0.3,
		ATSParamBoost:      0.2,
		TitleSlugBoost:     0.1,
		PlatformMatchBoost: 0.5,
		AntiPatternPenalty: 0.4,
		IndexPenalty:       0.2,
		GenericRootPenalty: 0.1,
	}
}

// Relevance is the outcome of scoring a URL for job-posting likelihood.
type Relevance struct {
	Score         float64
	JobID         bool
	JobPath       bool
	ATSParam      bool
	TitleSlug     bool
	PlatformMatch bool
	// AntiPattern is set for homepages, company pages and auth paths.
	AntiPattern bool
	Index       bool
	Warnings    []types.ValidationWarning
}

// HasJobSignal reports whether any positive indicator matched.
func (r Relevance) HasJobSignal() bool {
	return r.JobID || r.JobPath || r.ATSParam || r.PlatformMatch
}

var (
	numericID = regexp.MustCompile(`(^|[^0-9])[0-9]{4,}($|[^0-9])`)
	uuidID    = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
	hexID     = regexp.MustCompile(`^[0-9a-f]{10,}$`)
	digit     = regexp.MustCompile(`[0-9]`)

	jobPathPatterns = []*regexp.Regexp{
		regexp.MustCompile(`/job/`),
		regexp.MustCompile(`/jobs/[^/]+`),
		regexp.MustCompile(`/positions?/[^/]+`),
		regexp.MustCompile(`/postings?/[^/]+`),
		regexp.MustCompile(`/vacanc(y|ies)/[^/]+`),
		regexp.MustCompile(`/openings?/[^/]+`),
		regexp.MustCompile(`/careers?/[^/]+/[^/]+`),
		regexp.MustCompile(`/viewjob`),
		regexp.MustCompile(`/job-listing/`),
		regexp.MustCompile(`/requisitions?/[^/]+`),
	}

	atsParams = map[string]struct{}{
		"gh_jid":        {},
		"jobid":         {},
		"job_id":        {},
		"jk":            {},
		"vjk":           {},
		"currentjobid":  {},
		"reqid":         {},
		"requisitionid": {},
		"posting_id":    {},
	}

	roleWords = []string{
		"engineer", "developer", "manager", "designer", "analyst", "scientist",
		"architect", "specialist", "director", "consultant", "coordinator", "intern",
		"administrator", "technician", "accountant", "recruiter", "writer", "nurse",
		"associate", "representative", "lead", "head-of", "sre", "devops",
	}

	companySegments = map[string]struct{}{
		"company": {}, "team": {}, "contact": {}, "contact-us": {}, "press": {},
		"blog": {}, "news": {}, "investors": {}, "pricing": {}, "products": {},
		"leadership": {}, "our-story": {},
	}

	authSegments = map[string]struct{}{
		"login": {}, "signin": {}, "sign-in": {}, "auth": {}, "register": {},
		"account": {}, "sso": {}, "oauth": {},
	}

	indexSegments = map[string]struct{}{
		"careers": {}, "career": {}, "jobs": {}, "openings": {}, "join-us": {},
	}
)

// IsAuthPath reports whether the path looks like a login or account page.
func IsAuthPath(p string) bool {
	for _, s := range urlutil.Segments(strings.ToLower(p)) {
		if _, ok := authSegments[s]; ok {
			return true
		}
	}
	return false
}

// Score rates how likely u is a single job posting on platform.
func Score(u *url.URL, platform fetch.Platform, w Weights) Relevance {
	var r Relevance
	lp := strings.ToLower(u.EscapedPath())
	segs := urlutil.Segments(lp)
	query := u.Query()

	for _, s := range segs {
		if isID(s) {
			r.JobID = true
		}
		if hasRoleWord(s) {
			r.TitleSlug = true
		}
	}
	for key, vals := range query {
		if _, ok := atsParams[strings.ToLower(key)]; ok && len(vals) > 0 && vals[0] != "" {
			r.ATSParam = true
		}
	}
	for _, p := range jobPathPatterns {
		if p.MatchString(lp) {
			r.JobPath = true
			break
		}
	}

	companyPage, homepage, authPage := false, len(segs) == 0, false
	if len(segs) > 0 {
		first := segs[0]
		if _, ok := companySegments[first]; ok || strings.HasPrefix(first, "about") {
			companyPage = true
		}
	}
	for _, s := range segs {
		if _, ok := authSegments[s]; ok {
			authPage = true
		}
	}
	if len(segs) == 1 {
		if _, ok := indexSegments[segs[0]]; ok && !r.ATSParam {
			r.Index = true
		}
	}

	platformRules(&r, platform, lp, segs, query, &companyPage)

	score := w.Base
	if r.JobID {
		score += w.JobIDBoost
	}
	if r.JobPath {
		score += w.JobPathBoost
	}
	if r.ATSParam {
		score += w.ATSParamBoost
	}
	if r.TitleSlug {
		score += w.TitleSlugBoost
	}
	if r.PlatformMatch {
		score += w.PlatformMatchBoost
	}

	// Root URLs carrying an ATS parameter are embedded job widgets.
	if homepage && !r.ATSParam {
		r.AntiPattern = true
		score -= w.AntiPatternPenalty
		r.Warnings = append(r.Warnings, types.NewWarning(types.WarnCompanyHomepage,
			"company homepage detected", types.ImpactHigh))
	} else if companyPage {
		r.AntiPattern = true
		score -= w.AntiPatternPenalty
		r.Warnings = append(r.Warnings, types.NewWarning(types.WarnCompanyPage,
			"company page detected", types.ImpactHigh))
	}
	if authPage {
		r.AntiPattern = true
		score -= w.AntiPatternPenalty
		r.Warnings = append(r.Warnings, types.NewWarning(types.WarnAuthPath,
			"login or account page detected", types.ImpactHigh))
	}
	if r.Index {
		score -= w.IndexPenalty
		r.Warnings = append(r.Warnings, types.NewWarning(types.WarnCareerIndex,
			"careers index page rather than a specific job", types.ImpactMedium))
	}
	if !platform.IsKnown() && len(segs) == 1 && !r.JobID && !r.Index && !r.AntiPattern {
		score -= w.GenericRootPenalty
	}

	r.Score = clamp01(score)
	return r
}

func platformRules(r *Relevance, platform fetch.Platform, lp string, segs []string, query url.Values, companyPage *bool) {
	switch platform {
	case fetch.PlatformLinkedIn:
		switch {
		case strings.HasPrefix(lp, "/jobs/view/") && len(segs) >= 3 && isID(segs[2]):
			r.PlatformMatch = true
		case query.Get("currentJobId") != "":
			r.PlatformMatch = true
		case strings.HasPrefix(lp, "/company/"), strings.HasPrefix(lp, "/in/"), strings.HasPrefix(lp, "/feed"):
			*companyPage = true
		case lp == "/jobs" || lp == "/jobs/" || strings.HasPrefix(lp, "/jobs/search"):
			r.Index = true
			r.JobPath = false
		}
	case fetch.PlatformIndeed:
		switch {
		case (strings.HasPrefix(lp, "/viewjob") || strings.HasPrefix(lp, "/rc/clk")) && query.Get("jk") != "":
			r.PlatformMatch = true
		case strings.HasPrefix(lp, "/cmp/"):
			*companyPage = true
		case strings.HasPrefix(lp, "/jobs") && query.Get("q") != "":
			r.Index = true
		}
	case fetch.PlatformGlassdoor:
		switch {
		case strings.Contains(lp, "/job-listing/"), strings.Contains(lp, "jv_"):
			r.PlatformMatch = true
		case strings.Contains(lp, "/overview/"):
			*companyPage = true
		}
	case fetch.PlatformGreenhouse:
		switch {
		case len(segs) >= 3 && segs[1] == "jobs" && isID(segs[2]):
			r.PlatformMatch = true
		case query.Get("token") != "" || query.Get("gh_jid") != "":
			r.PlatformMatch = true
		case len(segs) == 1:
			r.Index = true
		}
	case fetch.PlatformLever:
		switch {
		case len(segs) >= 2 && uuidID.MatchString(segs[1]):
			r.PlatformMatch = true
		case len(segs) == 1:
			r.Index = true
		}
	case fetch.PlatformWorkday:
		if strings.Contains(lp, "/job/") {
			r.PlatformMatch = true
		}
	case fetch.PlatformAshby, fetch.PlatformSmartRecruiters:
		switch {
		case len(segs) >= 2 && isID(segs[1]):
			r.PlatformMatch = true
		case len(segs) == 1:
			r.Index = true
		}
	}
}

func isID(seg string) bool {
	if numericID.MatchString(seg) || uuidID.MatchString(seg) {
		return true
	}
	return hexID.MatchString(seg) && digit.MatchString(seg)
}

func hasRoleWord(seg string) bool {
	for _, w := range roleWords {
		if strings.Contains(seg, w) {
			return true
		}
	}
	return false
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
