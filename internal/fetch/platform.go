// Package fetch - platform.go provides platform detection and platform-specific selectors.
package fetch

import (
	"net/url"
	"strings"
)

// Platform represents a known job board platform.
type Platform string

const (
	// PlatformGreenhouse is the Greenhouse ATS platform
	PlatformGreenhouse Platform = "greenhouse"
	// PlatformLever is the Lever ATS platform
	PlatformLever Platform = "lever"
	// PlatformWorkday is the Workday ATS platform
	PlatformWorkday Platform = "workday"
	// PlatformAshby is the Ashby ATS platform
	PlatformAshby Platform = "ashby"
	// PlatformSmartRecruiters is the SmartRecruiters ATS platform
	PlatformSmartRecruiters Platform = "smartrecruiters"
	// PlatformLinkedIn is the LinkedIn job board
	PlatformLinkedIn Platform = "linkedin"
	// PlatformIndeed is the Indeed job board
	PlatformIndeed Platform = "indeed"
	// PlatformGlassdoor is the Glassdoor job board
	PlatformGlassdoor Platform = "glassdoor"
	// PlatformCompany is a company-hosted careers site
	PlatformCompany Platform = "company"
	// PlatformUnknown is an unrecognized platform
	PlatformUnknown Platform = "unknown"
)

type hostRule struct {
	platform Platform
	hosts    []string
}

var hostRules = []hostRule{
	{PlatformGreenhouse, []string{"greenhouse.io"}},
	{PlatformLever, []string{"lever.co"}},
	{PlatformWorkday, []string{"myworkdayjobs.com", "workday.com", "myworkdaysite.com"}},
	{PlatformAshby, []string{"ashbyhq.com"}},
	{PlatformSmartRecruiters, []string{"smartrecruiters.com"}},
	{PlatformLinkedIn, []string{"linkedin.com"}},
	{PlatformIndeed, []string{"indeed.com", "indeed.co.uk", "indeed.ca", "indeed.de"}},
	{PlatformGlassdoor, []string{"glassdoor.com", "glassdoor.co.uk", "glassdoor.ca"}},
}

// DetectPlatform identifies the job board platform from a URL.
func DetectPlatform(urlStr string) Platform {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return PlatformUnknown
	}
	return DetectPlatformHost(parsed.Hostname(), parsed.Path)
}

// DetectPlatformHost identifies the platform from a hostname and path.
// Hosts like careers.example.com or example.com/careers are company sites.
func DetectPlatformHost(host, path string) Platform {
	host = strings.ToLower(host)
	for _, rule := range hostRules {
		for _, h := range rule.hosts {
			if host == h || strings.HasSuffix(host, "."+h) {
				return rule.platform
			}
		}
	}

	if strings.HasPrefix(host, "careers.") || strings.HasPrefix(host, "jobs.") {
		return PlatformCompany
	}
	lp := strings.ToLower(path)
	if strings.HasPrefix(lp, "/careers") || strings.HasPrefix(lp, "/jobs") {
		return PlatformCompany
	}

	return PlatformUnknown
}

// IsATS reports whether p is a hosted applicant tracking system.
func (p Platform) IsATS() bool {
	switch p {
	case PlatformGreenhouse, PlatformLever, PlatformWorkday, PlatformAshby, PlatformSmartRecruiters:
		return true
	}
	return false
}

// IsJobBoard reports whether p is an aggregating job board.
func (p Platform) IsJobBoard() bool {
	switch p {
	case PlatformLinkedIn, PlatformIndeed, PlatformGlassdoor:
		return true
	}
	return false
}

// IsKnown reports whether p is anything other than unknown.
func (p Platform) IsKnown() bool {
	return p != PlatformUnknown && p != ""
}

// DisplayName returns the human name of a job board, used to catch
// extractions that report the board as the hiring company.
func (p Platform) DisplayName() string {
	switch p {
	case PlatformGreenhouse:
		return "Greenhouse"
	case PlatformLever:
		return "Lever"
	case PlatformWorkday:
		return "Workday"
	case PlatformAshby:
		return "Ashby"
	case PlatformSmartRecruiters:
		return "SmartRecruiters"
	case PlatformLinkedIn:
		return "LinkedIn"
	case PlatformIndeed:
		return "Indeed"
	case PlatformGlassdoor:
		return "Glassdoor"
	}
	return ""
}

// PlatformContentSelectors returns content selectors optimized for a specific platform.
func PlatformContentSelectors(platform Platform) []string {
	switch platform {
	case PlatformGreenhouse:
		return []string{
			".job__description.body",    // Primary Greenhouse selector
			".job__description",         // Fallback
			".job-description__content", // Alternative
			"#content",                  // Generic fallback
			".job-post-container",       // Container level
		}
	case PlatformLever:
		return []string{
			".posting-page",
			".section-wrapper.page-full-width",
			".posting-description",
			".content",
		}
	case PlatformWorkday:
		return []string{
			"[data-automation-id='jobDescription']",
			".WDXK",
			".gwt-HTML",
			".job-description",
		}
	case PlatformAshby:
		return []string{
			".ashby-job-posting-left-pane",
			"[class*='_descriptionText']",
			"main",
		}
	case PlatformSmartRecruiters:
		return []string{
			".job-sections",
			"[itemprop='description']",
			"main",
		}
	case PlatformLinkedIn:
		return []string{
			".show-more-less-html__markup",
			".description__text",
			".jobs-description",
			"main",
		}
	case PlatformIndeed:
		return []string{
			"#jobDescriptionText",
			".jobsearch-JobComponent",
			"main",
		}
	case PlatformGlassdoor:
		return []string{
			"[class*='JobDetails_jobDescription']",
			".jobDescriptionContent",
			"#JobDescriptionContainer",
			"main",
		}
	default:
		return JobPostingSelectors()
	}
}

// PlatformNoiseSelectors returns noise exclusion selectors for a specific platform.
func PlatformNoiseSelectors(platform Platform) []string {
	common := []string{
		// Application forms
		"form",
		"#application-form",
		".application-form",
		".application--container",
		".apply-button-container",
		"[data-testid='application-form']",

		// EEO and legal
		".voluntary-disclosure",
		".eeo-statement",
		".eeo-section",
		"[data-testid='eeo']",
		".legal-disclosure",
		".self-identification",

		// Social and share buttons
		".social-share",
		".share-buttons",
		".social-links",

		// Cookie and GDPR
		".cookie-banner",
		".cookie-consent",
		".gdpr-notice",
	}

	switch platform {
	case PlatformGreenhouse:
		return append(common,
			".application--wrapper",
			".voluntary-self-id",
			".voluntary-self-id-wrapper",
			"#usa_self_id_section",
			".post-apply",
		)
	case PlatformLever:
		return append(common,
			".apply-section",
			".lever-application-form",
			".posting-apply",
		)
	case PlatformWorkday:
		return append(common,
			"[data-automation-id='applyButton']",
			".application-section",
			".WDAF",
		)
	case PlatformLinkedIn:
		return append(common,
			".similar-jobs",
			".people-also-viewed",
			".sign-in-modal",
			".join-form",
		)
	case PlatformIndeed:
		return append(common,
			"#mosaic-provider-jobcards",
			".jobsearch-RelatedLinks",
		)
	case PlatformGlassdoor:
		return append(common,
			"[class*='JobsList']",
			"[data-test='hardsell-overlay']",
		)
	default:
		return common
	}
}
