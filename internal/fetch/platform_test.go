package fetch

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform_Greenhouse(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://job-boards.greenhouse.io/doordashusa/jobs/7063751", PlatformGreenhouse},
		{"https://boards.greenhouse.io/company/jobs/123", PlatformGreenhouse},
		{"https://greenhouse.io/jobs/456", PlatformGreenhouse},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := DetectPlatform(tt.url)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDetectPlatform_Lever(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://jobs.lever.co/company/job-id", PlatformLever},
		{"https://lever.co/jobs/123", PlatformLever},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := DetectPlatform(tt.url)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDetectPlatform_Workday(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://company.wd5.myworkdayjobs.com/en-US/External", PlatformWorkday},
		{"https://workday.com/jobs", PlatformWorkday},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			result := DetectPlatform(tt.url)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestDetectPlatform_JobBoards(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://www.linkedin.com/jobs/view/3812345678", PlatformLinkedIn},
		{"https://www.indeed.com/viewjob?jk=abc123", PlatformIndeed},
		{"https://uk.indeed.com/viewjob?jk=abc123", PlatformIndeed},
		{"https://www.glassdoor.com/job-listing/engineer-JV_IC1.htm", PlatformGlassdoor},
		{"https://jobs.ashbyhq.com/acme/2b7c5e8e", PlatformAshby},
		{"https://jobs.smartrecruiters.com/Acme/743999", PlatformSmartRecruiters},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestDetectPlatform_CompanyAndUnknown(t *testing.T) {
	tests := []struct {
		url      string
		expected Platform
	}{
		{"https://careers.acme.com/positions/42", PlatformCompany},
		{"https://acme.com/careers/engineering/42", PlatformCompany},
		{"https://example.com/about", PlatformUnknown},
		{"https://notlinkedin.com/jobs", PlatformCompany},
		{"https://evil-greenhouse.io.example.net/x", PlatformUnknown},
		{"://bad", PlatformUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			assert.Equal(t, tt.expected, DetectPlatform(tt.url))
		})
	}
}

func TestPlatform_Classes(t *testing.T) {
	assert.True(t, PlatformLever.IsATS())
	assert.False(t, PlatformLever.IsJobBoard())
	assert.True(t, PlatformIndeed.IsJobBoard())
	assert.False(t, PlatformUnknown.IsKnown())
	assert.True(t, PlatformCompany.IsKnown())
	assert.Equal(t, "LinkedIn", PlatformLinkedIn.DisplayName())
	assert.Empty(t, PlatformCompany.DisplayName())
}

func TestPlatformContentSelectors_Greenhouse(t *testing.T) {
	selectors := PlatformContentSelectors(PlatformGreenhouse)
	assert.Contains(t, selectors, ".job__description.body")
	assert.Contains(t, selectors, ".job__description")
}

func TestPlatformContentSelectors_Unknown(t *testing.T) {
	selectors := PlatformContentSelectors(PlatformUnknown)
	// Should fallback to generic JobPostingSelectors
	assert.Contains(t, selectors, ".job-description")
	assert.Contains(t, selectors, "main")
}

func TestPlatformNoiseSelectors_Greenhouse(t *testing.T) {
	selectors := PlatformNoiseSelectors(PlatformGreenhouse)
	// Common selectors
	assert.Contains(t, selectors, "#application-form")
	assert.Contains(t, selectors, "form")
	// Greenhouse-specific
	assert.Contains(t, selectors, ".application--wrapper")
	assert.Contains(t, selectors, ".voluntary-self-id")
}

func TestPlatformNoiseSelectors_Unknown(t *testing.T) {
	selectors := PlatformNoiseSelectors(PlatformUnknown)
	// Should have common noise selectors
	assert.Contains(t, selectors, "form")
	assert.Contains(t, selectors, "#application-form")
	assert.Contains(t, selectors, ".cookie-banner")
}

func TestPlatformContentSelectors_JobBoards(t *testing.T) {
	assert.Contains(t, PlatformContentSelectors(PlatformIndeed), "#jobDescriptionText")
	assert.Contains(t, PlatformContentSelectors(PlatformLinkedIn), ".description__text")
	assert.Contains(t, PlatformNoiseSelectors(PlatformLinkedIn), ".sign-in-modal")
}
