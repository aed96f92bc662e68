package extraction

import (
	"math"
	"strings"

	"github.com/jonathan/job-validator/internal/fetch"
	"github.com/jonathan/job-validator/internal/types"
)

const maxTitleLength = 120

var listingTitlePhrases = []string{
	"jobs at", "careers at", "open positions", "job openings", "current openings",
	"join our team", "work with us", "search jobs",
}

var remoteLocationPhrases = []string{
	"remote", "anywhere", "work from home", "wfh", "distributed",
}

// ApplyRules downgrades confidences for heuristic violations and infers the
// remote flag from the location. It mutates fields and returns the warnings
// that explain each adjustment.
func ApplyRules(fields *types.ExtractedJobFields, platform string) []types.ValidationWarning {
	var warnings []types.ValidationWarning
	title := strings.ToLower(fields.Title)
	company := strings.ToLower(fields.Company)

	if len(company) > 2 && strings.Contains(title, company) {
		fields.Confidence.Title *= 0.8
		warnings = append(warnings, types.NewWarning(types.WarnTitleSuspicious,
			"title contains the company name", types.ImpactLow))
	}
	if len(fields.Title) > maxTitleLength {
		fields.Confidence.Title *= 0.8
		warnings = append(warnings, types.NewWarning(types.WarnTitleSuspicious,
			"title is unusually long", types.ImpactLow))
	}
	if looksLikeListingTitle(title) {
		fields.Confidence.Title *= 0.7
		warnings = append(warnings, types.NewWarning(types.WarnTitleSuspicious,
			"title looks like a job listing page", types.ImpactMedium))
	}

	if company == "" {
		fields.Confidence.Company = 0
		warnings = append(warnings, types.NewWarning(types.WarnCompanyMissing,
			"company could not be determined", types.ImpactMedium))
	} else if board := strings.ToLower(fetch.Platform(platform).DisplayName()); board != "" && company == board {
		fields.Confidence.Company *= 0.5
		warnings = append(warnings, types.NewWarning(types.WarnCompanyMissing,
			"company matches the job board name", types.ImpactMedium))
	}

	if strings.TrimSpace(fields.Location) == "" {
		fields.Confidence.Location = 0
	} else if !fields.Remote && mentionsRemote(fields.Location) {
		fields.Remote = true
		warnings = append(warnings, types.NewWarning(types.WarnRemoteInferred,
			"remote inferred from location", types.ImpactLow))
	}

	weighted := 0.4*fields.Confidence.Title + 0.35*fields.Confidence.Company + 0.25*fields.Confidence.Location
	fields.Confidence.Overall = clamp01(math.Min(fields.Confidence.Overall, weighted+0.1))

	return warnings
}

func looksLikeListingTitle(title string) bool {
	switch strings.TrimSpace(title) {
	case "careers", "jobs", "job search", "openings":
		return true
	}
	for _, p := range listingTitlePhrases {
		if strings.Contains(title, p) {
			return true
		}
	}
	return false
}

func mentionsRemote(location string) bool {
	l := strings.ToLower(location)
	for _, p := range remoteLocationPhrases {
		if strings.Contains(l, p) {
			return true
		}
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
