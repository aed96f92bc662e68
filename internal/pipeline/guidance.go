package pipeline

import (
	"fmt"
	"strings"

	"github.com/jonathan/job-validator/internal/types"
)

const maxSuggestionSources = 3

const inconclusiveMessage = "We couldn't confirm that this link is a single job posting."

// finalize computes the verdict, confidence, retry flag, and guidance.
func (o *Orchestrator) finalize(res *types.UnifiedValidationResult, out tierOutcome) {
	res.OverallConfidence = aggregate(res, out.tier3Ran)

	errs := res.AllErrors()
	blocking := false
	for _, e := range errs {
		if e.IsBlocking() {
			blocking = true
			break
		}
	}
	res.IsValid = out.gatePassed && !blocking
	res.CanRetry = canRetry(errs)
	res.UserGuidance = o.guidance(res, errs, blocking)
}

// aggregate blends tier confidences. Weights depend on how far the pipeline
// got: 0.2/0.4/0.4 with extraction, 0.2/0.8 without it, 0.2 after Tier 1.
func aggregate(res *types.UnifiedValidationResult, tier3Ran bool) float64 {
	var t1, t2, t3 float64
	if res.Tier1 != nil {
		t1 = res.Tier1.Confidence
	}
	if res.Tier2 != nil {
		t2 = res.Tier2.Confidence
	}
	if res.Tier3 != nil {
		t3 = res.Tier3.Confidence
	}
	switch {
	case tier3Ran:
		return 0.2*t1 + 0.4*t2 + 0.4*t3
	case res.Tier2 != nil:
		return 0.2*t1 + 0.8*t2
	default:
		return 0.2 * t1
	}
}

// canRetry is true when some error is retryable and no blocking error rules
// a retry out.
func canRetry(errs []types.ValidationError) bool {
	retryable := false
	for _, e := range errs {
		if e.IsBlocking() && !e.Retryable {
			return false
		}
		if e.Retryable {
			retryable = true
		}
	}
	return retryable
}

func (o *Orchestrator) guidance(res *types.UnifiedValidationResult, errs []types.ValidationError, blocking bool) types.UserGuidance {
	g := types.UserGuidance{
		Suggestions:        suggestions(errs),
		CanProceedManually: !blocking && o.cfg.AllowManualOverride,
	}

	lead := leadError(errs)
	switch {
	case res.IsValid && res.FinalData != nil:
		g.PrimaryMessage = successMessage(res.FinalData.Title, res.FinalData.Company)
	case res.IsValid && res.Tier2 != nil && res.Tier2.Data != nil:
		g.PrimaryMessage = withExtractionNote(
			successMessage(res.Tier2.Data.DetectedTitle, res.Tier2.Data.DetectedCompany), res.Tier3)
	case res.IsValid:
		g.PrimaryMessage = withExtractionNote("Job posting verified.", res.Tier3)
	case lead != nil:
		g.PrimaryMessage = lead.UserMessage
	default:
		g.PrimaryMessage = inconclusiveMessage
	}

	if lead != nil {
		g.ActionRequired = lead.Suggestion
	} else if !res.IsValid {
		g.ActionRequired = "Open the specific job and copy its link, or enter the job details manually."
	}
	if g.Suggestions == nil {
		g.Suggestions = []string{}
	}
	return g
}

func successMessage(title, company string) string {
	switch {
	case title != "" && company != "":
		return fmt.Sprintf("Job posting verified: %s at %s", title, company)
	case title != "":
		return fmt.Sprintf("Job posting verified: %s", title)
	default:
		return "Job posting verified."
	}
}

// withExtractionNote tells the user when an attempted extraction produced
// no fields.
func withExtractionNote(msg string, t3 *types.TierResult[types.ExtractedJobFields]) string {
	if t3 == nil || len(t3.Errors) == 0 {
		return msg
	}
	msg = strings.TrimSuffix(msg, ".") + ". Job details could not be extracted"
	if um := t3.Errors[0].UserMessage; um != "" {
		return msg + ": " + um
	}
	return msg + "."
}

// leadError picks the error guidance is built around: the first blocking
// error, else the first degraded one.
func leadError(errs []types.ValidationError) *types.ValidationError {
	for i := range errs {
		if errs[i].IsBlocking() {
			return &errs[i]
		}
	}
	for i := range errs {
		if errs[i].Severity == types.SeverityDegraded {
			return &errs[i]
		}
	}
	return nil
}

// suggestions collects distinct suggestions from the first few errors,
// blocking errors first.
func suggestions(errs []types.ValidationError) []string {
	ordered := make([]types.ValidationError, 0, len(errs))
	for _, e := range errs {
		if e.IsBlocking() {
			ordered = append(ordered, e)
		}
	}
	for _, e := range errs {
		if !e.IsBlocking() {
			ordered = append(ordered, e)
		}
	}
	if len(ordered) > maxSuggestionSources {
		ordered = ordered[:maxSuggestionSources]
	}

	var out []string
	seen := make(map[string]bool)
	for _, e := range ordered {
		if e.Suggestion == "" || seen[e.Suggestion] {
			continue
		}
		seen[e.Suggestion] = true
		out = append(out, e.Suggestion)
	}
	return out
}
