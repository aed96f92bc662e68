// Package types provides type definitions for structured data used throughout the job-validator system.
//
//nolint:revive // types is a standard Go package name pattern
package types

import "fmt"

// Severity states how strongly an error affects the overall verdict.
type Severity string

const (
	// SeverityBlocking forces the overall result to be invalid
	SeverityBlocking Severity = "blocking"
	// SeverityDegraded lowers confidence but does not by itself invalidate
	SeverityDegraded Severity = "degraded"
	// SeverityWarning is informational
	SeverityWarning Severity = "warning"
)

// Category groups error codes by the stage that produced them.
type Category string

const (
	CategoryURL     Category = "url"
	CategoryContent Category = "content"
	CategoryParsing Category = "parsing"
	CategorySystem  Category = "system"
)

// Impact grades a warning.
type Impact string

const (
	ImpactLow    Impact = "low"
	ImpactMedium Impact = "medium"
	ImpactHigh   Impact = "high"
)

// Error codes.
const (
	CodeURLInvalidFormat     = "URL_INVALID_FORMAT"
	CodeURLUnsupportedScheme = "URL_UNSUPPORTED_SCHEME"
	CodeURLPrivateHost       = "URL_PRIVATE_HOST"
	CodeURLDNSFailure        = "URL_DNS_FAILURE"
	CodeURLTimeout           = "URL_TIMEOUT"
	CodeURLUnreachable       = "URL_UNREACHABLE"
	CodeURLServerError       = "URL_SERVER_ERROR"
	CodeURLRateLimited       = "URL_RATE_LIMITED"
	CodeURLNotFound          = "URL_NOT_FOUND"
	CodeURLClientError       = "URL_CLIENT_ERROR"
	CodeURLExpired           = "URL_EXPIRED"
	CodeURLAuthRequired      = "URL_AUTH_REQUIRED"
	CodeURLNotJobPage        = "URL_NOT_JOB_PAGE"

	CodeContentFetchFailed   = "CONTENT_FETCH_FAILED"
	CodeContentWrongType     = "CONTENT_WRONG_TYPE"
	CodeContentExpired       = "CONTENT_EXPIRED"
	CodeContentStale         = "CONTENT_STALE"
	CodeContentTooShort      = "CONTENT_TOO_SHORT"
	CodeContentLowConfidence = "CONTENT_LOW_CONFIDENCE"

	CodeParsingExtractionFailed = "PARSING_EXTRACTION_FAILED"
	CodeParsingLowQuality       = "PARSING_LOW_QUALITY"
	CodeParsingMissingField     = "PARSING_MISSING_FIELD"

	CodeSystemError                 = "SYSTEM_ERROR"
	CodeSystemCapabilityUnavailable = "SYSTEM_CAPABILITY_UNAVAILABLE"
	CodeSystemRateLimited           = "SYSTEM_RATE_LIMITED"
	CodeSystemCircuitOpen           = "SYSTEM_CIRCUIT_OPEN"
)

// Warning codes.
const (
	WarnLowJobRelevance  = "LOW_JOB_RELEVANCE"
	WarnCompanyHomepage  = "COMPANY_HOMEPAGE"
	WarnCompanyPage      = "COMPANY_PAGE"
	WarnAuthPath         = "AUTH_PATH"
	WarnCareerIndex      = "CAREER_INDEX"
	WarnNonHTMLContent   = "NON_HTML_CONTENT"
	WarnRedirected       = "REDIRECTED"
	WarnContentTruncated = "CONTENT_TRUNCATED"
	WarnLanguage         = "NON_ENGLISH_CONTENT"
	WarnTitleSuspicious  = "TITLE_SUSPICIOUS"
	WarnCompanyMissing   = "COMPANY_MISSING"
	WarnRemoteInferred   = "REMOTE_INFERRED"
)

// ValidationError is a single problem found while validating a URL.
type ValidationError struct {
	Code        string   `json:"code"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
	Category    Category `json:"category"`
	UserMessage string   `json:"user_message"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Retryable   bool     `json:"retryable"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsBlocking reports whether the error forces an invalid verdict.
func (e ValidationError) IsBlocking() bool {
	return e.Severity == SeverityBlocking
}

// ValidationWarning annotates a result without affecting validity.
type ValidationWarning struct {
	Code        string `json:"code"`
	Message     string `json:"message"`
	Impact      Impact `json:"impact"`
	UserMessage string `json:"user_message,omitempty"`
}

type errorTemplate struct {
	severity    Severity
	category    Category
	retryable   bool
	userMessage string
	suggestion  string
}

var catalog = map[string]errorTemplate{
	CodeURLInvalidFormat: {SeverityBlocking, CategoryURL, false,
		"This doesn't look like a valid web address.",
		"Check the link for typos and make sure it starts with https://"},
	CodeURLUnsupportedScheme: {SeverityBlocking, CategoryURL, false,
		"Only http and https links can be checked.",
		"Copy the job link directly from your browser's address bar."},
	CodeURLPrivateHost: {SeverityBlocking, CategoryURL, false,
		"This link points to a private or local address.",
		"Use the public link to the job posting."},
	CodeURLDNSFailure: {SeverityBlocking, CategoryURL, false,
		"The website for this link could not be found.",
		"Check the domain name for typos."},
	CodeURLTimeout: {SeverityDegraded, CategoryURL, true,
		"The job site took too long to respond.",
		"Try again in a few minutes."},
	CodeURLUnreachable: {SeverityDegraded, CategoryURL, true,
		"We couldn't connect to the job site.",
		"Try again later or check that the site is online."},
	CodeURLServerError: {SeverityDegraded, CategoryURL, true,
		"The job site is having problems right now.",
		"Try again in a few minutes."},
	CodeURLRateLimited: {SeverityDegraded, CategoryURL, true,
		"The job site is limiting requests right now.",
		"Wait a minute and try again."},
	CodeURLNotFound: {SeverityBlocking, CategoryURL, false,
		"This job posting could not be found.",
		"The posting may have been removed. Search for the role on the company's careers page."},
	CodeURLClientError: {SeverityBlocking, CategoryURL, false,
		"The job site rejected the request for this link.",
		"Open the link in your browser to confirm it works."},
	CodeURLExpired: {SeverityBlocking, CategoryURL, false,
		"This job posting has been taken down.",
		"Look for a newer posting for the same role."},
	CodeURLAuthRequired: {SeverityDegraded, CategoryURL, false,
		"This job posting requires signing in to view.",
		"Copy the job details manually or use a public link to the posting."},
	CodeURLNotJobPage: {SeverityBlocking, CategoryURL, false,
		"This link doesn't appear to point to a specific job posting.",
		"Open the specific job and copy its link instead of a company or listing page."},
	CodeContentFetchFailed: {SeverityDegraded, CategoryContent, true,
		"We couldn't load the page content.",
		"Try again in a few minutes."},
	CodeContentWrongType: {SeverityBlocking, CategoryContent, false,
		"This page doesn't look like a job posting.",
		"Open the specific job and copy its link."},
	CodeContentExpired: {SeverityBlocking, CategoryContent, false,
		"This job posting appears to be closed.",
		"Look for a newer posting for the same role."},
	CodeContentStale: {SeverityDegraded, CategoryContent, false,
		"This job posting looks old and may no longer be open.",
		"Confirm on the company's careers page that the role is still open."},
	CodeContentTooShort: {SeverityBlocking, CategoryContent, false,
		"The page has too little content to be a job posting.",
		"Check that the link opens the full job description."},
	CodeContentLowConfidence: {SeverityDegraded, CategoryContent, false,
		"We aren't sure this page is a job posting.",
		"You can continue and enter the job details manually."},
	CodeParsingExtractionFailed: {SeverityDegraded, CategoryParsing, true,
		"We couldn't read the job details from this page.",
		"Try again, or enter the job details manually."},
	CodeParsingLowQuality: {SeverityDegraded, CategoryParsing, false,
		"The job details we found may be inaccurate.",
		"Review the extracted details before continuing."},
	CodeParsingMissingField: {SeverityDegraded, CategoryParsing, false,
		"Some job details are missing.",
		"Fill in the missing details manually."},
	CodeSystemError: {SeverityBlocking, CategorySystem, true,
		"Something went wrong while checking this link.",
		"Try again in a moment."},
	CodeSystemCapabilityUnavailable: {SeverityDegraded, CategorySystem, true,
		"Automatic job detail extraction is unavailable right now.",
		"Enter the job details manually or try again later."},
	CodeSystemRateLimited: {SeverityBlocking, CategorySystem, true,
		"Too many checks for this site in a short time.",
		"Wait a minute and try again."},
	CodeSystemCircuitOpen: {SeverityBlocking, CategorySystem, true,
		"This service is temporarily paused after repeated failures.",
		"Try again in a minute."},
}

// NewError builds a ValidationError for code using the catalog defaults.
// Unknown codes produce a blocking system error carrying the original code.
func NewError(code, message string) ValidationError {
	tmpl, ok := catalog[code]
	if !ok {
		tmpl = catalog[CodeSystemError]
	}
	return ValidationError{
		Code:        code,
		Message:     message,
		Severity:    tmpl.severity,
		Category:    tmpl.category,
		UserMessage: tmpl.userMessage,
		Suggestion:  tmpl.suggestion,
		Retryable:   tmpl.retryable,
	}
}

// NewWarning builds a ValidationWarning.
func NewWarning(code, message string, impact Impact) ValidationWarning {
	return ValidationWarning{Code: code, Message: message, Impact: impact, UserMessage: message}
}

// KnownCode reports whether code is in the catalog.
func KnownCode(code string) bool {
	_, ok := catalog[code]
	return ok
}
