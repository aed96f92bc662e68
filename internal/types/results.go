package types

import (
	"time"

	"github.com/google/uuid"
)

// Tier identifies a pipeline stage.
type Tier int

const (
	TierNone         Tier = 0
	TierReachability Tier = 1
	TierContent      Tier = 2
	TierExtraction   Tier = 3
)

// TierMetadata records how and when a tier result was produced.
type TierMetadata struct {
	Tier             Tier      `json:"tier"`
	ProcessingTimeMs int64     `json:"processing_time_ms"`
	ValidatedAt      time.Time `json:"validated_at"`
	Method           string    `json:"method"`
}

// TierResult is the output of one tier for one request.
type TierResult[T any] struct {
	IsValid    bool                `json:"is_valid"`
	Confidence float64             `json:"confidence"`
	Data       *T                  `json:"data,omitempty"`
	Errors     []ValidationError   `json:"errors"`
	Warnings   []ValidationWarning `json:"warnings"`
	Metadata   TierMetadata        `json:"metadata"`
}

// HasBlocking reports whether any error is blocking.
func (r *TierResult[T]) HasBlocking() bool {
	return r.FirstBlocking() != nil
}

// FirstBlocking returns the first blocking error or nil.
func (r *TierResult[T]) FirstBlocking() *ValidationError {
	if r == nil {
		return nil
	}
	for i := range r.Errors {
		if r.Errors[i].IsBlocking() {
			return &r.Errors[i]
		}
	}
	return nil
}

// IsRetryable reports whether the result failed only for reasons worth retrying:
// at least one retryable error and no non-retryable blocking error.
func (r *TierResult[T]) IsRetryable() bool {
	if r == nil {
		return false
	}
	retryable := false
	for _, e := range r.Errors {
		if e.IsBlocking() && !e.Retryable {
			return false
		}
		if e.Retryable {
			retryable = true
		}
	}
	return retryable
}

// HasCode reports whether an error with code is present.
func (r *TierResult[T]) HasCode(code string) bool {
	if r == nil {
		return false
	}
	for _, e := range r.Errors {
		if e.Code == code {
			return true
		}
	}
	return false
}

// Clone returns a copy that shares no slices or payload with r.
func (r *TierResult[T]) Clone() *TierResult[T] {
	if r == nil {
		return nil
	}
	c := *r
	if r.Data != nil {
		d := *r.Data
		c.Data = &d
	}
	c.Errors = append([]ValidationError(nil), r.Errors...)
	c.Warnings = append([]ValidationWarning(nil), r.Warnings...)
	return &c
}

// AddError appends e and marks the result invalid when e is blocking.
func (r *TierResult[T]) AddError(e ValidationError) {
	r.Errors = append(r.Errors, e)
	if e.IsBlocking() {
		r.IsValid = false
	}
}

// AddWarning appends w.
func (r *TierResult[T]) AddWarning(w ValidationWarning) {
	r.Warnings = append(r.Warnings, w)
}

// URLAnalysis is the Tier 1 payload.
type URLAnalysis struct {
	URL              string  `json:"url"`
	NormalizedURL    string  `json:"normalized_url"`
	Domain           string  `json:"domain"`
	Platform         string  `json:"platform"`
	IsAccessible     bool    `json:"is_accessible"`
	ResponseTimeMs   int64   `json:"response_time_ms"`
	HTTPStatus       int     `json:"http_status"`
	ContentType      string  `json:"content_type"`
	FinalURL         string  `json:"final_url"`
	RequiresAuth     bool    `json:"requires_auth"`
	IsExpired        bool    `json:"is_expired"`
	HasJobIndicators bool    `json:"has_job_indicators"`
	RelevanceScore   float64 `json:"relevance_score"`
}

// ContentType is the Tier 2 page classification.
type ContentType string

const (
	ContentJobPosting  ContentType = "job_posting"
	ContentCareerPage  ContentType = "career_page"
	ContentCompanyPage ContentType = "company_page"
	ContentErrorPage   ContentType = "error_page"
	ContentBlogPost    ContentType = "blog_post"
	ContentNewsArticle ContentType = "news_article"
	ContentOther       ContentType = "other"
)

// ContentClassification is the Tier 2 payload.
type ContentClassification struct {
	ContentType        ContentType `json:"content_type"`
	Confidence         float64     `json:"confidence"`
	JobRelevanceScore  float64     `json:"job_relevance_score"`
	HasTitle           bool        `json:"has_title"`
	HasCompany         bool        `json:"has_company"`
	HasDescription     bool        `json:"has_description"`
	HasApplicationInfo bool        `json:"has_application_info"`
	HasRequirements    bool        `json:"has_requirements"`
	HasSalary          bool        `json:"has_salary"`
	IsExpired          bool        `json:"is_expired"`
	Language           string      `json:"language"`
	WordCount          int         `json:"word_count"`
	QualityScore       float64     `json:"quality_score"`
	DetectedTitle      string      `json:"detected_title,omitempty"`
	DetectedCompany    string      `json:"detected_company,omitempty"`
	PublishedAt        *time.Time  `json:"published_at,omitempty"`
}

// UserGuidance tells the caller what to do with a result.
type UserGuidance struct {
	PrimaryMessage     string   `json:"primary_message"`
	ActionRequired     string   `json:"action_required,omitempty"`
	Suggestions        []string `json:"suggestions"`
	CanProceedManually bool     `json:"can_proceed_manually"`
}

// UnifiedValidationResult is the terminal artifact of one validation.
type UnifiedValidationResult struct {
	ID                 uuid.UUID                          `json:"id"`
	URL                string                             `json:"url"`
	IsValid            bool                               `json:"is_valid"`
	OverallConfidence  float64                            `json:"overall_confidence"`
	HighestTierReached Tier                               `json:"highest_tier_reached"`
	Tier1              *TierResult[URLAnalysis]           `json:"tier1,omitempty"`
	Tier2              *TierResult[ContentClassification] `json:"tier2,omitempty"`
	Tier3              *TierResult[ExtractedJobFields]    `json:"tier3,omitempty"`
	FinalData          *ExtractedJobFields                `json:"final_data,omitempty"`
	// Errors holds pipeline-level errors raised outside any tier, such as
	// rate limiting or an open circuit.
	Errors             []ValidationError                  `json:"errors,omitempty"`
	CanRetry           bool                               `json:"can_retry"`
	FromCache          bool                               `json:"from_cache"`
	UserGuidance       UserGuidance                       `json:"user_guidance"`
	ProcessingTimeMs   int64                              `json:"processing_time_ms"`
	ValidatedAt        time.Time                          `json:"validated_at"`
}

// AllErrors returns pipeline-level errors followed by the errors of every
// tier in tier order.
func (r *UnifiedValidationResult) AllErrors() []ValidationError {
	out := append([]ValidationError(nil), r.Errors...)
	if r.Tier1 != nil {
		out = append(out, r.Tier1.Errors...)
	}
	if r.Tier2 != nil {
		out = append(out, r.Tier2.Errors...)
	}
	if r.Tier3 != nil {
		out = append(out, r.Tier3.Errors...)
	}
	return out
}

// AllWarnings returns the warnings of every tier in tier order.
func (r *UnifiedValidationResult) AllWarnings() []ValidationWarning {
	var out []ValidationWarning
	if r.Tier1 != nil {
		out = append(out, r.Tier1.Warnings...)
	}
	if r.Tier2 != nil {
		out = append(out, r.Tier2.Warnings...)
	}
	if r.Tier3 != nil {
		out = append(out, r.Tier3.Warnings...)
	}
	return out
}
