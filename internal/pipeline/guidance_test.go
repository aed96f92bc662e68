package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-validator/internal/breaker"
	"github.com/jonathan/job-validator/internal/types"
)

func TestSuggestions(t *testing.T) {
	errs := []types.ValidationError{
		types.NewError(types.CodeURLTimeout, ""),
		types.NewError(types.CodeURLServerError, ""),
		types.NewError(types.CodeContentWrongType, ""),
		types.NewError(types.CodeParsingMissingField, ""),
	}

	got := suggestions(errs)

	// Blocking first, duplicates dropped, only the first three errors used.
	require.Len(t, got, 2)
	assert.Equal(t, types.NewError(types.CodeContentWrongType, "").Suggestion, got[0])
	assert.Equal(t, types.NewError(types.CodeURLTimeout, "").Suggestion, got[1])
	assert.Nil(t, suggestions(nil))
}

func TestLeadError(t *testing.T) {
	degraded := types.NewError(types.CodeContentStale, "old")
	blocking := types.NewError(types.CodeContentExpired, "closed")

	assert.Nil(t, leadError(nil))
	assert.Equal(t, types.CodeContentStale, leadError([]types.ValidationError{degraded}).Code)
	assert.Equal(t, types.CodeContentExpired, leadError([]types.ValidationError{degraded, blocking}).Code)
}

func TestCanRetry(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  bool
	}{
		{"none", nil, false},
		{"transient", []string{types.CodeURLTimeout}, true},
		{"retryable blocking", []string{types.CodeSystemRateLimited}, true},
		{"non-retryable blocking wins", []string{types.CodeURLTimeout, types.CodeURLNotFound}, false},
		{"degraded only", []string{types.CodeContentStale}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := make([]types.ValidationError, 0, len(tt.codes))
			for _, c := range tt.codes {
				errs = append(errs, types.NewError(c, ""))
			}
			assert.Equal(t, tt.want, canRetry(errs))
		})
	}
}

func TestAggregate(t *testing.T) {
	res := &types.UnifiedValidationResult{
		Tier1: &types.TierResult[types.URLAnalysis]{Confidence: 0.5},
	}
	assert.InDelta(t, 0.1, aggregate(res, false), 1e-9)

	res.Tier2 = &types.TierResult[types.ContentClassification]{Confidence: 0.75}
	assert.InDelta(t, 0.1+0.6, aggregate(res, false), 1e-9)

	res.Tier3 = &types.TierResult[types.ExtractedJobFields]{Confidence: 1}
	assert.InDelta(t, 0.1+0.3+0.4, aggregate(res, true), 1e-9)

	assert.Zero(t, aggregate(&types.UnifiedValidationResult{}, false))
}

func TestSuccessMessage(t *testing.T) {
	assert.Equal(t, "Job posting verified: Engineer at Acme", successMessage("Engineer", "Acme"))
	assert.Equal(t, "Job posting verified: Engineer", successMessage("Engineer", ""))
	assert.Equal(t, "Job posting verified.", successMessage("", "Acme"))
}

func TestWithExtractionNote(t *testing.T) {
	verified := "Job posting verified: Engineer at Acme"
	assert.Equal(t, verified, withExtractionNote(verified, nil))
	assert.Equal(t, verified, withExtractionNote(verified, &types.TierResult[types.ExtractedJobFields]{}))

	t3 := &types.TierResult[types.ExtractedJobFields]{}
	t3.AddError(types.NewError(types.CodeSystemCircuitOpen, ""))
	assert.Equal(t,
		"Job posting verified: Engineer at Acme. Job details could not be extracted: "+t3.Errors[0].UserMessage,
		withExtractionNote(verified, t3))

	bare := &types.TierResult[types.ExtractedJobFields]{Errors: []types.ValidationError{{Code: "X"}}}
	assert.Equal(t, "Job posting verified. Job details could not be extracted.",
		withExtractionNote("Job posting verified.", bare))
}

func TestShouldRetryAndFetchHealth(t *testing.T) {
	timeout := types.NewError(types.CodeURLTimeout, "")
	notFound := types.NewError(types.CodeURLNotFound, "")
	stale := types.NewError(types.CodeContentStale, "")

	assert.True(t, shouldRetry([]types.ValidationError{timeout}))
	assert.False(t, shouldRetry([]types.ValidationError{timeout, notFound}))
	assert.False(t, shouldRetry([]types.ValidationError{stale}))

	assert.Equal(t, breaker.Failure, fetchHealth([]types.ValidationError{timeout}, false))
	assert.Equal(t, breaker.Ignore, fetchHealth([]types.ValidationError{notFound}, false))
	assert.Equal(t, breaker.Success, fetchHealth(nil, true))
}
