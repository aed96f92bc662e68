package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTierResult_Blocking(t *testing.T) {
	r := &TierResult[URLAnalysis]{IsValid: true}
	assert.False(t, r.HasBlocking())
	assert.Nil(t, r.FirstBlocking())

	r.AddError(NewError(CodeURLServerError, "503"))
	assert.True(t, r.IsValid, "degraded errors keep the result valid")
	assert.False(t, r.HasBlocking())

	r.AddError(NewError(CodeURLNotFound, "404"))
	r.AddError(NewError(CodeURLExpired, "closed"))
	assert.False(t, r.IsValid)
	require.NotNil(t, r.FirstBlocking())
	assert.Equal(t, CodeURLNotFound, r.FirstBlocking().Code)

	var nilResult *TierResult[URLAnalysis]
	assert.Nil(t, nilResult.FirstBlocking())
	assert.False(t, nilResult.HasCode(CodeURLNotFound))
	assert.False(t, nilResult.IsRetryable())
}

func TestTierResult_IsRetryable(t *testing.T) {
	tests := []struct {
		name  string
		codes []string
		want  bool
	}{
		{name: "no errors", want: false},
		{name: "transient only", codes: []string{CodeURLTimeout}, want: true},
		{name: "retryable blocking", codes: []string{CodeSystemRateLimited}, want: true},
		{name: "transient with terminal", codes: []string{CodeURLTimeout, CodeURLNotFound}, want: false},
		{name: "degraded not retryable", codes: []string{CodeContentStale}, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &TierResult[ContentClassification]{}
			for _, c := range tt.codes {
				r.AddError(NewError(c, ""))
			}
			assert.Equal(t, tt.want, r.IsRetryable())
		})
	}
}

func TestTierResult_HasCode(t *testing.T) {
	r := &TierResult[ContentClassification]{}
	r.AddError(NewError(CodeContentWrongType, "career page"))
	assert.True(t, r.HasCode(CodeContentWrongType))
	assert.False(t, r.HasCode(CodeContentExpired))
}

func TestTierResult_CloneIsDeep(t *testing.T) {
	orig := &TierResult[ExtractedJobFields]{
		IsValid: true,
		Data:    &ExtractedJobFields{Title: "Engineer", Company: "Acme"},
		Errors:  []ValidationError{NewError(CodeParsingMissingField, "location")},
	}
	clone := orig.Clone()

	clone.Data.Title = "Changed"
	clone.Errors[0].Code = "X"
	clone.AddWarning(NewWarning(WarnRemoteInferred, "", ImpactLow))

	assert.Equal(t, "Engineer", orig.Data.Title)
	assert.Equal(t, CodeParsingMissingField, orig.Errors[0].Code)
	assert.Empty(t, orig.Warnings)

	var nilResult *TierResult[ExtractedJobFields]
	assert.Nil(t, nilResult.Clone())
}

func TestUnifiedValidationResult_AllErrorsOrder(t *testing.T) {
	res := &UnifiedValidationResult{
		Errors: []ValidationError{NewError(CodeSystemRateLimited, "")},
		Tier1: &TierResult[URLAnalysis]{
			Errors:   []ValidationError{NewError(CodeURLServerError, "")},
			Warnings: []ValidationWarning{NewWarning(WarnRedirected, "", ImpactLow)},
		},
		Tier3: &TierResult[ExtractedJobFields]{
			Errors:   []ValidationError{NewError(CodeParsingLowQuality, "")},
			Warnings: []ValidationWarning{NewWarning(WarnCompanyMissing, "", ImpactMedium)},
		},
	}

	var codes []string
	for _, e := range res.AllErrors() {
		codes = append(codes, e.Code)
	}
	assert.Equal(t, []string{CodeSystemRateLimited, CodeURLServerError, CodeParsingLowQuality}, codes)

	warnings := res.AllWarnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, WarnRedirected, warnings[0].Code)
	assert.Equal(t, WarnCompanyMissing, warnings[1].Code)

	// AllErrors never aliases the pipeline-level slice.
	all := res.AllErrors()
	all[0].Code = "X"
	assert.Equal(t, CodeSystemRateLimited, res.Errors[0].Code)
}

func TestExtractedJobFields_CloneIndependent(t *testing.T) {
	var nilFields *ExtractedJobFields
	assert.Nil(t, nilFields.Clone())

	f := &ExtractedJobFields{Title: "Engineer"}
	c := f.Clone()
	c.Title = "Other"
	assert.Equal(t, "Engineer", f.Title)
}
