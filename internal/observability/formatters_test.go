package observability

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonathan/job-validator/internal/breaker"
	"github.com/jonathan/job-validator/internal/pipeline"
	"github.com/jonathan/job-validator/internal/types"
)

func TestPrintResult_Valid(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintResult(&types.UnifiedValidationResult{
		URL:                "https://boards.greenhouse.io/acme/jobs/1",
		IsValid:            true,
		OverallConfidence:  0.87,
		HighestTierReached: types.TierExtraction,
		FromCache:          true,
		FinalData: &types.ExtractedJobFields{
			Title: "Senior Engineer", Company: "Acme Corp", Location: "Berlin", Remote: true,
		},
		UserGuidance: types.UserGuidance{PrimaryMessage: "Job posting verified: Senior Engineer at Acme Corp"},
	})
	output := buf.String()

	assert.Contains(t, output, "JOB URL VALIDATION")
	assert.Contains(t, output, "VALID")
	assert.Contains(t, output, "0.87")
	assert.Contains(t, output, "(cached)")
	assert.Contains(t, output, "Acme Corp")
	assert.Contains(t, output, "Berlin (remote)")
	assert.NotContains(t, output, "Issues:")
}

func TestPrintResult_InvalidShowsIssuesAndGuidance(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	wrongType := types.NewError(types.CodeContentWrongType, "career page")
	p.PrintResult(&types.UnifiedValidationResult{
		URL:                "https://acme.example/careers",
		HighestTierReached: types.TierContent,
		Tier2: &types.TierResult[types.ContentClassification]{
			Errors: []types.ValidationError{wrongType},
			Data:   &types.ContentClassification{ContentType: types.ContentCareerPage, WordCount: 120, Language: "en"},
		},
		UserGuidance: types.UserGuidance{
			PrimaryMessage: wrongType.UserMessage,
			ActionRequired: wrongType.Suggestion,
			Suggestions:    []string{wrongType.Suggestion},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "INVALID")
	assert.Contains(t, output, "career_page")
	assert.Contains(t, output, types.CodeContentWrongType)
	assert.Contains(t, output, "→ ")
	assert.Equal(t, 1, strings.Count(output, "Open the specific job"), "action is not repeated as a suggestion")
}

func TestPrintResult_Nil(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintResult(nil)
	assert.Empty(t, buf.String())
}

func TestPrintBox_TruncatesLongLines(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.printBox("TITLE", strings.Repeat("x", 200))

	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		assert.LessOrEqual(t, len([]rune(line)), boxWidth)
	}
	assert.Contains(t, buf.String(), "...")
}

func TestPrintBatch(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintBatch([]*types.UnifiedValidationResult{
		{URL: "https://a.example/jobs/1", IsValid: true, OverallConfidence: 0.9},
		{URL: "https://b.example/about", OverallConfidence: 0.1},
	})
	output := buf.String()

	assert.Contains(t, output, "BATCH: 1/2 VALID")
	assert.Contains(t, output, "✓ 0.90 https://a.example/jobs/1")
	assert.Contains(t, output, "✗ 0.10 https://b.example/about")
}

func TestPrintHealth(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintHealth(pipeline.HealthSnapshot{
		Status:   pipeline.StatusUnhealthy,
		Uptime:   "1m0s",
		Counters: pipeline.Counters{Validations: 3, Valid: 1, Invalid: 2},
		ExtractionBreakers: []breaker.Snapshot{
			{Name: "extraction:engine", State: breaker.StateOpen, ConsecutiveFailures: 5},
		},
	})
	output := buf.String()

	assert.Contains(t, output, "unhealthy")
	assert.Contains(t, output, "3 (1 valid, 2 invalid)")
	assert.Contains(t, output, "extraction:engine OPEN")
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "json")
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(-1))

	_, err = NewLogger("loud", "console")
	assert.Error(t, err)
}
