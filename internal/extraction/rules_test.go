package extraction

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jonathan/job-validator/internal/types"
)

func fieldsWith(title, company, location string) *types.ExtractedJobFields {
	return &types.ExtractedJobFields{
		Title:    title,
		Company:  company,
		Location: location,
		Confidence: types.FieldConfidence{
			Title: 1, Company: 1, Location: 1, Overall: 1,
		},
	}
}

func warningCodes(ws []types.ValidationWarning) []string {
	codes := make([]string, 0, len(ws))
	for _, w := range ws {
		codes = append(codes, w.Code)
	}
	return codes
}

func TestApplyRules_CleanFieldsUnchanged(t *testing.T) {
	f := fieldsWith("Senior Go Engineer", "Acme", "Berlin")
	warnings := ApplyRules(f, "greenhouse")

	assert.Empty(t, warnings)
	assert.Equal(t, 1.0, f.Confidence.Title)
	assert.Equal(t, 1.0, f.Confidence.Overall)
	assert.False(t, f.Remote)
}

func TestApplyRules(t *testing.T) {
	tests := []struct {
		name         string
		fields       *types.ExtractedJobFields
		platform     string
		wantTitle    float64
		wantCompany  float64
		wantLocation float64
		wantRemote   bool
		wantCodes    []string
	}{
		{
			name:         "title contains company",
			fields:       fieldsWith("Acme Backend Engineer", "Acme", "Paris"),
			wantTitle:    0.8,
			wantCompany:  1,
			wantLocation: 1,
			wantCodes:    []string{types.WarnTitleSuspicious},
		},
		{
			name:         "long title",
			fields:       fieldsWith(strings.Repeat("x", 130), "Acme", "Paris"),
			wantTitle:    0.8,
			wantCompany:  1,
			wantLocation: 1,
			wantCodes:    []string{types.WarnTitleSuspicious},
		},
		{
			name:         "listing title",
			fields:       fieldsWith("Jobs at Globex", "Initech", "Paris"),
			wantTitle:    0.7,
			wantCompany:  1,
			wantLocation: 1,
			wantCodes:    []string{types.WarnTitleSuspicious},
		},
		{
			name:         "company is the job board",
			fields:       fieldsWith("Data Analyst", "LinkedIn", "Paris"),
			platform:     "linkedin",
			wantTitle:    1,
			wantCompany:  0.5,
			wantLocation: 1,
			wantCodes:    []string{types.WarnCompanyMissing},
		},
		{
			name:         "missing company",
			fields:       fieldsWith("Data Analyst", "", "Paris"),
			wantTitle:    1,
			wantCompany:  0,
			wantLocation: 1,
			wantCodes:    []string{types.WarnCompanyMissing},
		},
		{
			name:         "empty location",
			fields:       fieldsWith("Data Analyst", "Acme", " "),
			wantTitle:    1,
			wantCompany:  1,
			wantLocation: 0,
			wantCodes:    []string{},
		},
		{
			name:         "remote inferred",
			fields:       fieldsWith("Data Analyst", "Acme", "Remote - US"),
			wantTitle:    1,
			wantCompany:  1,
			wantLocation: 1,
			wantRemote:   true,
			wantCodes:    []string{types.WarnRemoteInferred},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			warnings := ApplyRules(tt.fields, tt.platform)

			assert.InDelta(t, tt.wantTitle, tt.fields.Confidence.Title, 1e-9)
			assert.InDelta(t, tt.wantCompany, tt.fields.Confidence.Company, 1e-9)
			assert.InDelta(t, tt.wantLocation, tt.fields.Confidence.Location, 1e-9)
			assert.Equal(t, tt.wantRemote, tt.fields.Remote)
			assert.ElementsMatch(t, tt.wantCodes, warningCodes(warnings))
		})
	}
}

func TestApplyRules_OverallCappedByFieldMean(t *testing.T) {
	f := fieldsWith("Data Analyst", "", "")
	f.Confidence.Overall = 0.95

	ApplyRules(f, "")

	// 0.4*1 + 0.35*0 + 0.25*0 + 0.1
	assert.InDelta(t, 0.5, f.Confidence.Overall, 1e-9)
}

func TestApplyRules_OverallKeepsLowerReported(t *testing.T) {
	f := fieldsWith("Data Analyst", "Acme", "Paris")
	f.Confidence.Overall = 0.4

	ApplyRules(f, "")

	assert.InDelta(t, 0.4, f.Confidence.Overall, 1e-9)
}
