package classifier

import (
	"testing"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
	"github.com/stretchr/testify/assert"
)

func TestIsNonConformity_StatusKeywords(t *testing.T) {
	c := Default()
	tests := []struct {
		status string
		want   bool
	}{
		{"Non Conforme", true},
		{"NON-CONFORMITY", true},
		{"NC", true},
		{"NOK", true},
		{"Fail", true},
		{"not compliant", true},
		{"Conforme", false},
		{"OK", false},
		{"Yes", false},
		{"Pass", false},
		{"Closed", false},
		{"compliant", false},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			got, _ := c.IsNonConformity(tt.status, "", "")
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIsNonConformity_NCKeywordWinsOverEverything(t *testing.T) {
	c := Default()
	for _, kw := range ncKeywords {
		got, rule := c.IsNonConformity("status: "+kw, "All good, fully compliant", "none")
		assert.True(t, got, kw)
		assert.Equal(t, "status-nc", rule)
	}
}

func TestIsNonConformity_TextFallback(t *testing.T) {
	c := Default()

	got, rule := c.IsNonConformity("", "Wage records show a violation of overtime caps", "")
	assert.True(t, got)
	assert.Equal(t, "text-nc", rule)

	got, _ = c.IsNonConformity("pending review", "", "Site is non-compliant with exit signage")
	assert.True(t, got, "inconclusive status falls through to text rules")
}

func TestIsNonConformity_DefaultIsSafe(t *testing.T) {
	c := Default()
	texts := []string{"", "Lighting levels adequate", "Consider adding extra training"}
	for _, text := range texts {
		got, rule := c.IsNonConformity("", text, "Keep monitoring")
		assert.False(t, got, text)
		assert.Empty(t, rule)
	}
}

func TestNormalizeSeverity(t *testing.T) {
	c := Default()
	tests := []struct {
		raw  string
		want models.Severity
	}{
		{"", models.SeverityInfo},
		{"  CRITICAL ", models.SeverityCritical},
		{"Very High", models.SeverityHigh},
		{"Medium", models.SeverityMedium},
		{"med", models.SeverityMedium},
		{"Low", models.SeverityLow},
		{"Informational", models.SeverityInfo},
		{"1", models.SeverityCritical},
		{"P2", models.SeverityHigh},
		{"p3", models.SeverityMedium},
		{"4", models.SeverityLow},
		{"5", models.SeverityInfo},
		{"urgent", models.SeverityInfo},
		{"critical-high", models.SeverityCritical},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, c.NormalizeSeverity(tt.raw))
		})
	}
}

func TestFromConfig_ExtendsTables(t *testing.T) {
	c := FromConfig(models.ClassifierConfig{
		ExtraNCKeywords:  []string{" Major "},
		ExtraOKKeywords:  []string{"acceptable"},
		ExtraTextPhrases: []string{"breach"},
	})

	got, _ := c.IsNonConformity("major finding", "", "")
	assert.True(t, got)

	got, _ = c.IsNonConformity("acceptable", "", "")
	assert.False(t, got)

	got, _ = c.IsNonConformity("", "contract breach found", "")
	assert.True(t, got)

	// the built-in tables are untouched
	got, _ = Default().IsNonConformity("major finding", "", "")
	assert.False(t, got)
}

func TestClassify(t *testing.T) {
	r := Default().Classify(Input{RawStatus: "Non Conforme", Text: "Missing fire extinguisher", Severity: "High"})
	assert.True(t, r.IsNonConformity)
	assert.Equal(t, models.SeverityHigh, r.Severity)
}
