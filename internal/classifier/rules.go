package classifier

import (
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// KeywordRule yields Verdict when the probed text equals or contains any keyword
type KeywordRule struct {
	Name     string
	Keywords []string
	Verdict  bool
}

// Match returns the first keyword the lowercased text equals or contains
func (r KeywordRule) Match(text string) (string, bool) {
	for _, w := range r.Keywords {
		if text == w || strings.Contains(text, w) {
			return w, true
		}
	}
	return "", false
}

// SeverityRule maps a raw severity to a level when Match holds
type SeverityRule struct {
	Name     string
	Match    func(s string) bool
	Severity models.Severity
}

// Non-conformity keywords in status columns. Checked before okKeywords because
// several NC phrases contain an OK word ("non conform" contains "conform").
var ncKeywords = []string{
	"non conform",
	"non-conform",
	"nonconform",
	"nc",
	"nok",
	"no",
	"fail",
	"not compliant",
	"non compliant",
}

var okKeywords = []string{"conform", "ok", "yes", "pass", "compliant", "closed"}

// Phrases in finding or recommendation text that signal a non-conformity on their own
var textPhrases = []string{"non conform", "non-compliant", "not compliant", "non compliant", "violation"}

// DefaultStatusRules is evaluated against the status column, first match wins
func DefaultStatusRules() []KeywordRule {
	return []KeywordRule{
		{Name: "status-nc", Keywords: append([]string{}, ncKeywords...), Verdict: true},
		{Name: "status-ok", Keywords: append([]string{}, okKeywords...), Verdict: false},
	}
}

// DefaultTextRules is evaluated against finding and recommendation text
// when the status column is empty or inconclusive
func DefaultTextRules() []KeywordRule {
	return []KeywordRule{
		{Name: "text-nc", Keywords: append([]string{}, textPhrases...), Verdict: true},
	}
}

func contains(sub string) func(string) bool {
	return func(s string) bool { return strings.Contains(s, sub) }
}

func oneOf(values ...string) func(string) bool {
	return func(s string) bool {
		for _, v := range values {
			if s == v {
				return true
			}
		}
		return false
	}
}

// DefaultSeverityRules probes keywords by priority, then priority codes
func DefaultSeverityRules() []SeverityRule {
	return []SeverityRule{
		{Name: "crit", Match: contains("crit"), Severity: models.SeverityCritical},
		{Name: "high", Match: contains("high"), Severity: models.SeverityHigh},
		{Name: "med", Match: contains("med"), Severity: models.SeverityMedium},
		{Name: "low", Match: contains("low"), Severity: models.SeverityLow},
		{Name: "info", Match: contains("info"), Severity: models.SeverityInfo},
		{Name: "p1", Match: oneOf("1", "p1"), Severity: models.SeverityCritical},
		{Name: "p2", Match: oneOf("2", "p2"), Severity: models.SeverityHigh},
		{Name: "p3", Match: oneOf("3", "p3"), Severity: models.SeverityMedium},
		{Name: "p4", Match: oneOf("4", "p4"), Severity: models.SeverityLow},
	}
}
