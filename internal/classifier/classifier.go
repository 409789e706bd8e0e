package classifier

import (
	"strings"

	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// Input carries the raw columns a classification is derived from
type Input struct {
	RawStatus      string
	Text           string
	Recommendation string
	Severity       string
}

// Result is the outcome of classifying one row
type Result struct {
	IsNonConformity bool            `json:"isNonConformity"`
	Severity        models.Severity `json:"severity"`
	// Rule names the rule that decided IsNonConformity, empty for the default
	Rule string `json:"rule,omitempty"`
}

// Classifier holds the ordered rule tables
type Classifier struct {
	StatusRules   []KeywordRule
	TextRules     []KeywordRule
	SeverityRules []SeverityRule
}

// Default returns a classifier with the built-in tables
func Default() *Classifier {
	return &Classifier{
		StatusRules:   DefaultStatusRules(),
		TextRules:     DefaultTextRules(),
		SeverityRules: DefaultSeverityRules(),
	}
}

// FromConfig extends the built-in tables with configured keywords.
// Extra NC keywords join the NC rule and so keep priority over OK keywords.
func FromConfig(cfg models.ClassifierConfig) *Classifier {
	c := Default()
	c.StatusRules[0].Keywords = appendLower(c.StatusRules[0].Keywords, cfg.ExtraNCKeywords)
	c.StatusRules[1].Keywords = appendLower(c.StatusRules[1].Keywords, cfg.ExtraOKKeywords)
	c.TextRules[0].Keywords = appendLower(c.TextRules[0].Keywords, cfg.ExtraTextPhrases)
	return c
}

func appendLower(base, extra []string) []string {
	for _, w := range extra {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			base = append(base, w)
		}
	}
	return base
}

// Classify decides whether a row is a non-conformity and normalizes its severity
func (c *Classifier) Classify(in Input) Result {
	nc, rule := c.IsNonConformity(in.RawStatus, in.Text, in.Recommendation)
	return Result{
		IsNonConformity: nc,
		Severity:        c.NormalizeSeverity(in.Severity),
		Rule:            rule,
	}
}

// IsNonConformity applies the status rules, then the text rules, then defaults to false.
// A missing signal must not manufacture a non-conformity.
func (c *Classifier) IsNonConformity(rawStatus, text, recommendation string) (bool, string) {
	if s := strings.ToLower(strings.TrimSpace(rawStatus)); s != "" {
		for _, r := range c.StatusRules {
			if _, ok := r.Match(s); ok {
				return r.Verdict, r.Name
			}
		}
	}

	body := strings.ToLower(text + " " + recommendation)
	for _, r := range c.TextRules {
		if _, ok := r.Match(body); ok {
			return r.Verdict, r.Name
		}
	}
	return false, ""
}

// NormalizeSeverity maps free text or a priority code to a severity; unmatched is info
func (c *Classifier) NormalizeSeverity(raw string) models.Severity {
	s := strings.ToLower(strings.TrimSpace(raw))
	if s == "" {
		return models.SeverityInfo
	}
	for _, r := range c.SeverityRules {
		if r.Match(s) {
			return r.Severity
		}
	}
	return models.SeverityInfo
}
