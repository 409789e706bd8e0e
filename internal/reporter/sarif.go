package reporter

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/ethanolivertroy/nc-tracker/internal/closure"
	"github.com/ethanolivertroy/nc-tracker/internal/models"
)

// SARIFReporter outputs unresolved non-conformities in SARIF format so they can
// be tracked by code-scanning dashboards
type SARIFReporter struct {
	// SourceURI is the report file the findings came from
	SourceURI string
}

// SARIF structures
type sarifReport struct {
	Schema  string     `json:"$schema"`
	Version string     `json:"version"`
	Runs    []sarifRun `json:"runs"`
}

type sarifRun struct {
	Tool    sarifTool     `json:"tool"`
	Results []sarifResult `json:"results"`
}

type sarifTool struct {
	Driver sarifDriver `json:"driver"`
}

type sarifDriver struct {
	Name           string      `json:"name"`
	Version        string      `json:"version"`
	InformationURI string      `json:"informationUri"`
	Rules          []sarifRule `json:"rules"`
}

type sarifRule struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	ShortDescription sarifText       `json:"shortDescription"`
	DefaultConfig    sarifRuleConfig `json:"defaultConfiguration"`
	Properties       sarifProperties `json:"properties"`
}

type sarifText struct {
	Text string `json:"text"`
}

type sarifRuleConfig struct {
	Level string `json:"level"`
}

type sarifProperties struct {
	Tags []string `json:"tags"`
}

type sarifResult struct {
	RuleID              string            `json:"ruleId"`
	RuleIndex           int               `json:"ruleIndex"`
	Level               string            `json:"level"`
	Message             sarifText         `json:"message"`
	Locations           []sarifLocation   `json:"locations"`
	PartialFingerprints map[string]string `json:"partialFingerprints"`
	Properties          map[string]any    `json:"properties,omitempty"`
}

type sarifLocation struct {
	PhysicalLocation *sarifPhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []sarifLogical         `json:"logicalLocations,omitempty"`
}

type sarifPhysicalLocation struct {
	ArtifactLocation sarifArtifact `json:"artifactLocation"`
}

type sarifArtifact struct {
	URI string `json:"uri"`
}

type sarifLogical struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
}

// sarifLevel maps a finding severity to a SARIF level
func sarifLevel(s models.Severity) string {
	switch s {
	case models.SeverityCritical, models.SeverityHigh:
		return "error"
	case models.SeverityMedium:
		return "warning"
	}
	return "note"
}

// Report generates SARIF output for the given records
func (r *SARIFReporter) Report(records []Record) ([]byte, error) {
	var open []Record
	for _, rec := range records {
		if rec.IsNC && rec.State != closure.StateClosed {
			open = append(open, rec)
		}
	}
	rules, ruleIndexMap := r.buildRules(open)

	report := sarifReport{
		Schema:  "https://json.schemastore.org/sarif-2.1.0.json",
		Version: "2.1.0",
		Runs: []sarifRun{{
			Tool: sarifTool{
				Driver: sarifDriver{
					Name:           "nctracker",
					Version:        SnapshotVersion,
					InformationURI: "https://github.com/ethanolivertroy/nc-tracker",
					Rules:          rules,
				},
			},
			Results: r.buildResults(open, ruleIndexMap),
		}},
	}

	return json.MarshalIndent(report, "", "  ")
}

// buildRules creates one rule per category, at the level of its most severe finding
func (r *SARIFReporter) buildRules(records []Record) ([]sarifRule, map[string]int) {
	ruleMap := make(map[string]sarifRule)
	ruleIndexMap := make(map[string]int)
	worst := make(map[string]models.Severity)

	for _, rec := range records {
		id := ruleID(rec.Category)
		if _, exists := ruleMap[id]; !exists {
			ruleMap[id] = sarifRule{
				ID:               id,
				Name:             rec.Category,
				ShortDescription: sarifText{Text: fmt.Sprintf("Non-conformity: %s", rec.Category)},
				Properties:       sarifProperties{Tags: []string{"compliance", "non-conformity"}},
			}
			worst[id] = rec.Severity
		}
		if rec.Severity.Rank() < worst[id].Rank() {
			worst[id] = rec.Severity
		}
	}

	ids := make([]string, 0, len(ruleMap))
	for id := range ruleMap {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	rules := make([]sarifRule, 0, len(ruleMap))
	for _, id := range ids {
		rule := ruleMap[id]
		rule.DefaultConfig = sarifRuleConfig{Level: sarifLevel(worst[id])}
		ruleIndexMap[id] = len(rules)
		rules = append(rules, rule)
	}

	return rules, ruleIndexMap
}

func (r *SARIFReporter) buildResults(records []Record, ruleIndexMap map[string]int) []sarifResult {
	results := []sarifResult{}

	for _, rec := range records {
		id := ruleID(rec.Category)
		msg := fmt.Sprintf("Non-conformity %s is %s: %s", rec.ID, rec.State.Label(), rec.Finding)
		if rec.Recommendation != "" {
			msg += fmt.Sprintf(" (action: %s)", rec.Recommendation)
		}

		location := sarifLocation{
			LogicalLocations: []sarifLogical{{Name: rec.ID, Kind: "finding"}},
		}
		if r.SourceURI != "" {
			location.PhysicalLocation = &sarifPhysicalLocation{
				ArtifactLocation: sarifArtifact{URI: r.SourceURI},
			}
		}

		props := map[string]any{"severity": rec.Severity}
		if rec.Owner != "" {
			props["owner"] = rec.Owner
		}
		if rec.DueDate != "" {
			props["dueDate"] = rec.DueDate
		}

		results = append(results, sarifResult{
			RuleID:    id,
			RuleIndex: ruleIndexMap[id],
			Level:     sarifLevel(rec.Severity),
			Message:   sarifText{Text: msg},
			Locations: []sarifLocation{location},
			PartialFingerprints: map[string]string{
				"findingId": rec.ID,
			},
			Properties: props,
		})
	}

	return results
}

func ruleID(category string) string {
	if category == "" {
		return "nc/General"
	}
	return "nc/" + category
}
