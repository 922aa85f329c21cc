package domain

import (
	"slices"
	"strings"
)

// Severity is a published severity band label.
type Severity string

type band struct {
	upper float64 // exclusive unless inclusive is set
	label Severity
}

type bands struct {
	inclusive bool
	steps     []band
	top       Severity
}

var severityBands = map[Instrument]bands{
	InstrumentPHQ: {steps: []band{{5, "minimal"}, {10, "mild"}, {15, "moderate"}, {20, "moderately_severe"}}, top: "severe"},
	InstrumentGAD: {steps: []band{{5, "minimal"}, {10, "mild"}, {15, "moderate"}}, top: "severe"},
	InstrumentPCL: {steps: []band{{20, "minimal"}, {40, "mild"}, {60, "moderate"}}, top: "severe"},
	InstrumentWHO: {steps: []band{{10, "none"}, {20, "mild"}, {30, "moderate"}}, top: "severe"},
	// DERS bands are closed on the upper bound.
	InstrumentDERS: {inclusive: true, steps: []band{{90, "low"}, {120, "moderate"}}, top: "high"},
}

// Classify returns the severity band for a total on an instrument.
func Classify(in Instrument, total float64) Severity {
	b, ok := severityBands[in]
	if !ok {
		return ""
	}
	for _, s := range b.steps {
		if total < s.upper || (b.inclusive && total == s.upper) {
			return s.label
		}
	}
	return b.top
}

// SeverityLabels lists the bands of an instrument from lowest to highest.
func SeverityLabels(in Instrument) []Severity {
	b := severityBands[in]
	out := make([]Severity, 0, len(b.steps)+1)
	for _, s := range b.steps {
		out = append(out, s.label)
	}
	return append(out, b.top)
}

// SortScores orders scores by patient, then date ascending.
func SortScores(scores []AssessmentScore) {
	slices.SortStableFunc(scores, func(a, b AssessmentScore) int {
		if c := strings.Compare(a.PatientID, b.PatientID); c != 0 {
			return c
		}
		return a.Date.Compare(b.Date)
	})
}

// LatestByPatient returns each patient's most recent merged record.
func LatestByPatient(scores []AssessmentScore) map[string]AssessmentScore {
	latest := make(map[string]AssessmentScore)
	for _, s := range scores {
		cur, ok := latest[s.PatientID]
		if !ok || s.Date.After(cur.Date) {
			latest[s.PatientID] = s
		}
	}
	return latest
}
