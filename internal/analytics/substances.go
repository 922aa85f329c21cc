package analytics

import (
	"sort"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/samber/lo"
)

// Substance risk weights. A user scoring at least substanceRiskCutoff is
// flagged.
const (
	weightHighRiskSubstance = 3
	weightDailyUse          = 2
	weightPolySubstance     = 1
	polySubstanceMin        = 3
	substanceRiskCutoff     = 2
)

type NamedCount struct {
	Name    string  `json:"name"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

type SubstanceRiskUser struct {
	PatientID        string   `json:"patient_id"`
	ActiveSubstances []string `json:"active_substances"`
	RiskScore        int      `json:"risk_score"`
	Factors          []string `json:"factors"`
}

type SubstanceReport struct {
	TotalPatients         int                 `json:"total_patients"`
	TotalRecords          int                 `json:"total_records"`
	PatientsWithActiveUse int                 `json:"patients_with_active_use"`
	Substances            []NamedCount        `json:"substances"`
	Patterns              []NamedCount        `json:"patterns"`
	HighRiskUsers         []SubstanceRiskUser `json:"high_risk_users"`
}

// SubstancePatterns summarizes active use across the population and flags
// high-risk users.
func SubstancePatterns(history []domain.SubstanceHistory) SubstanceReport {
	active := lo.Filter(history, func(h domain.SubstanceHistory, _ int) bool { return h.Active })
	report := SubstanceReport{
		TotalPatients: len(lo.Uniq(lo.Map(history, func(h domain.SubstanceHistory, _ int) string { return h.PatientID }))),
		TotalRecords:  len(history),
	}

	report.Substances = rankCounts(lo.CountValuesBy(active, func(h domain.SubstanceHistory) string { return h.Substance }), len(active))
	report.Patterns = rankCounts(lo.CountValuesBy(active, func(h domain.SubstanceHistory) string {
		if h.Pattern == "" {
			return "Unknown"
		}
		return h.Pattern
	}), len(active))

	byPatient := lo.GroupBy(active, func(h domain.SubstanceHistory) string { return h.PatientID })
	report.PatientsWithActiveUse = len(byPatient)
	for id, lines := range byPatient {
		u := scoreSubstanceUser(id, lines)
		if u.RiskScore >= substanceRiskCutoff {
			report.HighRiskUsers = append(report.HighRiskUsers, u)
		}
	}
	sort.Slice(report.HighRiskUsers, func(i, j int) bool {
		a, b := report.HighRiskUsers[i], report.HighRiskUsers[j]
		if a.RiskScore != b.RiskScore {
			return a.RiskScore > b.RiskScore
		}
		return a.PatientID < b.PatientID
	})
	return report
}

func scoreSubstanceUser(id string, lines []domain.SubstanceHistory) SubstanceRiskUser {
	u := SubstanceRiskUser{
		PatientID:        id,
		ActiveSubstances: lo.Map(lines, func(h domain.SubstanceHistory, _ int) string { return h.Substance }),
	}
	if lo.SomeBy(lines, func(h domain.SubstanceHistory) bool { return domain.IsHighRiskSubstance(h.Substance) }) {
		u.RiskScore += weightHighRiskSubstance
		u.Factors = append(u.Factors, "Uses high-risk substances")
	}
	if lo.SomeBy(lines, func(h domain.SubstanceHistory) bool { return domain.IsDailyPattern(h.Pattern) }) {
		u.RiskScore += weightDailyUse
		u.Factors = append(u.Factors, "Daily/continued use pattern")
	}
	if len(lines) >= polySubstanceMin {
		u.RiskScore += weightPolySubstance
		u.Factors = append(u.Factors, "Multiple active substances")
	}
	return u
}

// rankCounts orders counts descending, ties by name.
func rankCounts(counts map[string]int, total int) []NamedCount {
	out := make([]NamedCount, 0, len(counts))
	for name, n := range counts {
		out = append(out, NamedCount{Name: name, Count: n, Percent: percent(n, total)})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Name < out[j].Name
	})
	return out
}
