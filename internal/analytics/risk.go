package analytics

import (
	"fmt"
	"sort"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

// RiskLevel is a stratification bucket.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

var riskLevels = []RiskLevel{RiskLow, RiskModerate, RiskHigh, RiskCritical}

// criticalCrossings is the number of high-risk instruments that makes a
// patient critical.
const criticalCrossings = 3

type RiskBucket struct {
	Level   RiskLevel `json:"level"`
	Count   int       `json:"count"`
	Percent float64   `json:"percent"`
}

type PatientRisk struct {
	PatientID string         `json:"patient_id"`
	Program   domain.Program `json:"program"`
	Level     RiskLevel      `json:"level"`
	Factors   []string       `json:"factors"`
}

type RiskReport struct {
	Assessed   int           `json:"assessed"`
	Unassessed int           `json:"unassessed"`
	Buckets    []RiskBucket  `json:"buckets"`
	Patients   []PatientRisk `json:"patients"`
}

// ClassifyRisk buckets one merged record.
func ClassifyRisk(s domain.AssessmentScore) (RiskLevel, []string) {
	var factors []string
	high := 0
	moderate := 0
	for _, in := range domain.Instruments {
		v, ok := s.Score(in)
		if !ok {
			continue
		}
		switch {
		case v >= domain.HighRiskThreshold[in]:
			high++
			factors = append(factors, fmt.Sprintf("%s %.0f >= %.0f", in, v, domain.HighRiskThreshold[in]))
		case v >= domain.ModerateThreshold[in]:
			moderate++
			factors = append(factors, fmt.Sprintf("%s %.0f elevated", in, v))
		}
	}
	switch {
	case high >= criticalCrossings:
		return RiskCritical, factors
	case high > 0:
		return RiskHigh, factors
	case moderate > 0:
		return RiskModerate, factors
	}
	return RiskLow, factors
}

// StratifyRisk classifies every patient on their latest record. Patients
// without any record are counted as unassessed and left out of the buckets.
// Patients are listed most severe first.
func StratifyRisk(patients []domain.Patient, scores []domain.AssessmentScore) RiskReport {
	latest := domain.LatestByPatient(scores)
	report := RiskReport{}
	counts := make(map[RiskLevel]int)
	for _, p := range patients {
		s, ok := latest[p.ID]
		if !ok {
			report.Unassessed++
			continue
		}
		level, factors := ClassifyRisk(s)
		counts[level]++
		report.Patients = append(report.Patients, PatientRisk{
			PatientID: p.ID,
			Program:   p.Program,
			Level:     level,
			Factors:   factors,
		})
	}
	report.Assessed = len(report.Patients)
	for _, l := range riskLevels {
		report.Buckets = append(report.Buckets, RiskBucket{
			Level:   l,
			Count:   counts[l],
			Percent: percent(counts[l], report.Assessed),
		})
	}
	rank := map[RiskLevel]int{RiskCritical: 0, RiskHigh: 1, RiskModerate: 2, RiskLow: 3}
	sort.SliceStable(report.Patients, func(i, j int) bool {
		a, b := report.Patients[i], report.Patients[j]
		if rank[a.Level] != rank[b.Level] {
			return rank[a.Level] < rank[b.Level]
		}
		return a.PatientID < b.PatientID
	})
	return report
}
