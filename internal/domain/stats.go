package domain

import "math"

// DashboardStats is derived from the loaded collections on every load and
// never persisted.
type DashboardStats struct {
	TotalPatients                int                    `json:"total_patients"`
	ActivePatients               int                    `json:"active_patients"`
	DischargedPatients           int                    `json:"discharged_patients"`
	TotalAssessments             int                    `json:"total_assessments"`
	AvgAssessmentsPerPatient     float64                `json:"avg_assessments_per_patient"`
	HighRiskCount                int                    `json:"high_risk_count"`
	AverageScores                map[Instrument]float64 `json:"average_scores"`
	ProgramCounts                map[Program]int        `json:"program_counts"`
	PatientsWithSubstanceHistory int                    `json:"patients_with_substance_history"`
	ActiveSubstanceUsers         int                    `json:"active_substance_users"`
	PHPRecordCount               int                    `json:"php_record_count"`
	BPSRecordCount               int                    `json:"bps_record_count"`
}

// Round1 rounds half away from zero to one decimal place.
func Round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// ComputeStats derives the dashboard aggregates. High risk is judged on each
// patient's latest merged record only.
func ComputeStats(patients []Patient, scores []AssessmentScore, substances []SubstanceHistory, php []PHPAssessment, bps []BPSAssessment) DashboardStats {
	st := DashboardStats{
		TotalPatients:    len(patients),
		TotalAssessments: len(scores),
		AverageScores:    make(map[Instrument]float64),
		ProgramCounts:    make(map[Program]int),
		PHPRecordCount:   len(php),
		BPSRecordCount:   len(bps),
	}
	for _, p := range patients {
		if p.Discharged {
			st.DischargedPatients++
		} else {
			st.ActivePatients++
		}
		st.ProgramCounts[p.Program]++
	}
	if st.TotalPatients > 0 {
		st.AvgAssessmentsPerPatient = Round1(float64(st.TotalAssessments) / float64(st.TotalPatients))
	}

	for _, s := range LatestByPatient(scores) {
		if s.IsHighRisk() {
			st.HighRiskCount++
		}
	}

	for _, in := range Instruments {
		var sum float64
		var n int
		for _, s := range scores {
			if v, ok := s.Score(in); ok {
				sum += v
				n++
			}
		}
		if n > 0 {
			st.AverageScores[in] = Round1(sum / float64(n))
		}
	}

	withHistory := make(map[string]struct{})
	active := make(map[string]struct{})
	for _, h := range substances {
		withHistory[h.PatientID] = struct{}{}
		if h.Active {
			active[h.PatientID] = struct{}{}
		}
	}
	st.PatientsWithSubstanceHistory = len(withHistory)
	st.ActiveSubstanceUsers = len(active)
	return st
}
