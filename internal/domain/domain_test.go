package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func f(v float64) *float64 { return &v }

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestReadingFromRow_SumsQuestionColumns(t *testing.T) {
	row := Row{
		"group_identifier":   "P001",
		"assessment_date":    "2024-03-01",
		"col_1_interest":     int64(2),
		"col_2_feeling_down": []byte("3"),
		"col_9_self_harm":    1.0,
		"col_10_difficulty":  3, // not a PHQ-9 item
		"unrelated":          "x",
	}

	rd, ok := ReadingFromRow(InstrumentPHQ, row)
	require.True(t, ok)
	assert.Equal(t, "P001", rd.PatientID)
	assert.Equal(t, day("2024-03-01"), rd.Date)
	assert.Equal(t, 6.0, rd.Total)
}

func TestReadingFromRow_TotalScoreWins(t *testing.T) {
	row := Row{
		"group_identifier": "P001",
		"assessment_date":  time.Date(2024, 3, 1, 15, 4, 0, 0, time.UTC),
		"total_score":      "42",
		"ptsd_q1_memories": 4,
	}

	rd, ok := ReadingFromRow(InstrumentPCL, row)
	require.True(t, ok)
	assert.Equal(t, 42.0, rd.Total)
	assert.Equal(t, day("2024-03-01"), rd.Date)
}

func TestReadingFromRow_RejectsIncompleteRows(t *testing.T) {
	_, ok := ReadingFromRow(InstrumentGAD, Row{"assessment_date": "2024-03-01", "col_1_nervous": 1})
	assert.False(t, ok, "missing identifier")

	_, ok = ReadingFromRow(InstrumentGAD, Row{"group_identifier": "P1", "col_1_nervous": 1})
	assert.False(t, ok, "missing date")

	_, ok = ReadingFromRow(InstrumentGAD, Row{"group_identifier": "P1", "assessment_date": "2024-03-01"})
	assert.False(t, ok, "no answers")
}

func TestReadingFromRow_DERSBothTables(t *testing.T) {
	row := Row{
		"group_identifier": "P1",
		"assessment_date":  "2024-03-01",
		"ders_q1_clear":    3,
		"ders2_q2_aware":   4,
	}
	rd, ok := ReadingFromRow(InstrumentDERS, row)
	require.True(t, ok)
	assert.Equal(t, 7.0, rd.Total)
}

func TestMergeReadings_ByPatientAndDate(t *testing.T) {
	readings := []InstrumentReading{
		{PatientID: "P2", Date: day("2024-01-02"), Instrument: InstrumentPHQ, Total: 12},
		{PatientID: "P1", Date: day("2024-01-02"), Instrument: InstrumentGAD, Total: 8},
		{PatientID: "P1", Date: day("2024-01-01"), Instrument: InstrumentPHQ, Total: 5},
		{PatientID: "P1", Date: day("2024-01-02"), Instrument: InstrumentPHQ, Total: 9},
	}

	merged := MergeReadings(readings)
	require.Len(t, merged, 3)

	assert.Equal(t, "P1", merged[0].PatientID)
	assert.Equal(t, day("2024-01-01"), merged[0].Date)
	assert.Equal(t, 5.0, *merged[0].PHQ)
	assert.Nil(t, merged[0].GAD)

	assert.Equal(t, day("2024-01-02"), merged[1].Date)
	assert.Equal(t, 9.0, *merged[1].PHQ)
	assert.Equal(t, 8.0, *merged[1].GAD)

	assert.Equal(t, "P2", merged[2].PatientID)
}

func TestClassify_Bands(t *testing.T) {
	cases := []struct {
		in    Instrument
		total float64
		want  Severity
	}{
		{InstrumentPHQ, 4, "minimal"},
		{InstrumentPHQ, 5, "mild"},
		{InstrumentPHQ, 19, "moderately_severe"},
		{InstrumentPHQ, 20, "severe"},
		{InstrumentGAD, 14, "moderate"},
		{InstrumentGAD, 15, "severe"},
		{InstrumentPCL, 59, "moderate"},
		{InstrumentPCL, 60, "severe"},
		{InstrumentDERS, 90, "low"},
		{InstrumentDERS, 120, "moderate"},
		{InstrumentDERS, 121, "high"},
		{InstrumentWHO, 25, "moderate"},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(c.in, c.total), "%s=%v", c.in, c.total)
	}
	assert.Equal(t, []Severity{"low", "moderate", "high"}, SeverityLabels(InstrumentDERS))
}

func TestInferProgram(t *testing.T) {
	assert.Equal(t, ProgramBPS, InferProgram(Patient{ID: "X", Program: ProgramBPS}, true, false))
	assert.Equal(t, ProgramPHP, InferProgram(Patient{ID: "AHCM-1"}, true, true))
	assert.Equal(t, ProgramBPS, InferProgram(Patient{ID: "AHCM-1"}, false, true))
	assert.Equal(t, ProgramAHCM, InferProgram(Patient{ID: "ahcm-1"}, false, false))
	assert.Equal(t, ProgramUnknown, InferProgram(Patient{ID: "P1", Program: ProgramUnknown}, false, false))
}

func TestPatientFromRow(t *testing.T) {
	p, ok := PatientFromRow(Row{"group_identifier": "P1", "program": "php", "discharge_date": "2024-02-01"})
	require.True(t, ok)
	assert.Equal(t, ProgramPHP, p.Program)
	assert.True(t, p.Discharged)

	p, ok = PatientFromRow(Row{"group_identifier": "P2"})
	require.True(t, ok)
	assert.Equal(t, ProgramUnknown, p.Program)
	assert.False(t, p.Discharged)

	_, ok = PatientFromRow(Row{"program": "BPS"})
	assert.False(t, ok)
}

func TestPHPFromRow_DefaultsMissingFlagsToFalse(t *testing.T) {
	a, ok := PHPFromRow(Row{
		"group_identifier": "P1",
		"assessment_date":  "2024-03-01",
		"feeling_anxious":  "yes",
		"slept_well":       int64(1),
		"exercised":        nil,
	})
	require.True(t, ok)
	assert.Len(t, a.Flags, len(PHPCatalog))
	assert.True(t, a.Flags["feeling_anxious"])
	assert.True(t, a.Flags["slept_well"])
	assert.False(t, a.Flags["exercised"])
	assert.False(t, a.Flags["cravings"])
}

func TestSubstanceFromRow(t *testing.T) {
	h, ok := SubstanceFromRow(Row{
		"group_identifier": "P1",
		"substance":        "Heroin",
		"use_flag":         int64(1),
		"pattern_of_use":   "Daily",
		"age_of_first_use": int64(17),
	})
	require.True(t, ok)
	assert.True(t, h.Active)
	assert.Equal(t, "17", h.Attributes["age_of_first_use"])
	assert.True(t, IsHighRiskSubstance(h.Substance))
	assert.True(t, IsDailyPattern(h.Pattern))

	h, _ = SubstanceFromRow(Row{"group_identifier": "P1", "substance": "Alcohol", "use_flag": int64(0)})
	assert.False(t, h.Active)
}

func TestComputeStats_ThreePatientsTwoDates(t *testing.T) {
	patients := []Patient{{ID: "P1"}, {ID: "P2"}, {ID: "P3", Discharged: true}}
	var scores []AssessmentScore
	for _, p := range patients {
		scores = append(scores,
			AssessmentScore{PatientID: p.ID, Date: day("2024-01-01"), PHQ: f(4)},
			AssessmentScore{PatientID: p.ID, Date: day("2024-02-01"), PHQ: f(6)},
		)
	}

	st := ComputeStats(patients, scores, nil, nil, nil)
	assert.Equal(t, 3, st.TotalPatients)
	assert.Equal(t, 6, st.TotalAssessments)
	assert.Equal(t, 2.0, st.AvgAssessmentsPerPatient)
	assert.Equal(t, 2, st.ActivePatients)
	assert.Equal(t, 1, st.DischargedPatients)
	assert.Equal(t, 5.0, st.AverageScores[InstrumentPHQ])
	assert.Equal(t, 0, st.HighRiskCount)
}

func TestComputeStats_HighRiskUsesLatestRecord(t *testing.T) {
	patients := []Patient{{ID: "P1"}, {ID: "P2"}, {ID: "P3"}, {ID: "P4"}, {ID: "P5"}, {ID: "P6"}, {ID: "P7"}}
	scores := []AssessmentScore{
		// crossed earlier, recovered since
		{PatientID: "P1", Date: day("2024-01-01"), PHQ: f(20)},
		{PatientID: "P1", Date: day("2024-02-01"), PHQ: f(3)},
		// each instrument exactly at its threshold
		{PatientID: "P2", Date: day("2024-01-01"), PCL: f(50)},
		{PatientID: "P3", Date: day("2024-01-01"), PHQ: f(15)},
		{PatientID: "P4", Date: day("2024-01-01"), GAD: f(10)},
		{PatientID: "P5", Date: day("2024-01-01"), WHO: f(20)},
		{PatientID: "P6", Date: day("2024-01-01"), DERS: f(120)},
		// just below every threshold
		{PatientID: "P7", Date: day("2024-01-01"), PCL: f(49), PHQ: f(14), GAD: f(9), WHO: f(19), DERS: f(119)},
	}

	st := ComputeStats(patients, scores, nil, nil, nil)
	assert.Equal(t, 5, st.HighRiskCount)
	assert.Equal(t, 1.1, st.AvgAssessmentsPerPatient)
}

func TestComputeStats_NoPatients(t *testing.T) {
	st := ComputeStats(nil, nil, nil, nil, nil)
	assert.Equal(t, 0.0, st.AvgAssessmentsPerPatient)
	assert.Equal(t, 0, st.HighRiskCount)
}

func TestComputeStats_SubstanceCounts(t *testing.T) {
	subs := []SubstanceHistory{
		{PatientID: "P1", Substance: "Alcohol", Active: true},
		{PatientID: "P1", Substance: "Heroin", Active: false},
		{PatientID: "P2", Substance: "Cannabis", Active: false},
	}
	st := ComputeStats([]Patient{{ID: "P1"}, {ID: "P2"}}, nil, subs, nil, nil)
	assert.Equal(t, 2, st.PatientsWithSubstanceHistory)
	assert.Equal(t, 1, st.ActiveSubstanceUsers)
}
