package export

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func ptr(v float64) *float64 { return &v }

func TestWorkbook_Sheets(t *testing.T) {
	d := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	snap := &cache.Snapshot{
		Patients: []domain.Patient{
			{ID: "P1", Program: domain.ProgramPHP},
			{ID: "P2", Program: domain.ProgramBPS, Discharged: true},
		},
		Assessments: []domain.AssessmentScore{
			{PatientID: "P1", Date: d, PHQ: ptr(18), GAD: ptr(4)},
		},
		SubstanceHistory: []domain.SubstanceHistory{
			{PatientID: "P2", Substance: "Alcohol", Active: true, Pattern: "Daily"},
		},
		LoadedAt: d,
		Source:   "demo",
	}
	snap.Stats = domain.ComputeStats(snap.Patients, snap.Assessments, snap.SubstanceHistory, nil, nil)

	raw, err := Workbook(snap)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSummary, SheetPatients, SheetAssessments, SheetSubstances}, f.GetSheetList())

	v, err := f.GetCellValue(SheetSummary, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Total Patients", v)
	v, _ = f.GetCellValue(SheetSummary, "B4")
	assert.Equal(t, "2", v)

	rows, err := f.GetRows(SheetPatients)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, patientHeader, rows[0])
	assert.Equal(t, "P1", rows[1][0])
	assert.Equal(t, "high", rows[1][3])
	assert.Equal(t, "Discharged", rows[2][2])

	rows, err = f.GetRows(SheetAssessments)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-01", rows[1][1])

	rows, err = f.GetRows(SheetSubstances)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alcohol", rows[1][1])
}

func TestWorkbook_FromDemoCache(t *testing.T) {
	c := cache.New(repository.NewDemoSource())
	snap, err := c.Get(context.Background())
	require.NoError(t, err)

	raw, err := Workbook(snap)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(SheetAssessments)
	require.NoError(t, err)
	assert.Len(t, rows, len(snap.Assessments)+1)
}

func TestFilename(t *testing.T) {
	assert.Equal(t, "dashboard-20240301-0930.xlsx", Filename(time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)))
}
