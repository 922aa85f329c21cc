// Package export renders a cache snapshot as an Excel workbook.
package export

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/analytics"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/cache"
	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/xuri/excelize/v2"
)

const (
	SheetSummary     = "Summary"
	SheetPatients    = "Patients"
	SheetAssessments = "Assessments"
	SheetSubstances  = "Substances"
)

// ContentType is the MIME type of the generated workbook.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

var patientHeader = []string{"Patient ID", "Program", "Status", "Risk Level", "Risk Factors"}

var substanceHeader = []string{"Patient ID", "Substance", "Active", "Pattern"}

func assessmentHeader() []string {
	h := []string{"Patient ID", "Date"}
	for _, in := range domain.Instruments {
		h = append(h, string(in), string(in)+" Severity")
	}
	return append(h, "High Risk")
}

// Filename is the download name for a snapshot loaded at t.
func Filename(t time.Time) string {
	return fmt.Sprintf("dashboard-%s.xlsx", t.UTC().Format("20060102-1504"))
}

// Workbook builds the dashboard export. The returned bytes are a complete
// .xlsx file.
func Workbook(snap *cache.Snapshot) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	w := &writer{f: f, headerStyle: headerStyle}
	w.summary(snap)
	w.patients(snap)
	w.assessments(snap)
	w.substances(snap)
	if w.err != nil {
		return nil, w.err
	}

	// NewFile always starts with Sheet1; Summary replaces it.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	idx, err := f.GetSheetIndex(SheetSummary)
	if err != nil {
		return nil, fmt.Errorf("failed to locate summary sheet: %w", err)
	}
	f.SetActiveSheet(idx)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// writer keeps the first error so the sheet builders stay linear.
type writer struct {
	f           *excelize.File
	headerStyle int
	err         error
}

func (w *writer) sheet(name string, header []string, widths ...float64) {
	if w.err != nil {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = fmt.Errorf("failed to create sheet %s: %w", name, err)
		return
	}
	if len(header) == 0 {
		return
	}
	w.row(name, 1, toCells(header))
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	if w.err == nil {
		if err := w.f.SetCellStyle(name, "A1", last, w.headerStyle); err != nil {
			w.err = fmt.Errorf("failed to style header of %s: %w", name, err)
		}
	}
	for i, width := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if w.err == nil {
			if err := w.f.SetColWidth(name, col, col, width); err != nil {
				w.err = fmt.Errorf("failed to set column width: %w", err)
			}
		}
	}
}

func (w *writer) row(sheet string, n int, values []any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err != nil {
		w.err = err
		return
	}
	if err := w.f.SetSheetRow(sheet, cell, &values); err != nil {
		w.err = fmt.Errorf("failed to write %s row %d: %w", sheet, n, err)
	}
}

func (w *writer) summary(snap *cache.Snapshot) {
	st := snap.Stats
	w.sheet(SheetSummary, []string{"Metric", "Value"}, 34, 22)
	rows := [][]any{
		{"Loaded At", snap.LoadedAt.UTC().Format(time.RFC3339)},
		{"Source", snap.Source},
		{"Total Patients", st.TotalPatients},
		{"Active Patients", st.ActivePatients},
		{"Discharged Patients", st.DischargedPatients},
		{"Total Assessments", st.TotalAssessments},
		{"Avg Assessments per Patient", st.AvgAssessmentsPerPatient},
		{"High Risk Patients", st.HighRiskCount},
		{"Patients with Substance History", st.PatientsWithSubstanceHistory},
		{"Active Substance Users", st.ActiveSubstanceUsers},
		{"PHP Records", st.PHPRecordCount},
		{"BPS Records", st.BPSRecordCount},
	}
	for _, in := range domain.Instruments {
		if v, ok := st.AverageScores[in]; ok {
			rows = append(rows, []any{"Average " + string(in), v})
		}
	}
	programs := make([]string, 0, len(st.ProgramCounts))
	for p := range st.ProgramCounts {
		programs = append(programs, string(p))
	}
	sort.Strings(programs)
	for _, p := range programs {
		rows = append(rows, []any{"Program " + p, st.ProgramCounts[domain.Program(p)]})
	}
	if len(snap.FailedCategories) > 0 {
		rows = append(rows, []any{"Unavailable Categories", fmt.Sprint(snap.FailedCategories)})
	}
	for i, r := range rows {
		w.row(SheetSummary, i+2, r)
	}
}

func (w *writer) patients(snap *cache.Snapshot) {
	w.sheet(SheetPatients, patientHeader, 16, 10, 12, 12, 60)
	report := analytics.StratifyRisk(snap.Patients, snap.Assessments)
	risk := make(map[string]analytics.PatientRisk, len(report.Patients))
	for _, pr := range report.Patients {
		risk[pr.PatientID] = pr
	}
	for i, p := range snap.Patients {
		status := "Active"
		if p.Discharged {
			status = "Discharged"
		}
		level, factors := "", ""
		if pr, ok := risk[p.ID]; ok {
			level = string(pr.Level)
			factors = strings.Join(pr.Factors, "; ")
		}
		w.row(SheetPatients, i+2, []any{p.ID, string(p.Program), status, level, factors})
	}
}

func (w *writer) assessments(snap *cache.Snapshot) {
	w.sheet(SheetAssessments, assessmentHeader(), 16, 12)
	for i, s := range snap.Assessments {
		values := []any{s.PatientID, s.Date.Format("2006-01-02")}
		for _, in := range domain.Instruments {
			if v, ok := s.Score(in); ok {
				values = append(values, v, string(domain.Classify(in, v)))
			} else {
				values = append(values, nil, nil)
			}
		}
		values = append(values, s.IsHighRisk())
		w.row(SheetAssessments, i+2, values)
	}
}

func (w *writer) substances(snap *cache.Snapshot) {
	w.sheet(SheetSubstances, substanceHeader, 16, 24, 8, 28)
	for i, h := range snap.SubstanceHistory {
		w.row(SheetSubstances, i+2, []any{h.PatientID, h.Substance, h.Active, h.Pattern})
	}
}

func toCells(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
