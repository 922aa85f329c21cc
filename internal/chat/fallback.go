package chat

import (
	"fmt"
	"strings"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

// FallbackSummary describes the loaded statistics in plain text. It is the
// answer when the model is unavailable.
func FallbackSummary(stats *domain.DashboardStats) string {
	var b strings.Builder
	b.WriteString("The AI assistant is currently unavailable. ")
	if stats == nil {
		b.WriteString("Dashboard data could not be loaded either; please retry after refreshing the data.")
		return b.String()
	}
	fmt.Fprintf(&b, "Here is the current dashboard summary: %d patients (%d active, %d discharged) with %d assessments, an average of %.1f per patient. ",
		stats.TotalPatients, stats.ActivePatients, stats.DischargedPatients,
		stats.TotalAssessments, stats.AvgAssessmentsPerPatient)
	fmt.Fprintf(&b, "%d patients are high risk on their latest assessment.", stats.HighRiskCount)

	var avgs []string
	for _, in := range domain.Instruments {
		if v, ok := stats.AverageScores[in]; ok {
			avgs = append(avgs, fmt.Sprintf("%s %.1f", in, v))
		}
	}
	if len(avgs) > 0 {
		b.WriteString(" Average scores: " + strings.Join(avgs, ", ") + ".")
	}
	if stats.ActiveSubstanceUsers > 0 {
		fmt.Fprintf(&b, " %d patients report active substance use.", stats.ActiveSubstanceUsers)
	}
	return b.String()
}

// fallbackBlocks tabulates the average scores.
func fallbackBlocks(stats *domain.DashboardStats) []Block {
	if stats == nil || len(stats.AverageScores) == 0 {
		return nil
	}
	table := AssessmentTable{Title: "Average scores", Columns: []string{"Instrument", "Average", "High-risk threshold"}}
	for _, in := range domain.Instruments {
		if v, ok := stats.AverageScores[in]; ok {
			table.Rows = append(table.Rows, []any{string(in), v, domain.HighRiskThreshold[in]})
		}
	}
	b, err := NewBlock(KindAssessmentTable, table)
	if err != nil {
		return nil
	}
	return []Block{b}
}
