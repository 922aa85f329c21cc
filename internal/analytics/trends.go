package analytics

import (
	"sort"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/samber/lo"
)

// TrendPoint is the per-instrument average of one calendar month.
type TrendPoint struct {
	Month       string                        `json:"month"`
	Assessments int                           `json:"assessments"`
	Patients    int                           `json:"patients"`
	Averages    map[domain.Instrument]float64 `json:"averages"`
	Counts      map[domain.Instrument]int     `json:"counts"`
}

// MonthlyTrends groups scores by month, oldest month first. Instruments
// without any value in a month are absent from that month's maps.
func MonthlyTrends(scores []domain.AssessmentScore) []TrendPoint {
	byMonth := lo.GroupBy(scores, func(s domain.AssessmentScore) string {
		return monthKey(s.Date)
	})
	months := lo.Keys(byMonth)
	sort.Strings(months)

	out := make([]TrendPoint, 0, len(months))
	for _, m := range months {
		group := byMonth[m]
		tp := TrendPoint{
			Month:       m,
			Assessments: len(group),
			Patients: len(lo.Uniq(lo.Map(group, func(s domain.AssessmentScore, _ int) string {
				return s.PatientID
			}))),
			Averages: make(map[domain.Instrument]float64),
			Counts:   make(map[domain.Instrument]int),
		}
		for _, in := range domain.Instruments {
			var sum float64
			var n int
			for _, s := range group {
				if v, ok := s.Score(in); ok {
					sum += v
					n++
				}
			}
			if n > 0 {
				tp.Averages[in] = domain.Round1(sum / float64(n))
				tp.Counts[in] = n
			}
		}
		out = append(out, tp)
	}
	return out
}
