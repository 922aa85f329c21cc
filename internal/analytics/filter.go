package analytics

import (
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/samber/lo"
)

// Filter narrows records by patient and an inclusive date range. Zero
// fields do not filter.
type Filter struct {
	PatientID string
	From      time.Time
	To        time.Time
}

// Match reports whether a record of patient id on date d passes the filter.
func (f Filter) Match(id string, d time.Time) bool {
	if f.PatientID != "" && f.PatientID != id {
		return false
	}
	if !f.From.IsZero() && d.Before(domain.CalendarDate(f.From)) {
		return false
	}
	if !f.To.IsZero() && d.After(domain.CalendarDate(f.To)) {
		return false
	}
	return true
}

// FilterScores returns the scores that pass f, preserving order.
func FilterScores(scores []domain.AssessmentScore, f Filter) []domain.AssessmentScore {
	return lo.Filter(scores, func(s domain.AssessmentScore, _ int) bool {
		return f.Match(s.PatientID, s.Date)
	})
}

// PatientTimeline returns one patient's records oldest first.
func PatientTimeline(scores []domain.AssessmentScore, patientID string) []domain.AssessmentScore {
	out := FilterScores(scores, Filter{PatientID: patientID})
	domain.SortScores(out)
	return out
}

func monthKey(t time.Time) string { return t.Format("2006-01") }

func percent(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return domain.Round1(float64(n) * 100 / float64(total))
}
