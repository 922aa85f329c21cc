package analytics

import (
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

// RadarAxis is one instrument on the multi-domain view.
type RadarAxis struct {
	Instrument domain.Instrument `json:"instrument"`
	Score      *float64          `json:"score"`
	Max        float64           `json:"max"`
	Percent    float64           `json:"percent"`
	Severity   domain.Severity   `json:"severity,omitempty"`
	Date       *time.Time        `json:"date,omitempty"`
}

// RadarProfile is a patient's latest value per instrument, normalized to
// percent of the instrument maximum.
type RadarProfile struct {
	PatientID string      `json:"patient_id"`
	Axes      []RadarAxis `json:"axes"`
}

// Radar builds the profile of one patient. ok is false when the patient has
// no scores at all. Each axis uses the most recent record carrying that
// instrument, so axes may come from different dates.
func Radar(scores []domain.AssessmentScore, patientID string) (RadarProfile, bool) {
	timeline := PatientTimeline(scores, patientID)
	if len(timeline) == 0 {
		return RadarProfile{}, false
	}
	prof := RadarProfile{PatientID: patientID}
	for _, in := range domain.Instruments {
		axis := RadarAxis{Instrument: in, Max: domain.MaxScore[in]}
		for i := len(timeline) - 1; i >= 0; i-- {
			if v, ok := timeline[i].Score(in); ok {
				d := timeline[i].Date
				axis.Score = &v
				axis.Date = &d
				axis.Percent = domain.Round1(v * 100 / axis.Max)
				axis.Severity = domain.Classify(in, v)
				break
			}
		}
		prof.Axes = append(prof.Axes, axis)
	}
	return prof, true
}
