package analytics

import "github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

type BandCount struct {
	Severity domain.Severity `json:"severity"`
	Count    int             `json:"count"`
	Percent  float64         `json:"percent"`
}

type InstrumentDistribution struct {
	Instrument domain.Instrument `json:"instrument"`
	Patients   int               `json:"patients"`
	Bands      []BandCount       `json:"bands"`
}

// SeverityDistribution counts patients per severity band of each
// instrument, using the latest record that carries the instrument.
func SeverityDistribution(scores []domain.AssessmentScore) []InstrumentDistribution {
	out := make([]InstrumentDistribution, 0, len(domain.Instruments))
	for _, in := range domain.Instruments {
		latest := make(map[string]domain.AssessmentScore)
		for _, s := range scores {
			if _, ok := s.Score(in); !ok {
				continue
			}
			if cur, ok := latest[s.PatientID]; !ok || s.Date.After(cur.Date) {
				latest[s.PatientID] = s
			}
		}
		counts := make(map[domain.Severity]int)
		for _, s := range latest {
			v, _ := s.Score(in)
			counts[domain.Classify(in, v)]++
		}
		d := InstrumentDistribution{Instrument: in, Patients: len(latest)}
		for _, label := range domain.SeverityLabels(in) {
			d.Bands = append(d.Bands, BandCount{
				Severity: label,
				Count:    counts[label],
				Percent:  percent(counts[label], len(latest)),
			})
		}
		out = append(out, d)
	}
	return out
}
