package domain

import (
	"fmt"
	"time"
)

// Instrument identifies one of the five standardized questionnaires.
type Instrument string

const (
	InstrumentWHO  Instrument = "WHO"
	InstrumentGAD  Instrument = "GAD"
	InstrumentPHQ  Instrument = "PHQ"
	InstrumentPCL  Instrument = "PCL"
	InstrumentDERS Instrument = "DERS"
)

// Instruments lists every instrument in display order.
var Instruments = []Instrument{InstrumentWHO, InstrumentGAD, InstrumentPHQ, InstrumentPCL, InstrumentDERS}

// MaxScore is the highest attainable total per instrument.
var MaxScore = map[Instrument]float64{
	InstrumentPHQ:  27,
	InstrumentGAD:  21,
	InstrumentPCL:  80,
	InstrumentWHO:  48,
	InstrumentDERS: 180,
}

// HighRiskThreshold is the total at or above which an instrument flags a
// patient as high risk.
var HighRiskThreshold = map[Instrument]float64{
	InstrumentPCL:  50,
	InstrumentPHQ:  15,
	InstrumentGAD:  10,
	InstrumentWHO:  20,
	InstrumentDERS: 120,
}

// ModerateThreshold is the lower bound of the moderate risk band.
var ModerateThreshold = map[Instrument]float64{
	InstrumentPCL:  33,
	InstrumentPHQ:  10,
	InstrumentGAD:  5,
	InstrumentWHO:  10,
	InstrumentDERS: 90,
}

// AssessmentScore is the merged view of one patient on one calendar date.
// Each sub-score is independently sourced and may be missing.
type AssessmentScore struct {
	PatientID string    `json:"patient_id"`
	Date      time.Time `json:"date"`
	WHO       *float64  `json:"who,omitempty"`
	GAD       *float64  `json:"gad,omitempty"`
	PHQ       *float64  `json:"phq,omitempty"`
	PCL       *float64  `json:"pcl,omitempty"`
	DERS      *float64  `json:"ders,omitempty"`
}

// Key is the (patient, date) merge key.
func (s AssessmentScore) Key() string {
	return s.PatientID + "|" + s.Date.Format("2006-01-02")
}

// Score returns the sub-score for an instrument.
func (s AssessmentScore) Score(in Instrument) (float64, bool) {
	var p *float64
	switch in {
	case InstrumentWHO:
		p = s.WHO
	case InstrumentGAD:
		p = s.GAD
	case InstrumentPHQ:
		p = s.PHQ
	case InstrumentPCL:
		p = s.PCL
	case InstrumentDERS:
		p = s.DERS
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}

// Set stores a sub-score.
func (s *AssessmentScore) Set(in Instrument, v float64) {
	p := &v
	switch in {
	case InstrumentWHO:
		s.WHO = p
	case InstrumentGAD:
		s.GAD = p
	case InstrumentPHQ:
		s.PHQ = p
	case InstrumentPCL:
		s.PCL = p
	case InstrumentDERS:
		s.DERS = p
	}
}

// HighRiskInstruments lists the instruments whose score meets the high-risk
// threshold.
func (s AssessmentScore) HighRiskInstruments() []Instrument {
	var out []Instrument
	for _, in := range Instruments {
		if v, ok := s.Score(in); ok && v >= HighRiskThreshold[in] {
			out = append(out, in)
		}
	}
	return out
}

// IsHighRisk reports whether any sub-score crosses its threshold.
func (s AssessmentScore) IsHighRisk() bool {
	return len(s.HighRiskInstruments()) > 0
}

// InstrumentReading is one instrument total decoded from one table row.
type InstrumentReading struct {
	PatientID  string
	Date       time.Time
	Instrument Instrument
	Total      float64
}

// questionColumns returns the columns that carry answers for an instrument.
func questionColumns(in Instrument, r Row) []string {
	switch in {
	case InstrumentPHQ:
		return numberedColumns(r, "col_", 1, 9)
	case InstrumentGAD:
		return numberedColumns(r, "col_", 1, 7)
	case InstrumentWHO:
		return numberedColumns(r, "col_", 1, 12)
	case InstrumentPCL:
		return r.Columns("ptsd_q")
	case InstrumentDERS:
		return append(r.Columns("ders_q"), r.Columns("ders2_q")...)
	}
	return nil
}

// numberedColumns matches "col_1_..." style names for question numbers in
// [from, to]. "col_10_" does not match question 1.
func numberedColumns(r Row, prefix string, from, to int) []string {
	var cols []string
	for i := from; i <= to; i++ {
		p := fmt.Sprintf("%s%d_", prefix, i)
		cols = append(cols, r.Columns(p)...)
	}
	return cols
}

// ReadingFromRow decodes one instrument table row. A precomputed total_score
// column wins over summing question columns. Rows without identifier, date
// or any numeric answer are rejected.
func ReadingFromRow(in Instrument, r Row) (InstrumentReading, bool) {
	id := r.String("group_identifier")
	date, ok := r.Date("assessment_date")
	if id == "" || !ok {
		return InstrumentReading{}, false
	}
	reading := InstrumentReading{PatientID: id, Date: date, Instrument: in}
	if total, ok := r.Float("total_score"); ok {
		reading.Total = total
		return reading, true
	}
	answered := false
	for _, col := range questionColumns(in, r) {
		if v, ok := r.Float(col); ok {
			reading.Total += v
			answered = true
		}
	}
	return reading, answered
}

// MergeReadings folds per-instrument readings into one AssessmentScore per
// (patient, date). When an instrument appears twice for the same key (DERS
// and DERS_2 on the same day) the later reading wins. Output is ordered by
// patient then date.
func MergeReadings(readings []InstrumentReading) []AssessmentScore {
	byKey := make(map[string]*AssessmentScore)
	var order []string
	for _, rd := range readings {
		s := AssessmentScore{PatientID: rd.PatientID, Date: rd.Date}
		k := s.Key()
		cur, ok := byKey[k]
		if !ok {
			cur = &s
			byKey[k] = cur
			order = append(order, k)
		}
		cur.Set(rd.Instrument, rd.Total)
	}
	out := make([]AssessmentScore, 0, len(order))
	for _, k := range order {
		out = append(out, *byKey[k])
	}
	SortScores(out)
	return out
}
