package domain

import "time"

// PHPFlag is one daily check-in indicator of the Partial Hospitalization
// Program.
type PHPFlag string

// PHPFlagGroup groups the check-in indicators for reporting.
type PHPFlagGroup string

const (
	GroupEmotion  PHPFlagGroup = "emotion"
	GroupCoping   PHPFlagGroup = "coping"
	GroupSelfCare PHPFlagGroup = "self_care"
)

// PHPFlagDef describes one catalog entry.
type PHPFlagDef struct {
	Flag  PHPFlag      `json:"flag"`
	Label string       `json:"label"`
	Group PHPFlagGroup `json:"group"`
}

// PHPCatalog is the fixed set of check-in indicators. Column names in the PHP
// table match the Flag values.
var PHPCatalog = []PHPFlagDef{
	{"feeling_anxious", "Anxious", GroupEmotion},
	{"feeling_depressed", "Depressed", GroupEmotion},
	{"feeling_angry", "Angry", GroupEmotion},
	{"feeling_lonely", "Lonely", GroupEmotion},
	{"feeling_hopeless", "Hopeless", GroupEmotion},
	{"feeling_guilty", "Guilty", GroupEmotion},
	{"feeling_hopeful", "Hopeful", GroupEmotion},
	{"feeling_calm", "Calm", GroupEmotion},
	{"feeling_grateful", "Grateful", GroupEmotion},
	{"cravings", "Cravings", GroupEmotion},

	{"used_breathing", "Breathing exercises", GroupCoping},
	{"used_mindfulness", "Mindfulness", GroupCoping},
	{"used_journaling", "Journaling", GroupCoping},
	{"used_distraction", "Distraction", GroupCoping},
	{"called_support", "Called support person", GroupCoping},
	{"attended_meeting", "Attended meeting", GroupCoping},
	{"used_opposite_action", "Opposite action", GroupCoping},
	{"used_grounding", "Grounding", GroupCoping},

	{"slept_well", "Slept well", GroupSelfCare},
	{"ate_regularly", "Ate regularly", GroupSelfCare},
	{"exercised", "Exercised", GroupSelfCare},
	{"took_medication", "Took medication", GroupSelfCare},
	{"personal_hygiene", "Personal hygiene", GroupSelfCare},
	{"social_contact", "Social contact", GroupSelfCare},
	{"leisure_activity", "Leisure activity", GroupSelfCare},
}

// PHPAssessment is one day of PHP check-in flags for a patient. Every catalog
// flag is present; missing columns decode to false.
type PHPAssessment struct {
	PatientID string           `json:"patient_id"`
	Date      time.Time        `json:"date"`
	Flags     map[PHPFlag]bool `json:"flags"`
}

// PHPFromRow decodes a PHP table row.
func PHPFromRow(r Row) (PHPAssessment, bool) {
	id := r.String("group_identifier")
	date, ok := r.Date("assessment_date")
	if id == "" || !ok {
		return PHPAssessment{}, false
	}
	a := PHPAssessment{PatientID: id, Date: date, Flags: make(map[PHPFlag]bool, len(PHPCatalog))}
	for _, def := range PHPCatalog {
		a.Flags[def.Flag] = r.Bool(string(def.Flag))
	}
	return a, true
}

// BPSAssessment is a biopsychosocial intake record. Apart from identifier
// and date it is a flat attribute bag.
type BPSAssessment struct {
	PatientID  string            `json:"patient_id"`
	Date       time.Time         `json:"date,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Attr returns an attribute or "".
func (b BPSAssessment) Attr(name string) string {
	return b.Attributes[name]
}

// BPSFromRow decodes a BPS table row. The date is optional.
func BPSFromRow(r Row) (BPSAssessment, bool) {
	id := r.String("group_identifier")
	if id == "" {
		return BPSAssessment{}, false
	}
	b := BPSAssessment{PatientID: id}
	if d, ok := r.Date("assessment_date"); ok {
		b.Date = d
	}
	b.Attributes = attributesExcept(r, "group_identifier", "assessment_date")
	return b, true
}
