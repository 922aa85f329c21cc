package domain

import "strings"

// SubstanceHistory is one substance line of a patient's intake history.
type SubstanceHistory struct {
	PatientID  string            `json:"patient_id"`
	Substance  string            `json:"substance"`
	Active     bool              `json:"active"`
	Pattern    string            `json:"pattern_of_use,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// HighRiskSubstances are weighted heavier in substance risk scoring.
var HighRiskSubstances = []string{
	"Heroin",
	"Cocaine (Powder)",
	"Crack Cocaine",
	"Crystal Meth",
	"Methadone",
	"Oxycontin",
	"Other Opiates",
}

// IsHighRiskSubstance reports whether name is one of HighRiskSubstances.
func IsHighRiskSubstance(name string) bool {
	for _, s := range HighRiskSubstances {
		if strings.EqualFold(s, strings.TrimSpace(name)) {
			return true
		}
	}
	return false
}

// IsDailyPattern reports whether a use pattern counts as daily/continued use.
func IsDailyPattern(pattern string) bool {
	switch strings.ToLower(strings.TrimSpace(pattern)) {
	case "daily", "continued", "continual":
		return true
	}
	return false
}

// SubstanceFromRow decodes a substance history row. use_flag == 1 marks an
// active substance.
func SubstanceFromRow(r Row) (SubstanceHistory, bool) {
	id := r.String("group_identifier")
	if id == "" {
		return SubstanceHistory{}, false
	}
	h := SubstanceHistory{
		PatientID: id,
		Substance: r.String("substance"),
		Pattern:   r.String("pattern_of_use"),
	}
	if f, ok := r.Float("use_flag"); ok {
		h.Active = f == 1
	}
	h.Attributes = attributesExcept(r, "group_identifier", "substance", "pattern_of_use", "use_flag")
	return h, true
}

func attributesExcept(r Row, skip ...string) map[string]string {
	out := make(map[string]string)
	for k := range r {
		skipped := false
		for _, s := range skip {
			if k == s {
				skipped = true
				break
			}
		}
		if skipped {
			continue
		}
		if v := r.String(k); v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
