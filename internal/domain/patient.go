package domain

import "strings"

// Program is the clinical program a patient belongs to.
type Program string

const (
	ProgramPHP     Program = "PHP"  // Partial Hospitalization Program
	ProgramBPS     Program = "BPS"  // Biopsychosocial intake
	ProgramAHCM    Program = "AHCM" // Adult Healthcare Case Management
	ProgramUnknown Program = "Unknown"
)

// ParseProgram maps a free-form registry value onto a Program.
func ParseProgram(s string) Program {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PHP":
		return ProgramPHP
	case "BPS":
		return ProgramBPS
	case "AHCM":
		return ProgramAHCM
	}
	return ProgramUnknown
}

// Patient is a row of the patient registry.
type Patient struct {
	ID         string  `json:"id"`
	Program    Program `json:"program"`
	Discharged bool    `json:"discharged"`
}

// InferProgram fills in the program for a patient whose registry row did not
// carry one: PHP records win over BPS records, then an AHCM identifier.
func InferProgram(p Patient, hasPHP, hasBPS bool) Program {
	if p.Program != "" && p.Program != ProgramUnknown {
		return p.Program
	}
	switch {
	case hasPHP:
		return ProgramPHP
	case hasBPS:
		return ProgramBPS
	case strings.Contains(strings.ToUpper(p.ID), "AHCM"):
		return ProgramAHCM
	}
	return ProgramUnknown
}

// PatientFromRow decodes a registry row. Rows without an identifier are
// rejected.
func PatientFromRow(r Row) (Patient, bool) {
	id := r.String("group_identifier")
	if id == "" {
		return Patient{}, false
	}
	p := Patient{ID: id, Program: ParseProgram(r.String("program"))}
	if r.Bool("discharged") {
		p.Discharged = true
	} else if _, ok := r.Date("discharge_date"); ok {
		p.Discharged = true
	} else if strings.EqualFold(r.String("status"), "discharged") {
		p.Discharged = true
	}
	return p, true
}
