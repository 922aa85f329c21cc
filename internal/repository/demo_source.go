package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

// DemoSource serves a fixed synthetic population. It is used when the
// database is disabled, has no credentials or cannot be reached, so the
// dashboard always has something to render. Output is identical on every
// call.
type DemoSource struct {
	base time.Time
}

// NewDemoSource creates a DemoSource anchored at a fixed date.
func NewDemoSource() *DemoSource {
	return &DemoSource{base: time.Date(2024, time.January, 15, 0, 0, 0, 0, time.UTC)}
}

var _ DataSource = (*DemoSource)(nil)

type demoPatient struct {
	id         string
	program    domain.Program // empty: inferred from records
	discharged bool
}

var demoPatients = []demoPatient{
	{"PHP-1001", domain.ProgramPHP, false},
	{"PHP-1002", domain.ProgramPHP, false},
	{"PHP-1003", "", false},
	{"PHP-1004", domain.ProgramPHP, true},
	{"PHP-1005", "", false},
	{"BPS-2001", domain.ProgramBPS, false},
	{"BPS-2002", "", false},
	{"BPS-2003", domain.ProgramBPS, true},
	{"BPS-2004", domain.ProgramBPS, false},
	{"AHCM-3001", "", false},
	{"AHCM-3002", "", true},
	{"AHCM-3003", "", false},
}

const demoVisits = 4

var demoSubstances = []struct {
	name    string
	pattern string
}{
	{"Alcohol", "Weekly"},
	{"Cannabis", "Daily"},
	{"Heroin", "Daily"},
	{"Cocaine (Powder)", "Monthly"},
	{"Crystal Meth", "Continued"},
	{"Nicotine", "Daily"},
}

var demoMotivations = []string{
	"I want to stay sober for my kids and rebuild trust with my family",
	"Getting back to work and paying my bills on time",
	"My health is falling apart and my doctor says I need treatment",
	"I want to go back to school and finish my degree",
	"Staying connected to my peer support group keeps me hopeful about the future",
}

func (s *DemoSource) Name() string { return "demo" }

func (s *DemoSource) Ping(context.Context) error { return nil }

func (s *DemoSource) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]domain.Patient, 0, len(demoPatients))
	for _, p := range demoPatients {
		prog := p.program
		if prog == "" {
			prog = domain.ProgramUnknown
		}
		out = append(out, domain.Patient{ID: p.id, Program: prog, Discharged: p.discharged})
	}
	return out, nil
}

func (s *DemoSource) ListReadings(ctx context.Context, in domain.Instrument) ([]domain.InstrumentReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if _, ok := domain.MaxScore[in]; !ok {
		return nil, fmt.Errorf("unknown instrument %q", in)
	}
	var out []domain.InstrumentReading
	for i, p := range demoPatients {
		for v := 0; v < demoVisits; v++ {
			out = append(out, domain.InstrumentReading{
				PatientID:  p.id,
				Date:       s.base.AddDate(0, v, 0),
				Instrument: in,
				Total:      demoScore(in, i, v),
			})
		}
	}
	return out, nil
}

// demoScore trends each patient downward over visits from a patient-specific
// start, clamped to the instrument range.
func demoScore(in domain.Instrument, patient, visit int) float64 {
	var v float64
	switch in {
	case domain.InstrumentPHQ:
		v = float64(patient*2 + 6 - visit*2)
	case domain.InstrumentGAD:
		v = float64(patient + 4 - visit)
	case domain.InstrumentPCL:
		v = float64(patient*5 + 18 - visit*4)
	case domain.InstrumentWHO:
		v = float64(patient*3 + 5 - visit*2)
	case domain.InstrumentDERS:
		v = float64(72 + patient*6 - visit*5)
	}
	return clamp(v, 0, domain.MaxScore[in])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (s *DemoSource) ListSubstanceHistory(ctx context.Context) ([]domain.SubstanceHistory, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.SubstanceHistory
	for i, p := range demoPatients {
		// one to three substances per patient
		for k := 0; k <= i%3; k++ {
			sub := demoSubstances[(i+k*2)%len(demoSubstances)]
			out = append(out, domain.SubstanceHistory{
				PatientID: p.id,
				Substance: sub.name,
				Active:    (i+k)%2 == 0,
				Pattern:   sub.pattern,
			})
		}
	}
	return out, nil
}

func (s *DemoSource) ListPHPAssessments(ctx context.Context) ([]domain.PHPAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.PHPAssessment
	for i, p := range demoPatients[:5] {
		for d := 0; d < 10; d++ {
			a := domain.PHPAssessment{
				PatientID: p.id,
				Date:      s.base.AddDate(0, 0, d*7),
				Flags:     make(map[domain.PHPFlag]bool, len(domain.PHPCatalog)),
			}
			for j, def := range domain.PHPCatalog {
				a.Flags[def.Flag] = (i+d+j)%3 == 0
			}
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *DemoSource) ListBPSAssessments(ctx context.Context) ([]domain.BPSAssessment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []domain.BPSAssessment
	for i, p := range demoPatients[5:9] {
		out = append(out, domain.BPSAssessment{
			PatientID: p.id,
			Date:      s.base,
			Attributes: map[string]string{
				"ext_motivation": demoMotivations[i%len(demoMotivations)],
				"int_motivation": fmt.Sprintf(`{"goal":%q}`, demoMotivations[(i+1)%len(demoMotivations)]),
				"bps_family":     fmt.Sprint(2 + i%3),
				"bps_employment": fmt.Sprint(1 + i%4),
			},
		})
	}
	return out, nil
}
