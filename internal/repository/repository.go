package repository

import (
	"context"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"
)

// DataSource is the read side of the clinical backend. Every method is one
// independent category query; the cache fans them out concurrently.
type DataSource interface {
	ListPatients(ctx context.Context) ([]domain.Patient, error)
	ListReadings(ctx context.Context, in domain.Instrument) ([]domain.InstrumentReading, error)
	ListSubstanceHistory(ctx context.Context) ([]domain.SubstanceHistory, error)
	ListPHPAssessments(ctx context.Context) ([]domain.PHPAssessment, error)
	ListBPSAssessments(ctx context.Context) ([]domain.BPSAssessment, error)
	Ping(ctx context.Context) error
	Name() string
}

// Table names of the relational backend.
const (
	TablePatients  = "Patient Intake History"
	TableSubstance = "Patient Substance History"
	TablePHP       = "PHP"
	TableBPS       = "BPS"
	TableDERS2     = "DERS_2"
)

// InstrumentTables maps each instrument to the table(s) it is read from.
var InstrumentTables = map[domain.Instrument][]string{
	domain.InstrumentPCL:  {"PTSD"},
	domain.InstrumentPHQ:  {"PHQ"},
	domain.InstrumentGAD:  {"GAD"},
	domain.InstrumentWHO:  {"WHO"},
	domain.InstrumentDERS: {"DERS", TableDERS2},
}
