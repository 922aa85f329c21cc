package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/lib/pq"
	"go.uber.org/zap"
)

// PostgresSource reads the clinical tables with SELECT * and decodes rows at
// this boundary. Column sets differ between deployments, so rows are scanned
// generically into domain.Row.
type PostgresSource struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewPostgresSource creates a PostgresSource.
func NewPostgresSource(db *sql.DB, logger *zap.Logger) *PostgresSource {
	return &PostgresSource{db: db, logger: logger}
}

// ensure interface compliance
var _ DataSource = (*PostgresSource)(nil)

func (s *PostgresSource) Name() string { return "postgres" }

func (s *PostgresSource) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ListPatients returns the registry, one entry per identifier. Discharge is
// sticky across duplicate registry rows.
func (s *PostgresSource) ListPatients(ctx context.Context) ([]domain.Patient, error) {
	rows, err := s.selectAll(ctx, TablePatients)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var out []domain.Patient
	for _, r := range rows {
		p, ok := domain.PatientFromRow(r)
		if !ok {
			continue
		}
		if i, seen := index[p.ID]; seen {
			out[i].Discharged = out[i].Discharged || p.Discharged
			if out[i].Program == domain.ProgramUnknown {
				out[i].Program = p.Program
			}
			continue
		}
		index[p.ID] = len(out)
		out = append(out, p)
	}
	return out, nil
}

// ListReadings returns instrument totals. DERS is split across two tables;
// the query fails only if every table for the instrument fails.
func (s *PostgresSource) ListReadings(ctx context.Context, in domain.Instrument) ([]domain.InstrumentReading, error) {
	tables, ok := InstrumentTables[in]
	if !ok {
		return nil, fmt.Errorf("unknown instrument %q", in)
	}
	var out []domain.InstrumentReading
	var lastErr error
	failed := 0
	for _, table := range tables {
		rows, err := s.selectAll(ctx, table)
		if err != nil {
			failed++
			lastErr = err
			s.logger.Warn("Instrument table query failed",
				zap.String("instrument", string(in)),
				zap.String("table", table),
				zap.Error(err),
			)
			continue
		}
		for _, r := range rows {
			if rd, ok := domain.ReadingFromRow(in, r); ok {
				out = append(out, rd)
			}
		}
	}
	if failed == len(tables) {
		return nil, lastErr
	}
	return out, nil
}

func (s *PostgresSource) ListSubstanceHistory(ctx context.Context) ([]domain.SubstanceHistory, error) {
	rows, err := s.selectAll(ctx, TableSubstance)
	if err != nil {
		return nil, err
	}
	out := make([]domain.SubstanceHistory, 0, len(rows))
	for _, r := range rows {
		if h, ok := domain.SubstanceFromRow(r); ok {
			out = append(out, h)
		}
	}
	return out, nil
}

func (s *PostgresSource) ListPHPAssessments(ctx context.Context) ([]domain.PHPAssessment, error) {
	rows, err := s.selectAll(ctx, TablePHP)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PHPAssessment, 0, len(rows))
	for _, r := range rows {
		if a, ok := domain.PHPFromRow(r); ok {
			out = append(out, a)
		}
	}
	return out, nil
}

func (s *PostgresSource) ListBPSAssessments(ctx context.Context) ([]domain.BPSAssessment, error) {
	rows, err := s.selectAll(ctx, TableBPS)
	if err != nil {
		return nil, err
	}
	out := make([]domain.BPSAssessment, 0, len(rows))
	for _, r := range rows {
		if b, ok := domain.BPSFromRow(r); ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (s *PostgresSource) selectAll(ctx context.Context, table string) ([]domain.Row, error) {
	query := "SELECT * FROM " + pq.QuoteIdentifier(table)
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	out, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", table, err)
	}
	return out, nil
}

// scanRows reads every row into a column-keyed map. lib/pq hands back
// numeric and text columns as []byte; those become strings.
func scanRows(rows *sql.Rows) ([]domain.Row, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []domain.Row
	for rows.Next() {
		values := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(domain.Row, len(cols))
		for i, c := range cols {
			if b, ok := values[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = values[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
