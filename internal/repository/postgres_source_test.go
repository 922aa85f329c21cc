package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/SirazSium84/Doctor-s-Helper-sub000/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func setupMockDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *PostgresSource) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	return db, mock, NewPostgresSource(db, zap.NewNop())
}

func selectAll(table string) string {
	return regexp.QuoteMeta(`SELECT * FROM "` + table + `"`)
}

func TestListPatients_DeduplicatesRegistryRows(t *testing.T) {
	db, mock, src := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"group_identifier", "program", "discharge_date"}).
		AddRow("P1", nil, nil).
		AddRow("P2", []byte("BPS"), nil).
		AddRow("P1", []byte("PHP"), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)).
		AddRow(nil, "PHP", nil)
	mock.ExpectQuery(selectAll(TablePatients)).WillReturnRows(rows)

	patients, err := src.ListPatients(context.Background())
	require.NoError(t, err)
	require.Len(t, patients, 2)

	assert.Equal(t, "P1", patients[0].ID)
	assert.Equal(t, domain.ProgramPHP, patients[0].Program)
	assert.True(t, patients[0].Discharged)
	assert.Equal(t, domain.ProgramBPS, patients[1].Program)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_PHQ(t *testing.T) {
	db, mock, src := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"group_identifier", "assessment_date", "col_1_interest", "col_2_down", "col_10_difficulty"}).
		AddRow("P1", "2024-01-01", []byte("2"), int64(3), int64(3)).
		AddRow("P2", "2024-01-02", nil, nil, nil)
	mock.ExpectQuery(selectAll("PHQ")).WillReturnRows(rows)

	readings, err := src.ListReadings(context.Background(), domain.InstrumentPHQ)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 5.0, readings[0].Total)
	assert.Equal(t, domain.InstrumentPHQ, readings[0].Instrument)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_DERSPartialTableFailure(t *testing.T) {
	db, mock, src := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(selectAll("DERS")).
		WillReturnRows(sqlmock.NewRows([]string{"group_identifier", "assessment_date", "ders_q1_clear"}).
			AddRow("P1", "2024-01-01", int64(4)))
	mock.ExpectQuery(selectAll(TableDERS2)).WillReturnError(errors.New("relation does not exist"))

	readings, err := src.ListReadings(context.Background(), domain.InstrumentDERS)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, 4.0, readings[0].Total)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListReadings_AllTablesFail(t *testing.T) {
	db, mock, src := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(selectAll("GAD")).WillReturnError(errors.New("connection refused"))

	_, err := src.ListReadings(context.Background(), domain.InstrumentGAD)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to query GAD")
}

func TestListSubstanceHistory(t *testing.T) {
	db, mock, src := setupMockDB(t)
	defer db.Close()

	rows := sqlmock.NewRows([]string{"group_identifier", "substance", "use_flag", "pattern_of_use"}).
		AddRow("P1", "Heroin", int64(1), "Daily").
		AddRow("P1", "Alcohol", int64(0), "Weekly")
	mock.ExpectQuery(selectAll(TableSubstance)).WillReturnRows(rows)

	hist, err := src.ListSubstanceHistory(context.Background())
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.True(t, hist[0].Active)
	assert.False(t, hist[1].Active)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPHPAndBPS(t *testing.T) {
	db, mock, src := setupMockDB(t)
	defer db.Close()

	mock.ExpectQuery(selectAll(TablePHP)).
		WillReturnRows(sqlmock.NewRows([]string{"group_identifier", "assessment_date", "feeling_anxious"}).
			AddRow("P1", "2024-01-01", true))
	mock.ExpectQuery(selectAll(TableBPS)).
		WillReturnRows(sqlmock.NewRows([]string{"group_identifier", "ext_motivation"}).
			AddRow("P2", "my family"))

	php, err := src.ListPHPAssessments(context.Background())
	require.NoError(t, err)
	require.Len(t, php, 1)
	assert.True(t, php[0].Flags["feeling_anxious"])
	assert.False(t, php[0].Flags["cravings"])

	bps, err := src.ListBPSAssessments(context.Background())
	require.NoError(t, err)
	require.Len(t, bps, 1)
	assert.Equal(t, "my family", bps[0].Attr("ext_motivation"))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDemoSource_Deterministic(t *testing.T) {
	src := NewDemoSource()
	ctx := context.Background()

	a, err := src.ListReadings(ctx, domain.InstrumentPHQ)
	require.NoError(t, err)
	b, err := src.ListReadings(ctx, domain.InstrumentPHQ)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.Len(t, a, len(demoPatients)*demoVisits)

	for _, in := range domain.Instruments {
		readings, err := src.ListReadings(ctx, in)
		require.NoError(t, err)
		for _, r := range readings {
			assert.GreaterOrEqual(t, r.Total, 0.0)
			assert.LessOrEqual(t, r.Total, domain.MaxScore[in])
		}
	}

	patients, err := src.ListPatients(ctx)
	require.NoError(t, err)
	assert.Len(t, patients, len(demoPatients))
}

func TestDemoSource_HonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewDemoSource().ListPatients(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
