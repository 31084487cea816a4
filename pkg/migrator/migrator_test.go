package migrator

import (
	"bytes"
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pthm/dorm/internal/sqlgen"
	"github.com/pthm/dorm/internal/sqlgen/sqldsl"
)

func samplePlan() sqlgen.Plan {
	create := sqldsl.CreateTableStmt{
		Name: "dorm_books",
		Columns: []sqldsl.ColumnDef{
			{Name: "book_id", Type: "BIGINT", NotNull: true},
		},
		PrimaryKey: []string{"book_id"},
	}
	return sqlgen.Plan{
		Steps: []sqlgen.Step{
			{Kind: sqlgen.StepCreateTable, SetName: "books", Statement: create},
		},
		Checksum: "deadbeef",
	}
}

func TestApply_DryRunRendersWithoutTouchingSink(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	m := NewMigrator(db)
	var buf bytes.Buffer
	skipped, err := m.Apply(context.Background(), samplePlan(), Options{DryRun: &buf})
	require.NoError(t, err)
	require.False(t, skipped)
	require.Contains(t, buf.String(), "dorm_books")
	require.Contains(t, buf.String(), "deadbeef")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_SkipsWhenChecksumMatches(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("SELECT target_checksum FROM dorm_migrations").
		WillReturnRows(sqlmock.NewRows([]string{"target_checksum"}).AddRow("deadbeef"))

	m := NewMigrator(db)
	skipped, err := m.Apply(context.Background(), samplePlan(), Options{})
	require.NoError(t, err)
	require.True(t, skipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_ForceReappliesDespiteMatchingChecksum(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dorm_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO dorm_migrations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	m := NewMigrator(db)
	skipped, err := m.Apply(context.Background(), samplePlan(), Options{Force: true})
	require.NoError(t, err)
	require.False(t, skipped)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestApply_CancelledContextSurfacesBeforeAnyStep(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// No sink call is expected: Apply reports the cancellation before it
	// opens a transaction.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	m := NewMigrator(db)
	_, err = m.Apply(ctx, samplePlan(), Options{Force: true})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestGetStatus_NoTrackingTableYet(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	m := NewMigrator(db)
	status, err := m.GetStatus(context.Background())
	require.NoError(t, err)
	require.False(t, status.TrackingTableExists)
	require.Empty(t, status.LastChecksum)
	require.NoError(t, mock.ExpectationsWereMet())
}
