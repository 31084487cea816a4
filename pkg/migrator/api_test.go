package migrator

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/pthm/dorm"
	"github.com/pthm/dorm/internal/sqlgen"
)

func oneClassCatalog(t *testing.T) *dorm.Catalog {
	t.Helper()
	b := dorm.NewCatalogBuilder()
	b.AddClass("Book", 10, []dorm.AttributeSpec{
		{Name: "id", DataType: "int", IsIdentifier: true, DistinctValues: 10},
		{Name: "title", DataType: "string", Size: 100},
	}, "")
	if _, err := b.AddStruct("bookStruct", nil, []string{"Book"}); err != nil {
		t.Fatalf("AddStruct: %v", err)
	}
	if _, err := b.AddSet("books", []string{"bookStruct"}); err != nil {
		t.Fatalf("AddSet: %v", err)
	}
	cat, err := b.Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	return cat
}

// TestMigrate_BuildsPlanAndApplies covers the one-call convenience entry
// point: a caller with no need for dry-run/force/cancellation control gets
// a planned-and-applied migration in a single call.
func TestMigrate_BuildsPlanAndApplies(t *testing.T) {
	cat := oneClassCatalog(t)

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS dorm_migrations").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO dorm_books").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("ANALYZE").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO dorm_migrations").WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = Migrate(context.Background(), db, cat, sqlgen.FLAT, cat, sqlgen.FLAT)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
