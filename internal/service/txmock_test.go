package service

import (
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// newTxDB returns a sqlx handle backed by a driver-level mock, for service
// paths that pair repository calls inside one transaction. Repository calls
// themselves go through the function-field mocks, so tests only script the
// transaction boundaries (Begin/Commit/Rollback) on the returned mock.
func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}
