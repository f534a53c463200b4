package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/querydeck/querydeck/internal/db"
)

func newMockExecutor(t *testing.T, cfg Config) (*Executor, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlDB.Close() })
	return NewWithDB(sqlDB, cfg), mock
}

func TestExecuteReturnsTable(t *testing.T) {
	exec, mock := newMockExecutor(t, Config{})

	mock.ExpectExec(regexp.QuoteMeta("EXPLAIN SELECT id, name FROM users")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM users")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).
			AddRow(int64(1), "ada").
			AddRow(int64(2), "grace"))

	table, err := exec.Execute(context.Background(), "SELECT id, name FROM users;")
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if table.RowCount() != 2 {
		t.Fatalf("RowCount() = %d", table.RowCount())
	}
	if table.Columns[1] != "name" {
		t.Fatalf("Columns = %v", table.Columns)
	}
	if table.Rows[0][1] != "ada" {
		t.Fatalf("Rows[0] = %v", table.Rows[0])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteAppliesRowLimit(t *testing.T) {
	exec, mock := newMockExecutor(t, Config{RowLimit: 5})

	mock.ExpectExec(regexp.QuoteMeta("EXPLAIN SELECT * FROM events")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM (SELECT * FROM events) AS q LIMIT 5")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	if _, err := exec.Execute(context.Background(), "SELECT * FROM events"); err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestExecuteWrapsBackendFailure(t *testing.T) {
	exec, mock := newMockExecutor(t, Config{})

	mock.ExpectExec(regexp.QuoteMeta("EXPLAIN SELECT * FROM missing")).
		WillReturnError(errors.New(`relation "missing" does not exist`))

	_, err := exec.Execute(context.Background(), "SELECT * FROM missing")
	var execErr *db.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *db.ExecutionError", err)
	}
}

func TestExecuteRejectsNonSelectWithoutTouchingBackend(t *testing.T) {
	exec, mock := newMockExecutor(t, Config{})

	_, err := exec.Execute(context.Background(), "DELETE FROM users")
	var execErr *db.ExecutionError
	if !errors.As(err, &execErr) {
		t.Fatalf("error = %v, want *db.ExecutionError", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("backend was touched: %v", err)
	}
}

func TestSchemaInfoRendersTables(t *testing.T) {
	exec, mock := newMockExecutor(t, Config{SchemaSampleRows: 1})

	mock.ExpectQuery("SELECT table_name FROM information_schema.tables").
		WillReturnRows(sqlmock.NewRows([]string{"table_name"}).AddRow("orders"))
	mock.ExpectQuery("SELECT column_name, data_type FROM information_schema.columns").
		WithArgs("orders").
		WillReturnRows(sqlmock.NewRows([]string{"column_name", "data_type"}).
			AddRow("id", "integer").
			AddRow("total", "numeric"))
	mock.ExpectExec(regexp.QuoteMeta(`EXPLAIN SELECT * FROM "orders"`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM (SELECT * FROM "orders") AS q LIMIT 1`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "total"}).AddRow(int64(1), 9.5))

	rendered, err := exec.SchemaInfo(context.Background())
	if err != nil {
		t.Fatalf("SchemaInfo() error = %v", err)
	}
	for _, want := range []string{"CREATE TABLE orders", "id integer", "total numeric"} {
		if !regexp.MustCompile(regexp.QuoteMeta(want)).MatchString(rendered) {
			t.Fatalf("SchemaInfo() missing %q:\n%s", want, rendered)
		}
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), Config{}); err == nil {
		t.Fatal("expected error for empty DSN")
	}
}
