package duckdb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/marcboeker/go-duckdb/v2"

	"github.com/querydeck/querydeck/internal/db"
)

type Config struct {
	Path             string
	RowLimit         int
	SchemaSampleRows int
}

// Executor runs generated queries against an embedded DuckDB database
// file. It opens the file read-only so the agent can never mutate data.
type Executor struct {
	sqlDB            *sql.DB
	rowLimit         int
	schemaSampleRows int
}

func Open(cfg Config) (*Executor, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("duckdb path is required")
	}
	sqlDB, err := sql.Open("duckdb", cfg.Path+"?access_mode=read_only")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	return &Executor{
		sqlDB:            sqlDB,
		rowLimit:         cfg.RowLimit,
		schemaSampleRows: cfg.SchemaSampleRows,
	}, nil
}

func (e *Executor) Close() error {
	return e.sqlDB.Close()
}

func (e *Executor) Dialect() string {
	return "DuckDB (PostgreSQL-like syntax)"
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (db.Table, error) {
	return db.QueryTable(ctx, e.sqlDB, sqlText, e.rowLimit)
}

func (e *Executor) SchemaInfo(ctx context.Context) (string, error) {
	rows, err := e.sqlDB.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name`)
	if err != nil {
		return "", fmt.Errorf("list tables: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tableNames []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return "", fmt.Errorf("scan table name: %w", err)
		}
		tableNames = append(tableNames, name)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterate tables: %w", err)
	}

	tables := make([]db.TableSchema, 0, len(tableNames))
	for _, name := range tableNames {
		schema, err := e.describeTable(ctx, name)
		if err != nil {
			return "", err
		}
		tables = append(tables, schema)
	}
	return db.RenderSchema(tables), nil
}

func (e *Executor) describeTable(ctx context.Context, name string) (db.TableSchema, error) {
	rows, err := e.sqlDB.QueryContext(ctx,
		`SELECT column_name, data_type FROM information_schema.columns
		 WHERE table_schema = 'main' AND table_name = ? ORDER BY ordinal_position`, name)
	if err != nil {
		return db.TableSchema{}, fmt.Errorf("describe table %q: %w", name, err)
	}
	defer func() { _ = rows.Close() }()

	schema := db.TableSchema{Name: name}
	for rows.Next() {
		var col db.Column
		if err := rows.Scan(&col.Name, &col.Type); err != nil {
			return db.TableSchema{}, fmt.Errorf("scan column for %q: %w", name, err)
		}
		schema.Columns = append(schema.Columns, col)
	}
	if err := rows.Err(); err != nil {
		return db.TableSchema{}, fmt.Errorf("iterate columns for %q: %w", name, err)
	}

	if e.schemaSampleRows > 0 {
		samples, err := db.QueryTable(ctx, e.sqlDB, fmt.Sprintf(`SELECT * FROM %s`, quoteIdent(name)), e.schemaSampleRows)
		if err != nil {
			return db.TableSchema{}, fmt.Errorf("sample rows for %q: %w", name, err)
		}
		schema.SampleRows = samples.Rows
	}
	return schema, nil
}

func quoteIdent(value string) string {
	return `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
}
