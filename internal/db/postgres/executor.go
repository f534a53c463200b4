package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/querydeck/querydeck/internal/db"
)

type Config struct {
	DSN              string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxIdleTime  time.Duration
	ConnMaxLifetime  time.Duration
	RowLimit         int
	SchemaSampleRows int
}

// Executor runs generated queries against a PostgreSQL database through
// the pgx stdlib driver.
type Executor struct {
	sqlDB            *sql.DB
	rowLimit         int
	schemaSampleRows int
}

func Open(ctx context.Context, cfg Config) (*Executor, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}

	sqlDB, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres db: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping postgres db: %w", err)
	}

	return NewWithDB(sqlDB, cfg), nil
}

// NewWithDB wraps an existing handle; used by tests to inject sqlmock.
func NewWithDB(sqlDB *sql.DB, cfg Config) *Executor {
	return &Executor{
		sqlDB:            sqlDB,
		rowLimit:         cfg.RowLimit,
		schemaSampleRows: cfg.SchemaSampleRows,
	}
}

func (e *Executor) Close() error {
	return e.sqlDB.Close()
}

func (e *Executor) Dialect() string {
	return "PostgreSQL"
}

func (e *Executor) Execute(ctx context.Context, sqlText string) (db.Table, error) {
	return db.QueryTable(ctx, e.sqlDB, sqlText, e.rowLimit)
}

func (e *Executor) SchemaInfo(ctx context.Context) (string, error) {
	rows, err := e.sqlDB.QueryContext(ctx,
		`SELECT table_name FROM information_schema.tables
		 WHERE table_schema = 'public' AND table_type = 'BASE TABLE' ORDER BY table_name`)
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
		 WHERE table_schema = 'public' AND table_name = $1 ORDER BY ordinal_position`, name)
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
