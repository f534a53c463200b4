package db

import (
	"context"
	"fmt"
)

// Table is the tabular result of one executed query.
type Table struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

func (t Table) RowCount() int {
	return len(t.Rows)
}

// ExecutionError reports a failure from the database backend (syntax,
// permission, connectivity). It is the retryable error class: the SQL
// workflow records it and may regenerate the query.
type ExecutionError struct {
	Message string
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("sql execution failed: %s", e.Message)
}

// Executor is the query-execution port.
type Executor interface {
	Execute(ctx context.Context, sqlText string) (Table, error)
	Dialect() string
	SchemaInfo(ctx context.Context) (string, error)
}
