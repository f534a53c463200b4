package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/querydeck/querydeck/internal/observability"
)

// QueryTable validates sqlText, probes it with EXPLAIN, then executes it
// against sqlDB and scans the full result set. Backend failures come
// back as *ExecutionError so callers can treat them as retryable.
func QueryTable(ctx context.Context, sqlDB *sql.DB, sqlText string, rowLimit int) (Table, error) {
	if err := ValidateSelect(sqlText); err != nil {
		return Table{}, &ExecutionError{Message: err.Error()}
	}
	query := StripTrailingSemicolons(sqlText)

	// The EXPLAIN probe asks the backend to plan the query without
	// running it, catching syntax and unknown-relation errors cheaply.
	if _, err := sqlDB.ExecContext(ctx, "EXPLAIN "+query); err != nil {
		return Table{}, &ExecutionError{Message: err.Error()}
	}

	if rowLimit > 0 {
		query = fmt.Sprintf("SELECT * FROM (%s) AS q LIMIT %d", query, rowLimit)
	}

	start := time.Now()
	rows, err := sqlDB.QueryContext(ctx, query)
	if err != nil {
		return Table{}, &ExecutionError{Message: err.Error()}
	}
	defer func() { _ = rows.Close() }()

	columns, err := rows.Columns()
	if err != nil {
		return Table{}, fmt.Errorf("query columns: %w", err)
	}

	resultRows := make([][]any, 0)
	for rows.Next() {
		values := make([]any, len(columns))
		scanTargets := make([]any, len(columns))
		for i := range values {
			scanTargets[i] = &values[i]
		}
		if err := rows.Scan(scanTargets...); err != nil {
			return Table{}, fmt.Errorf("scan row: %w", err)
		}
		resultRows = append(resultRows, normalizeValues(values))
	}
	if err := rows.Err(); err != nil {
		return Table{}, &ExecutionError{Message: err.Error()}
	}
	observability.ObserveQueryDuration(time.Since(start))

	return Table{Columns: columns, Rows: resultRows}, nil
}

func normalizeValues(values []any) []any {
	normalized := make([]any, len(values))
	for i, value := range values {
		switch typed := value.(type) {
		case []byte:
			normalized[i] = string(typed)
		default:
			normalized[i] = typed
		}
	}
	return normalized
}
