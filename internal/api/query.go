package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/querydeck/querydeck/internal/db"
)

type queryRequest struct {
	SQL string `json:"sql"`
}

type queryResponse struct {
	Columns []string       `json:"columns"`
	Rows    [][]any        `json:"rows"`
	Stats   map[string]any `json:"stats"`
}

type schemaResponse struct {
	Dialect string `json:"dialect"`
	Schema  string `json:"schema"`
}

func handleQuery(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	var request queryRequest
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&request); err != nil {
		writeError(r.Context(), w, http.StatusBadRequest, "INVALID_JSON", "invalid query request body", false, map[string]any{"details": err.Error()})
		return
	}
	if strings.TrimSpace(request.SQL) == "" {
		writeError(r.Context(), w, http.StatusBadRequest, "SQL_REQUIRED", "sql is required", false, nil)
		return
	}

	start := time.Now()
	table, err := deps.Executor.Execute(r.Context(), request.SQL)
	if err != nil {
		var execErr *db.ExecutionError
		if errors.As(err, &execErr) {
			writeError(r.Context(), w, http.StatusBadRequest, "QUERY_EXECUTION_FAILED", execErr.Message, false, nil)
			return
		}
		writeError(r.Context(), w, http.StatusInternalServerError, "QUERY_ERROR", "query execution failed", true, map[string]any{"details": err.Error()})
		return
	}

	rows := table.Rows
	if rows == nil {
		rows = [][]any{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Columns: table.Columns,
		Rows:    rows,
		Stats: map[string]any{
			"duration_ms": time.Since(start).Milliseconds(),
			"row_count":   table.RowCount(),
		},
	})
}

func handleSchema(deps Dependencies, w http.ResponseWriter, r *http.Request) {
	if deps.Executor == nil {
		writeError(r.Context(), w, http.StatusNotImplemented, "QUERY_NOT_CONFIGURED", "query dependencies are not configured", false, nil)
		return
	}

	schemaInfo, err := deps.Executor.SchemaInfo(r.Context())
	if err != nil {
		writeError(r.Context(), w, http.StatusInternalServerError, "SCHEMA_ERROR", "failed to load schema", true, map[string]any{"details": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, schemaResponse{
		Dialect: deps.Executor.Dialect(),
		Schema:  schemaInfo,
	})
}
