package db

import (
	"fmt"
	"strings"
)

// ValidateSelect rejects anything that is not a single read-only
// statement before it reaches the backend. Generated SQL is untrusted
// input; only SELECT (optionally CTE-prefixed) is ever executed.
func ValidateSelect(sqlText string) error {
	trimmed := StripTrailingSemicolons(sqlText)
	if trimmed == "" {
		return fmt.Errorf("sql query is empty")
	}
	if strings.Contains(trimmed, ";") {
		return fmt.Errorf("multiple sql statements are not allowed")
	}
	keyword := firstKeyword(trimmed)
	switch keyword {
	case "SELECT", "WITH":
		return nil
	default:
		return fmt.Errorf("query must be a SELECT statement, got %s", keyword)
	}
}

func StripTrailingSemicolons(sqlText string) string {
	trimmed := strings.TrimSpace(sqlText)
	for strings.HasSuffix(trimmed, ";") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
	}
	return trimmed
}

func firstKeyword(sqlText string) string {
	fields := strings.Fields(sqlText)
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}
