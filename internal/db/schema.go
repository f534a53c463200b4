package db

import (
	"fmt"
	"strings"
)

type Column struct {
	Name string
	Type string
}

type TableSchema struct {
	Name       string
	Columns    []Column
	SampleRows [][]any
}

// RenderSchema flattens introspected table definitions into the text
// blob handed to the SQL generator as schema context.
func RenderSchema(tables []TableSchema) string {
	if len(tables) == 0 {
		return "The database contains no tables."
	}
	var b strings.Builder
	for i, table := range tables {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "CREATE TABLE %s (\n", table.Name)
		for j, col := range table.Columns {
			fmt.Fprintf(&b, "  %s %s", col.Name, col.Type)
			if j < len(table.Columns)-1 {
				b.WriteString(",")
			}
			b.WriteString("\n")
		}
		b.WriteString(")")
		if len(table.SampleRows) > 0 {
			fmt.Fprintf(&b, "\n/* %d sample rows:\n", len(table.SampleRows))
			for _, row := range table.SampleRows {
				parts := make([]string, len(row))
				for k, value := range row {
					parts[k] = fmt.Sprintf("%v", value)
				}
				b.WriteString(strings.Join(parts, "\t"))
				b.WriteString("\n")
			}
			b.WriteString("*/")
		}
	}
	return b.String()
}
