package mcp

import (
	"database/sql"
	"fmt"
	"time"
)

// CollectRows drains rows into a QueryResult, keeping at most maxRows rows.
func CollectRows(rows *sql.Rows, maxRows int) (*QueryResult, error) {
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to get columns: %w", err)
	}

	var resultRows [][]any
	truncated := false
	for rows.Next() {
		if len(resultRows) == maxRows {
			truncated = true
			break
		}

		values := make([]any, len(columns))
		valuePtrs := make([]any, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}

		for i, v := range values {
			values[i] = NormalizeValue(v)
		}
		resultRows = append(resultRows, values)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return &QueryResult{
		Columns:   columns,
		Rows:      resultRows,
		RowCount:  len(resultRows),
		Truncated: truncated,
	}, nil
}

// NormalizeValue converts driver values into JSON and text friendly forms.
// Timestamps are rendered in the meeting store layout.
func NormalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return v
	}
}
