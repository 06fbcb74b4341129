package mcp

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

var ErrNotConnected = errors.New("not connected")

// Conn is the database/sql half of an Adapter. Adapters embed it and set DB on Connect.
type Conn struct {
	DB    *sql.DB
	Guard Guard
}

// Close closes the connection
func (c *Conn) Close() error {
	if c.DB == nil {
		return nil
	}
	err := c.DB.Close()
	c.DB = nil
	return err
}

// HealthCheck verifies connection is alive
func (c *Conn) HealthCheck(ctx context.Context) error {
	if c.DB == nil {
		return ErrNotConnected
	}
	return c.DB.PingContext(ctx)
}

func (c *Conn) ValidateQuery(query string) error {
	return c.Guard.Validate(query)
}

// ExecuteQuery validates, caps and runs a read-only query.
func (c *Conn) ExecuteQuery(ctx context.Context, query string, opts QueryOptions) (*QueryResult, error) {
	if c.DB == nil {
		return nil, ErrNotConnected
	}
	if err := c.ValidateQuery(query); err != nil {
		return nil, err
	}

	maxRows := opts.maxRows()
	query = LimitRows(query, maxRows)

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	rows, err := c.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	return CollectRows(rows, maxRows)
}

// Strings runs an introspection query whose columns are all text.
func (c *Conn) Strings(ctx context.Context, query string, args ...any) ([][]string, error) {
	if c.DB == nil {
		return nil, ErrNotConnected
	}
	rows, err := c.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var out [][]string
	for rows.Next() {
		row := make([]string, len(columns))
		ptrs := make([]any, len(columns))
		for i := range row {
			ptrs[i] = &row[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
