package mcp

import (
	"context"
	"time"
)

// DefaultMaxRows caps result sets when the caller does not set a limit
const DefaultMaxRows = 1000

// QueryResult contains query execution result
type QueryResult struct {
	Columns   []string `json:"columns"`
	Rows      [][]any  `json:"rows"`
	RowCount  int      `json:"row_count"`
	Truncated bool     `json:"truncated"`
}

// ConnectionConfig contains database connection parameters.
// DSN wins over the individual fields when set; Path is the SQLite file.
type ConnectionConfig struct {
	DSN      string
	Path     string
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string
}

// QueryOptions contains query execution options
type QueryOptions struct {
	MaxRows int
	Timeout time.Duration
}

func (o QueryOptions) maxRows() int {
	if o.MaxRows <= 0 {
		return DefaultMaxRows
	}
	return o.MaxRows
}

// Adapter executes model-generated, read-only SQL against the meeting store
type Adapter interface {
	// DatabaseType returns the database type identifier (sqlite, postgres, mysql)
	DatabaseType() string

	// SQLDialect returns SQL dialect hints for LLM prompting
	SQLDialect() string

	// Connect establishes connection to database
	Connect(ctx context.Context, config ConnectionConfig) error

	// Close closes the connection
	Close() error

	// HealthCheck verifies connection is alive
	HealthCheck(ctx context.Context) error

	// GetSchemaDDL returns the schema as DDL for LLM context
	GetSchemaDDL(ctx context.Context) (string, error)

	// ValidateQuery validates SQL is safe to execute
	ValidateQuery(sql string) error

	// ExecuteQuery executes read-only SQL query
	ExecuteQuery(ctx context.Context, sql string, opts QueryOptions) (*QueryResult, error)
}

// AdapterFactory creates a new adapter instance
type AdapterFactory func() Adapter
