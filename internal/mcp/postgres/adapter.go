package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/Sibikrish3000/cr-agent/internal/mcp"
)

// Adapter runs generated queries against a PostgreSQL meeting store. The pool is
// exposed to the shared query path through database/sql.
type Adapter struct {
	mcp.Conn
	pool *pgxpool.Pool
}

// NewAdapter creates a new PostgreSQL adapter
func NewAdapter() mcp.Adapter {
	return &Adapter{Conn: mcp.Conn{Guard: mcp.PostgresGuard}}
}

func (a *Adapter) DatabaseType() string {
	return "postgres"
}

// SQLDialect returns SQL dialect hints for LLM prompting
func (a *Adapter) SQLDialect() string {
	return `PostgreSQL SQL dialect:
- start_time and end_time are TIMESTAMP columns
- Filter a day with date(start_time) = 'YYYY-MM-DD'
- Date/time functions: NOW(), CURRENT_DATE, DATE_TRUNC('day', start_time)
- Case-insensitive matching: ILIKE instead of LIKE
- String concatenation: column1 || column2
- Use single quotes for strings`
}

// DSN builds a postgres URL; an explicit DSN wins.
func DSN(config mcp.ConnectionConfig) string {
	if config.DSN != "" {
		return config.DSN
	}
	sslMode := config.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		config.Username, config.Password, config.Host, config.Port, config.Database, sslMode)
}

// Connect establishes connection to PostgreSQL
func (a *Adapter) Connect(ctx context.Context, config mcp.ConnectionConfig) error {
	poolConfig, err := pgxpool.ParseConfig(DSN(config))
	if err != nil {
		return fmt.Errorf("failed to parse config: %w", err)
	}
	poolConfig.MaxConns = 5
	poolConfig.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	a.pool = pool
	a.DB = stdlib.OpenDBFromPool(pool)
	return nil
}

func (a *Adapter) Close() error {
	err := a.Conn.Close()
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	return err
}

// GetSchemaDDL rebuilds CREATE TABLE statements from information_schema
func (a *Adapter) GetSchemaDDL(ctx context.Context) (string, error) {
	columns, err := a.Strings(ctx, `
		SELECT table_name, column_name, data_type, is_nullable
		FROM information_schema.columns
		WHERE table_schema = 'public'
		  AND table_name != 'schema_migrations'
		ORDER BY table_name, ordinal_position
	`)
	if err != nil {
		return "", fmt.Errorf("failed to get schema: %w", err)
	}
	return BuildDDL(columns), nil
}

// BuildDDL renders (table, column, type, is_nullable) rows ordered by table as
// CREATE TABLE statements.
func BuildDDL(columns [][]string) string {
	var statements []string
	var table string
	var defs []string

	flush := func() {
		if table != "" {
			statements = append(statements, fmt.Sprintf("CREATE TABLE %s (\n  %s\n);", table, strings.Join(defs, ",\n  ")))
		}
	}

	for _, col := range columns {
		if col[0] != table {
			flush()
			table, defs = col[0], nil
		}
		def := col[1] + " " + col[2]
		if col[3] == "NO" {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	flush()

	return strings.Join(statements, "\n\n")
}
