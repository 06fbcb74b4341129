package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "modernc.org/sqlite"

	"github.com/Sibikrish3000/cr-agent/internal/mcp"
)

// Adapter runs generated queries against the SQLite meeting file
type Adapter struct {
	mcp.Conn
}

// NewAdapter creates a new SQLite adapter
func NewAdapter() mcp.Adapter {
	return &Adapter{Conn: mcp.Conn{Guard: mcp.SQLiteGuard}}
}

func (a *Adapter) DatabaseType() string {
	return "sqlite"
}

// SQLDialect returns SQL dialect hints for LLM prompting
func (a *Adapter) SQLDialect() string {
	return `SQLite SQL dialect:
- Timestamps are TEXT in 'YYYY-MM-DD HH:MM:SS' form
- Filter a day with date(start_time) = 'YYYY-MM-DD'
- Date functions: date(), time(), datetime(), strftime()
- Current time: datetime('now', 'localtime'), date('now', 'localtime')
- LIKE is case-insensitive for ASCII
- String concatenation: || operator
- Use single quotes for strings`
}

// Connect opens the database file named by Path, or Database when Path is empty
func (a *Adapter) Connect(ctx context.Context, config mcp.ConnectionConfig) error {
	path := config.Path
	if path == "" {
		path = config.Database
	}
	dsn := config.DSN
	if dsn == "" {
		if path == "" {
			return fmt.Errorf("database file path is required")
		}
		dsn = fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", path)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	a.DB = db
	return nil
}

// GetSchemaDDL returns the stored CREATE TABLE statements
func (a *Adapter) GetSchemaDDL(ctx context.Context) (string, error) {
	rows, err := a.Strings(ctx, `
		SELECT sql
		FROM sqlite_master
		WHERE type = 'table'
		  AND name NOT LIKE 'sqlite_%'
		  AND name != 'schema_migrations'
		  AND sql IS NOT NULL
		ORDER BY name
	`)
	if err != nil {
		return "", fmt.Errorf("failed to get schema: %w", err)
	}

	statements := make([]string, len(rows))
	for i, row := range rows {
		statements[i] = row[0] + ";"
	}
	return strings.Join(statements, "\n\n"), nil
}
