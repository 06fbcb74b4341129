package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"

	"github.com/Sibikrish3000/cr-agent/internal/mcp"
)

// Adapter runs generated queries against a MySQL meeting store
type Adapter struct {
	mcp.Conn
}

// NewAdapter creates a new MySQL adapter
func NewAdapter() mcp.Adapter {
	return &Adapter{Conn: mcp.Conn{Guard: mcp.MySQLGuard}}
}

func (a *Adapter) DatabaseType() string {
	return "mysql"
}

// SQLDialect returns SQL dialect hints for LLM prompting
func (a *Adapter) SQLDialect() string {
	return `MySQL SQL dialect:
- start_time and end_time are DATETIME columns
- Filter a day with DATE(start_time) = 'YYYY-MM-DD'
- Date functions: NOW(), CURDATE(), DATE_FORMAT(start_time, '%Y-%m-%d')
- String concatenation: CONCAT(a, b)
- Use backticks for identifiers and single quotes for strings`
}

// DSN builds a go-sql-driver DSN; an explicit DSN wins.
func DSN(config mcp.ConnectionConfig) string {
	if config.DSN != "" {
		return config.DSN
	}
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true",
		config.Username, config.Password, config.Host, config.Port, config.Database)
	if config.SSLMode == "require" || config.SSLMode == "verify-full" {
		dsn += "&tls=true"
	}
	return dsn
}

// Connect establishes connection to MySQL
func (a *Adapter) Connect(ctx context.Context, config mcp.ConnectionConfig) error {
	db, err := sql.Open("mysql", DSN(config))
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}
	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	a.DB = db
	return nil
}

// GetSchemaDDL returns SHOW CREATE TABLE output for every base table
func (a *Adapter) GetSchemaDDL(ctx context.Context) (string, error) {
	tables, err := a.Strings(ctx, `
		SELECT table_name
		FROM information_schema.tables
		WHERE table_schema = DATABASE()
		  AND table_type = 'BASE TABLE'
		  AND table_name != 'schema_migrations'
		ORDER BY table_name
	`)
	if err != nil {
		return "", fmt.Errorf("failed to list tables: %w", err)
	}

	statements := make([]string, 0, len(tables))
	for _, table := range tables {
		created, err := a.Strings(ctx, fmt.Sprintf("SHOW CREATE TABLE `%s`", table[0]))
		if err != nil || len(created) == 0 || len(created[0]) < 2 {
			return "", fmt.Errorf("failed to describe %s: %w", table[0], err)
		}
		statements = append(statements, created[0][1]+";")
	}
	return strings.Join(statements, "\n\n"), nil
}
