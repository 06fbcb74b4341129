package mcp_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/mcp"
)

func TestGuard_Validate(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		wantErr error
	}{
		{"simple select", "SELECT * FROM meeting", nil},
		{"day filter", "SELECT * FROM meeting WHERE date(start_time) = '2025-01-02'", nil},
		{"count", "SELECT COUNT(*) FROM meeting", nil},
		{"cte", "WITH upcoming AS (SELECT * FROM meeting) SELECT title FROM upcoming", nil},
		{"created_at column", "SELECT created_at, updated_at FROM meeting", nil},
		{"trailing semicolon", "SELECT title FROM meeting;", nil},
		{"lowercase", "select title from meeting", nil},
		{"leading comment", "-- tomorrow\nSELECT title FROM meeting", nil},

		{"empty", "", mcp.ErrEmptyQuery},
		{"whitespace", "   ", mcp.ErrEmptyQuery},
		{"only comment", "/* nothing */", mcp.ErrEmptyQuery},
		{"select then delete", "SELECT 1; DELETE FROM meeting;", mcp.ErrMultipleStatements},
		{"insert", "INSERT INTO meeting (title) VALUES ('x')", mcp.ErrNotReadOnly},
		{"update", "UPDATE meeting SET title = 'x'", mcp.ErrNotReadOnly},
		{"drop", "DROP TABLE meeting", mcp.ErrNotReadOnly},
		{"commented write", "/* SELECT */ DELETE FROM meeting", mcp.ErrNotReadOnly},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := mcp.SQLiteGuard.Validate(tt.sql)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestGuard_BlockedKeywords(t *testing.T) {
	tests := []struct {
		name    string
		guard   mcp.Guard
		sql     string
		keyword string
	}{
		{"hidden delete", mcp.SQLiteGuard, "SELECT * FROM meeting WHERE id IN (DELETE FROM meeting RETURNING id)", "DELETE"},
		{"outfile", mcp.MySQLGuard, "SELECT * FROM meeting INTO  OUTFILE '/tmp/x'", "INTO OUTFILE"},
		{"mysql load_file", mcp.MySQLGuard, "SELECT LOAD_FILE('/etc/passwd')", "LOAD_FILE"},
		{"mysql sleep", mcp.MySQLGuard, "SELECT SLEEP (10)", "SLEEP"},
		{"pg_read_file", mcp.PostgresGuard, "SELECT pg_read_file('/etc/passwd')", "pg_read_file"},
		{"dblink", mcp.PostgresGuard, "SELECT * FROM dblink('host=x', 'SELECT 1')", "dblink"},
		{"sqlite attach", mcp.SQLiteGuard, "SELECT 1 FROM meeting WHERE 1 = 1 AND ATTACH", "ATTACH"},
		{"sqlite load_extension", mcp.SQLiteGuard, "SELECT load_extension('evil.so')", "load_extension"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.guard.Validate(tt.sql)
			var blocked *mcp.BlockedError
			require.ErrorAs(t, err, &blocked)
			assert.Equal(t, tt.keyword, blocked.Keyword)
		})
	}
}

func TestGuard_DialectKeywordsStayLocal(t *testing.T) {
	// sleep is only a MySQL hazard
	assert.NoError(t, mcp.SQLiteGuard.Validate("SELECT title FROM meeting WHERE title LIKE '%sleep%'"))
	assert.Error(t, mcp.MySQLGuard.Validate("SELECT SLEEP(1)"))
}

func TestLimitRows(t *testing.T) {
	tests := []struct {
		name     string
		sql      string
		maxRows  int
		expected string
	}{
		{"add limit", "SELECT * FROM meeting", 100, "SELECT * FROM meeting LIMIT 100"},
		{"keeps smaller limit", "SELECT * FROM meeting LIMIT 10", 100, "SELECT * FROM meeting LIMIT 10"},
		{"lowers larger limit", "SELECT * FROM meeting LIMIT 5000 OFFSET 2", 100, "SELECT * FROM meeting LIMIT 100 OFFSET 2"},
		{"remove semicolon", "SELECT * FROM meeting;", 50, "SELECT * FROM meeting LIMIT 50"},
		{"default cap", "SELECT * FROM meeting", 0, "SELECT * FROM meeting LIMIT 1000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, mcp.LimitRows(tt.sql, tt.maxRows))
		})
	}
}
