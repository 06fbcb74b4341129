package sqlite_test

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/mcp"
	"github.com/Sibikrish3000/cr-agent/internal/mcp/sqlite"
)

func seed(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "meetings.db")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	defer db.Close()

	_, err = db.Exec(`CREATE TABLE meeting (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		title TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL
	)`)
	require.NoError(t, err)
	for _, title := range []string{"Standup", "Review", "Retro"} {
		_, err = db.Exec(`INSERT INTO meeting (title, start_time, end_time) VALUES (?, '2025-03-04 10:00:00', '2025-03-04 11:00:00')`, title)
		require.NoError(t, err)
	}
	return path
}

func TestAdapter_ExecuteQuery(t *testing.T) {
	ctx := context.Background()
	adapter := sqlite.NewAdapter()
	require.NoError(t, adapter.Connect(ctx, mcp.ConnectionConfig{Path: seed(t)}))
	defer adapter.Close()

	result, err := adapter.ExecuteQuery(ctx, "SELECT title FROM meeting WHERE date(start_time) = '2025-03-04' ORDER BY id", mcp.QueryOptions{MaxRows: 2})
	require.NoError(t, err)

	assert.Equal(t, []string{"title"}, result.Columns)
	assert.Equal(t, 2, result.RowCount)
	assert.Equal(t, "Standup", result.Rows[0][0])
}

func TestAdapter_RejectsWrites(t *testing.T) {
	ctx := context.Background()
	adapter := sqlite.NewAdapter()
	require.NoError(t, adapter.Connect(ctx, mcp.ConnectionConfig{Path: seed(t)}))
	defer adapter.Close()

	_, err := adapter.ExecuteQuery(ctx, "DELETE FROM meeting", mcp.QueryOptions{})
	assert.Error(t, err)

	result, err := adapter.ExecuteQuery(ctx, "SELECT COUNT(*) FROM meeting", mcp.QueryOptions{})
	require.NoError(t, err)
	assert.EqualValues(t, 3, result.Rows[0][0])
}

func TestAdapter_GetSchemaDDL(t *testing.T) {
	ctx := context.Background()
	adapter := sqlite.NewAdapter()
	require.NoError(t, adapter.Connect(ctx, mcp.ConnectionConfig{Path: seed(t)}))
	defer adapter.Close()

	ddl, err := adapter.GetSchemaDDL(ctx)
	require.NoError(t, err)
	assert.Contains(t, ddl, "CREATE TABLE meeting")
	assert.Contains(t, ddl, "start_time")
}

func TestRouter_ReusesHealthyAdapter(t *testing.T) {
	ctx := context.Background()
	router := mcp.NewRouter()
	router.RegisterAdapter("sqlite", sqlite.NewAdapter)
	defer router.CloseAll()

	cfg := mcp.ConnectionConfig{Path: seed(t)}
	first, err := router.GetAdapter(ctx, "sqlite", cfg)
	require.NoError(t, err)
	second, err := router.GetAdapter(ctx, "sqlite", cfg)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, router.PoolSize())
	assert.Equal(t, []string{"sqlite"}, router.SupportedDatabases())

	_, err = router.GetAdapter(ctx, "oracle", cfg)
	assert.Error(t, err)
}
