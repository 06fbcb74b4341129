package llm_test

import (
	"testing"

	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/stretchr/testify/assert"
)

func TestExtractSQL(t *testing.T) {
	tests := []struct {
		name     string
		content  string
		expected string
	}{
		{
			"plain sql",
			"SELECT * FROM meeting",
			"SELECT * FROM meeting",
		},
		{
			"sql with semicolon",
			"SELECT * FROM meeting;",
			"SELECT * FROM meeting",
		},
		{
			"sql in code block",
			"```sql\nSELECT * FROM meeting\n```",
			"SELECT * FROM meeting",
		},
		{
			"sql in generic code block",
			"```\nSELECT * FROM meeting\n```",
			"SELECT * FROM meeting",
		},
		{
			"sql query prefix",
			"SQLQuery: SELECT title FROM meeting WHERE date(start_time) = '2026-01-02';",
			"SELECT title FROM meeting WHERE date(start_time) = '2026-01-02'",
		},
		{
			"prefix and fence",
			"Question: x\nSQLQuery: ```sql\nSELECT id FROM meeting;\n```",
			"SELECT id FROM meeting",
		},
		{
			"unterminated fence",
			"```sql\nSELECT id FROM meeting",
			"SELECT id FROM meeting",
		},
		{
			"sql with whitespace",
			"  SELECT * FROM meeting  ",
			"SELECT * FROM meeting",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, llm.ExtractSQL(tt.content))
		})
	}
}

func TestExtractJSONObject(t *testing.T) {
	t.Run("first object", func(t *testing.T) {
		got, ok := llm.ExtractJSONObject("Sure! {\"title\": \"Sync\"} and {\"x\": 1}")
		assert.True(t, ok)
		assert.Equal(t, "{\"title\": \"Sync\"}", got)
	})

	t.Run("no object", func(t *testing.T) {
		_, ok := llm.ExtractJSONObject("no json here")
		assert.False(t, ok)
	})

	t.Run("nested object is truncated", func(t *testing.T) {
		got, ok := llm.ExtractJSONObject(`{"title": "A", "meta": {"k": "v"}, "time": "2pm"}`)
		assert.True(t, ok)
		assert.Equal(t, `{"title": "A", "meta": {"k": "v"}`, got)
	})
}
