package agent

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/mcp"
)

const sqlPrompt = `Given an input question, create a syntactically correct %s query to run.

CONTEXT:
- Today's date is: %s
- Tomorrow's date is: %s

TABLE NAME:
- The table name is 'meeting' (singular).

COLUMNS:
- id, title, description, start_time, end_time, participants

DATE FILTERING RULES:
- To find meetings for a specific day, use: WHERE date(start_time) = 'YYYY-MM-DD'
- For tomorrow's meetings, use: WHERE date(start_time) = '%s'
- For today's meetings, use: WHERE date(start_time) = '%s'

%s

Database schema:
%s

Question: %s

Return ONLY the SQL query. No markdown, no explanations.
SQLQuery: `

const formatResultPrompt = `Format this SQL query result into natural language:

Query: %s
Raw Result: %s

Provide a clear, human-readable response.`

const (
	cardTimeLayout = "Jan 02, 2006 at 03:04 PM"
	cardEndLayout  = "03:04 PM"
)

var (
	dialectNames   = map[string]string{"sqlite": "SQLite", "postgres": "PostgreSQL", "mysql": "MySQL"}
	rowTimeLayouts = []string{
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05",
		time.RFC3339,
		"2006-01-02T15:04",
		"2006-01-02",
	}
	// column order of the current and the pre-location meeting table
	meetingColumns       = []string{"id", "title", "description", "location", "start_time", "end_time", "participants"}
	legacyMeetingColumns = []string{"id", "title", "description", "start_time", "end_time", "participants"}
)

// AdapterProvider returns a connected read-only adapter for the meeting store.
type AdapterProvider interface {
	GetAdapter(ctx context.Context, dbType string, config mcp.ConnectionConfig) (mcp.Adapter, error)
}

// SQLOptions configures the store the SQL agent queries.
type SQLOptions struct {
	DatabaseType string
	Connection   mcp.ConnectionConfig
	MaxRows      int
	Timeout      time.Duration
}

// SQLAgent turns questions about meetings into one read-only query and renders the rows.
type SQLAgent struct {
	gateway  llm.Gateway
	adapters AdapterProvider
	opts     SQLOptions
	now      func() time.Time
}

// NewSQLAgent creates the SQL agent.
func NewSQLAgent(gateway llm.Gateway, adapters AdapterProvider, opts SQLOptions) *SQLAgent {
	return &SQLAgent{gateway: gateway, adapters: adapters, opts: opts, now: time.Now}
}

func (a *SQLAgent) Kind() domain.Agent {
	return domain.AgentSQL
}

func (a *SQLAgent) Tools() []string {
	return nil
}

// Respond never fails: every error becomes an "Error querying database" reply.
func (a *SQLAgent) Respond(ctx context.Context, in Input) (llm.Message, error) {
	question := llm.LastUserMessage(in.Messages)
	answer, err := a.answer(ctx, question)
	if err != nil {
		log.Warn().Err(err).Str("question", question).Msg("SQL agent failed")
		return llm.Assistant(fmt.Sprintf("Error querying database: %v", err)), nil
	}
	return llm.Assistant(answer), nil
}

func (a *SQLAgent) answer(ctx context.Context, question string) (string, error) {
	adapter, err := a.adapters.GetAdapter(ctx, a.opts.DatabaseType, a.opts.Connection)
	if err != nil {
		return "", fmt.Errorf("failed to get database adapter: %w", err)
	}

	schema, err := adapter.GetSchemaDDL(ctx)
	if err != nil {
		return "", err
	}

	now := a.now()
	today := now.Format(domain.DateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(domain.DateLayout)
	prompt := fmt.Sprintf(sqlPrompt,
		dialectName(adapter.DatabaseType()), today, tomorrow, tomorrow, today,
		adapter.SQLDialect(), schema, question)

	resp, err := a.gateway.Generate(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.System(prompt)},
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return "", err
	}

	query := llm.ExtractSQL(resp.Content)
	log.Info().Str("sql", query).Msg("Executing generated SQL")

	result, err := adapter.ExecuteQuery(ctx, query, mcp.QueryOptions{MaxRows: a.opts.MaxRows, Timeout: a.opts.Timeout})
	if err != nil {
		return "", err
	}
	if len(result.Rows) == 0 {
		return "No results found.", nil
	}

	if !strings.Contains(strings.ToLower(question), "meeting") {
		return FormatGenericRows(result), nil
	}

	cards, ok := FormatMeetingCards(result)
	if ok {
		return cards, nil
	}

	log.Debug().Int("columns", len(result.Columns)).Msg("Rows are not meetings, asking the model to format them")
	formatted, err := a.gateway.Generate(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.System(fmt.Sprintf(formatResultPrompt, query, RawResult(result)))},
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return "", err
	}
	return formatted.Content, nil
}

func dialectName(dbType string) string {
	if name, ok := dialectNames[dbType]; ok {
		return name
	}
	return "SQL"
}

type meetingRow struct {
	title, description, location, start, end, participants any
}

// FormatMeetingCards renders rows as meeting cards. Columns are mapped by name when the
// result has a title or start_time column, else by position for the 7 and 6 column table
// layouts or as (title, start_time) for narrower rows. Results with fewer than two unnamed
// columns are not meetings and yield false.
func FormatMeetingCards(result *mcp.QueryResult) (string, bool) {
	mapper, ok := meetingMapper(result.Columns)
	if !ok {
		return "", false
	}

	cards := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		cards = append(cards, meetingCard(mapper(row)))
	}
	return fmt.Sprintf("Found %d meeting(s):\n\n", len(result.Rows)) + strings.Join(cards, "\n\n"), true
}

func meetingMapper(columns []string) (func([]any) meetingRow, bool) {
	lower := make([]string, len(columns))
	for i, c := range columns {
		lower[i] = strings.ToLower(c)
	}

	if slices.Contains(lower, "title") || slices.Contains(lower, "start_time") {
		return func(row []any) meetingRow {
			get := func(name string) any {
				if i := slices.Index(lower, name); i >= 0 && i < len(row) {
					return row[i]
				}
				return nil
			}
			title := get("title")
			if title == nil {
				title = "Meeting"
			}
			return meetingRow{
				title:        title,
				description:  get("description"),
				location:     get("location"),
				start:        get("start_time"),
				end:          get("end_time"),
				participants: get("participants"),
			}
		}, true
	}

	switch n := len(columns); {
	case n >= len(meetingColumns):
		return func(row []any) meetingRow {
			return meetingRow{title: row[1], description: row[2], location: row[3], start: row[4], end: row[5], participants: row[6]}
		}, true
	case n >= len(legacyMeetingColumns):
		return func(row []any) meetingRow {
			return meetingRow{title: row[1], description: row[2], start: row[3], end: row[4], participants: row[5]}
		}, true
	case n >= 2:
		return func(row []any) meetingRow {
			return meetingRow{title: row[0], start: row[1]}
		}, true
	}
	return nil, false
}

func meetingCard(m meetingRow) string {
	location := ""
	if loc := cellString(m.location); loc != "" {
		location = "\n   Location: " + loc
	}
	return fmt.Sprintf("📅 **%s**\n\n%s%s\n\n%s\n\nParticipants: %s",
		cellString(m.title), TimeRange(m.start, m.end), location, cellString(m.description), cellString(m.participants))
}

// TimeRange renders "Jan 02, 2006 at 03:04 PM to 04:04 PM", or "{start} to {end}" when
// either value is not a timestamp.
func TimeRange(start, end any) string {
	s, err1 := parseRowTime(start)
	e, err2 := parseRowTime(end)
	if err1 != nil || err2 != nil {
		return fmt.Sprintf("%s to %s", cellString(start), cellString(end))
	}
	return fmt.Sprintf("%s to %s", s.Format(cardTimeLayout), e.Format(cardEndLayout))
}

func parseRowTime(v any) (time.Time, error) {
	if t, ok := v.(time.Time); ok {
		return t, nil
	}
	s := strings.Replace(cellString(v), ".000000", "", 1)
	for _, layout := range rowTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("not a timestamp: %q", s)
}

// FormatGenericRows renders every row as a bullet of comma separated values.
func FormatGenericRows(result *mcp.QueryResult) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d result(s):\n\n", len(result.Rows))
	for _, row := range result.Rows {
		values := make([]string, len(row))
		for i, v := range row {
			values[i] = cellString(v)
		}
		fmt.Fprintf(&sb, "• %s\n", strings.Join(values, ", "))
	}
	return sb.String()
}

// RawResult renders rows as a list of tuples for the formatting prompt.
func RawResult(result *mcp.QueryResult) string {
	tuples := make([]string, len(result.Rows))
	for i, row := range result.Rows {
		values := make([]string, len(row))
		for j, v := range row {
			values[j] = cellString(v)
		}
		tuples[i] = "(" + strings.Join(values, ", ") + ")"
	}
	return "[" + strings.Join(tuples, ", ") + "]"
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case time.Time:
		return t.Format(domain.TimeLayout)
	default:
		return fmt.Sprint(t)
	}
}
