package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

// Tool names
const (
	CurrentWeatherTool   = "get_current_weather"
	WeatherForecastTool  = "get_weather_forecast"
	WebSearchTool        = "duckduckgo_search"
	ReadDocumentTool     = "read_document"
	IngestDocumentTool   = "ingest_document_to_vector_store"
	SearchVectorTool     = "search_vector_store"
	ScheduleMeetingTool  = "schedule_meeting"
	CancelMeetingsTool   = "cancel_meetings"
	WeatherScheduleTool  = "schedule_meeting_with_weather_check"
	unknownToolResult    = "Error: unknown tool %s"
	invalidArgsResult    = "Error: invalid arguments for %s: %v"
	defaultVectorResults = 3
)

// Tool is a named function the model can call. Call never fails; errors are rendered as text.
type Tool interface {
	Spec() llm.ToolSpec
	Call(ctx context.Context, args json.RawMessage) string
}

// CallObserver is notified after every tool execution.
type CallObserver interface {
	ObserveToolCall(tool string, duration time.Duration)
}

type funcTool[T any] struct {
	spec llm.ToolSpec
	fn   func(ctx context.Context, args T) string
}

// NewTool builds a Tool whose JSON arguments are decoded into T before fn runs.
func NewTool[T any](spec llm.ToolSpec, fn func(ctx context.Context, args T) string) Tool {
	return &funcTool[T]{spec: spec, fn: fn}
}

func (t *funcTool[T]) Spec() llm.ToolSpec {
	return t.spec
}

func (t *funcTool[T]) Call(ctx context.Context, raw json.RawMessage) string {
	var args T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &args); err != nil {
			return fmt.Sprintf(invalidArgsResult, t.spec.Name, err)
		}
	}
	return t.fn(ctx, args)
}

// Registry holds tools by name.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	observer CallObserver
}

// NewRegistry creates a registry with the given tools.
func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool)}
	r.Register(tools...)
	return r
}

// Register adds tools, replacing any with the same name.
func (r *Registry) Register(tools ...Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range tools {
		r.tools[t.Spec().Name] = t
	}
}

// SetObserver installs a CallObserver.
func (r *Registry) SetObserver(o CallObserver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observer = o
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Names returns every registered tool name, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Specs returns the specs of the named tools, skipping unknown names.
func (r *Registry) Specs(names ...string) []llm.ToolSpec {
	specs := make([]llm.ToolSpec, 0, len(names))
	for _, name := range names {
		if t, ok := r.Get(name); ok {
			specs = append(specs, t.Spec())
		}
	}
	return specs
}

// Execute runs a tool call and returns its textual result.
func (r *Registry) Execute(ctx context.Context, call llm.ToolCall) string {
	t, ok := r.Get(call.Name)
	if !ok {
		log.Warn().Str("tool", call.Name).Msg("Unknown tool requested")
		return fmt.Sprintf(unknownToolResult, call.Name)
	}

	start := time.Now()
	result := t.Call(ctx, call.Arguments)
	duration := time.Since(start)

	log.Info().Str("tool", call.Name).Dur("duration", duration).Msg("Tool executed")

	r.mu.RLock()
	observer := r.observer
	r.mu.RUnlock()
	if observer != nil {
		observer.ObserveToolCall(call.Name, duration)
	}

	return result
}

// Dependencies are the backends behind the built-in tools. Nil members leave their tools out.
type Dependencies struct {
	Weather  *WeatherClient
	Search   *WebSearcher
	Vector   *VectorTools
	Meetings *MeetingTools
}

// NewDefaultRegistry registers every built-in tool whose backend is present.
func NewDefaultRegistry(deps Dependencies) *Registry {
	r := NewRegistry()
	if deps.Weather != nil {
		r.Register(weatherTools(deps.Weather)...)
	}
	if deps.Search != nil {
		r.Register(searchTool(deps.Search))
	}
	r.Register(readDocumentTool())
	if deps.Vector != nil {
		r.Register(vectorTools(deps.Vector)...)
	}
	if deps.Meetings != nil {
		r.Register(meetingTools(deps.Meetings)...)
	}
	return r
}

type cityArgs struct {
	City string `json:"city"`
}

type queryArgs struct {
	Query string `json:"query"`
}

type fileArgs struct {
	FilePath string `json:"file_path"`
}

type ingestArgs struct {
	FilePath    string `json:"file_path"`
	DocumentID  string `json:"document_id"`
	IsTemporary *bool  `json:"is_temporary"`
}

type vectorSearchArgs struct {
	Query      string `json:"query"`
	DocumentID string `json:"document_id"`
	TopK       int    `json:"top_k"`
	SearchType string `json:"search_type"`
}

func object(required []string, props map[string]any) map[string]any {
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func prop(typ, description string) map[string]any {
	return map[string]any{"type": typ, "description": description}
}

func jsonResult(v map[string]any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf(`{"error": %q}`, err.Error())
	}
	return string(data)
}

func weatherTools(c *WeatherClient) []Tool {
	params := object([]string{"city"}, map[string]any{"city": prop("string", "City name, e.g. London")})
	return []Tool{
		NewTool(llm.ToolSpec{
			Name:        CurrentWeatherTool,
			Description: "Get the current weather for a specific city. Returns temperature, condition, etc.",
			Parameters:  params,
		}, func(ctx context.Context, a cityArgs) string {
			return jsonResult(c.Current(ctx, a.City))
		}),
		NewTool(llm.ToolSpec{
			Name:        WeatherForecastTool,
			Description: "Get the 5-day weather forecast for a city. Useful for checking future weather.",
			Parameters:  params,
		}, func(ctx context.Context, a cityArgs) string {
			return jsonResult(c.Forecast(ctx, a.City))
		}),
	}
}

func searchTool(s *WebSearcher) Tool {
	return NewTool(llm.ToolSpec{
		Name:        WebSearchTool,
		Description: "Perform a DuckDuckGo search and return relevant results.",
		Parameters:  object([]string{"query"}, map[string]any{"query": prop("string", "Search query")}),
	}, func(ctx context.Context, a queryArgs) string {
		out, err := s.Search(ctx, a.Query)
		if err != nil {
			return SearchFailure(err)
		}
		return out
	})
}

func readDocumentTool() Tool {
	return NewTool(llm.ToolSpec{
		Name:        ReadDocumentTool,
		Description: "Read a PDF, Word, Excel or text document and return its text content.",
		Parameters:  object([]string{"file_path"}, map[string]any{"file_path": prop("string", "Path to the document")}),
	}, func(ctx context.Context, a fileArgs) string {
		text, err := ParseDocument(ctx, a.FilePath)
		if err != nil {
			return fmt.Sprintf("Error reading document: %v", err)
		}
		return text
	})
}

func vectorTools(v *VectorTools) []Tool {
	return []Tool{
		NewTool(llm.ToolSpec{
			Name:        IngestDocumentTool,
			Description: "Ingest a document into the vector store for semantic search. Parses, chunks and embeds the document.",
			Parameters: object([]string{"file_path", "document_id"}, map[string]any{
				"file_path":    prop("string", "Path to the document file"),
				"document_id":  prop("string", "Unique identifier for this document"),
				"is_temporary": prop("boolean", "Store in memory for this session only (default true)"),
			}),
		}, func(ctx context.Context, a ingestArgs) string {
			temporary := a.IsTemporary == nil || *a.IsTemporary
			return v.Ingest(ctx, a.FilePath, a.DocumentID, temporary)
		}),
		NewTool(llm.ToolSpec{
			Name:        SearchVectorTool,
			Description: "Search the vector store for relevant document chunks.",
			Parameters: object([]string{"query"}, map[string]any{
				"query":       prop("string", "Search query text"),
				"document_id": prop("string", "Restrict the search to one document; empty searches all"),
				"top_k":       prop("integer", "Number of results (default 3)"),
				"search_type": map[string]any{
					"type":        "string",
					"enum":        []string{SearchPersistent, SearchTemporary},
					"description": "persistent (default) or temporary for uploaded files",
				},
			}),
		}, func(ctx context.Context, a vectorSearchArgs) string {
			if a.TopK <= 0 {
				a.TopK = defaultVectorResults
			}
			return v.Search(ctx, a.Query, a.DocumentID, a.TopK, a.SearchType)
		}),
	}
}

func meetingTools(m *MeetingTools) []Tool {
	return []Tool{
		NewTool(llm.ToolSpec{
			Name:        ScheduleMeetingTool,
			Description: "Schedule a meeting in the database.",
			Parameters: object([]string{"title", "start_time", "end_time"}, map[string]any{
				"title":        prop("string", "Meeting title"),
				"description":  prop("string", "Meeting description (can include weather info)"),
				"start_time":   prop("string", "Start time in format 'YYYY-MM-DD HH:MM:SS'"),
				"end_time":     prop("string", "End time in format 'YYYY-MM-DD HH:MM:SS'"),
				"participants": prop("string", "Comma-separated list of participant names"),
				"location":     prop("string", "Meeting location"),
			}),
		}, m.Schedule),
		NewTool(llm.ToolSpec{
			Name:        CancelMeetingsTool,
			Description: "Cancel/delete meetings from the database.",
			Parameters: object(nil, map[string]any{
				"date_filter": prop("string", `"all", "today", "tomorrow", or a specific date "YYYY-MM-DD"`),
				"meeting_ids": prop("string", `Optional comma-separated meeting IDs, e.g. "1,2,3"`),
			}),
		}, m.Cancel),
		NewTool(llm.ToolSpec{
			Name:        WeatherScheduleTool,
			Description: "Schedule a meeting after checking weather conditions. Only schedules if the weather is good and the slot is free.",
			Parameters: object([]string{"title", "start_time_str", "end_time_str"}, map[string]any{
				"title":          prop("string", "Meeting title"),
				"start_time_str": prop("string", "Start time in ISO format (YYYY-MM-DDTHH:MM:SS)"),
				"end_time_str":   prop("string", "End time in ISO format (YYYY-MM-DDTHH:MM:SS)"),
				"participants":   prop("string", "Comma-separated list of participants"),
				"city":           prop("string", "City to check weather for"),
			}),
		}, m.ScheduleWithWeatherCheck),
	}
}
