package llm

import (
	"context"
	"encoding/json"
)

// Role tags a conversation message
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one role-tagged entry of a conversation
type Message struct {
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	Name       string     `json:"name,omitempty"`
}

// ToolCall is a structured tool invocation requested by the model
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolSpec describes a bindable tool. Parameters is a JSON schema object.
type ToolSpec struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// ChatRequest contains generation parameters
type ChatRequest struct {
	Messages    []Message
	Temperature *float64
	Tools       []ToolSpec
	Model       string
	MaxTokens   int
}

// ChatResponse contains LLM generation result
type ChatResponse struct {
	Content    string
	ToolCalls  []ToolCall
	Provider   string
	Model      string
	TokensUsed int
	LatencyMs  int64
}

// Message converts the response into an assistant message.
func (r *ChatResponse) Message() Message {
	return Message{Role: RoleAssistant, Content: r.Content, ToolCalls: r.ToolCalls}
}

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider identifier
	Name() string

	// AvailableModels returns list of supported models
	AvailableModels() []string

	// DefaultModel returns the default model
	DefaultModel() string

	// IsConfigured checks if provider has valid credentials
	IsConfigured() bool

	// Chat generates a reply, possibly with tool calls
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Gateway is the text generation capability used by agents.
type Gateway interface {
	Generate(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// Temperature returns a pointer for ChatRequest.Temperature.
func Temperature(t float64) *float64 {
	return &t
}

// System builds a system message.
func System(content string) Message {
	return Message{Role: RoleSystem, Content: content}
}

// User builds a user message.
func User(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Assistant builds an assistant message.
func Assistant(content string) Message {
	return Message{Role: RoleAssistant, Content: content}
}

// ToolResult builds a tool message answering call.
func ToolResult(call ToolCall, content string) Message {
	return Message{Role: RoleTool, Content: content, ToolCallID: call.ID, Name: call.Name}
}

// LastUserMessage returns the content of the most recent user message.
func LastUserMessage(messages []Message) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == RoleUser {
			return messages[i].Content
		}
	}
	return ""
}

// SplitSystem separates system instructions from the rest of the conversation,
// for providers that take the system prompt out of band.
func SplitSystem(messages []Message) (string, []Message) {
	var system string
	rest := make([]Message, 0, len(messages))
	for _, m := range messages {
		if m.Role == RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}
