package gemini

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/Sibikrish3000/cr-agent/internal/config"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

type Provider struct {
	apiKey string
	model  string
}

func NewProvider(cfg config.GeminiConfig) *Provider {
	return &Provider{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
	}
}

func (p *Provider) Name() string {
	return "gemini"
}

func (p *Provider) AvailableModels() []string {
	return []string{
		"gemma-3-12b-it",
		"gemini-2.5-flash",
		"gemini-1.5-flash",
		"gemini-1.5-pro",
	}
}

func (p *Provider) DefaultModel() string {
	if p.model != "" {
		return p.model
	}
	return "gemma-3-12b-it"
}

func (p *Provider) IsConfigured() bool {
	return llm.ValidAPIKey(p.apiKey)
}

func (p *Provider) Chat(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	if !p.IsConfigured() {
		return nil, fmt.Errorf("gemini provider is not configured (missing API key)")
	}

	model := req.Model
	if model == "" {
		model = p.DefaultModel()
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(p.apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	defer client.Close()

	generativeModel := client.GenerativeModel(model)
	if req.Temperature != nil {
		temperature := float32(*req.Temperature)
		generativeModel.Temperature = &temperature
	}
	if req.MaxTokens > 0 {
		maxTokens := int32(req.MaxTokens)
		generativeModel.MaxOutputTokens = &maxTokens
	}

	system, rest := llm.SplitSystem(req.Messages)
	if system != "" {
		if supportsSystemInstruction(model) {
			generativeModel.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
		} else {
			rest = append([]llm.Message{llm.User(system)}, rest...)
		}
	}
	if len(rest) == 0 {
		return nil, fmt.Errorf("gemini request has no messages")
	}

	if len(req.Tools) > 0 {
		decls := make([]*genai.FunctionDeclaration, 0, len(req.Tools))
		for _, t := range req.Tools {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  ToSchema(t.Parameters),
			})
		}
		generativeModel.Tools = []*genai.Tool{{FunctionDeclarations: decls}}
	}

	contents := toContents(rest)
	session := generativeModel.StartChat()
	session.History = contents[:len(contents)-1]

	start := time.Now()
	resp, err := session.SendMessage(ctx, contents[len(contents)-1].Parts...)
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return nil, fmt.Errorf("gemini generation error: %w", err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, fmt.Errorf("empty response from gemini")
	}

	out := &llm.ChatResponse{
		Model:     model,
		LatencyMs: latency,
	}
	var text strings.Builder
	for i, part := range resp.Candidates[0].Content.Parts {
		switch v := part.(type) {
		case genai.Text:
			text.WriteString(string(v))
		case genai.FunctionCall:
			args, err := json.Marshal(v.Args)
			if err != nil || v.Args == nil {
				args = []byte("{}")
			}
			out.ToolCalls = append(out.ToolCalls, llm.ToolCall{
				ID:        fmt.Sprintf("call_%d", i),
				Name:      v.Name,
				Arguments: args,
			})
		}
	}
	out.Content = text.String()

	if resp.UsageMetadata != nil {
		out.TokensUsed = int(resp.UsageMetadata.TotalTokenCount)
	}

	return out, nil
}

// gemma models reject system instructions
func supportsSystemInstruction(model string) bool {
	return !strings.HasPrefix(model, "gemma")
}

// toContents maps the conversation to user/model turns, merging adjacent parts with the same role.
func toContents(messages []llm.Message) []*genai.Content {
	var out []*genai.Content
	add := func(role string, part genai.Part) {
		if n := len(out); n > 0 && out[n-1].Role == role {
			out[n-1].Parts = append(out[n-1].Parts, part)
			return
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{part}})
	}

	for _, m := range messages {
		switch m.Role {
		case llm.RoleAssistant:
			if m.Content != "" {
				add("model", genai.Text(m.Content))
			}
			for _, tc := range m.ToolCalls {
				args := map[string]any{}
				_ = json.Unmarshal(tc.Arguments, &args)
				add("model", genai.FunctionCall{Name: tc.Name, Args: args})
			}
		case llm.RoleTool:
			add("user", genai.FunctionResponse{
				Name:     m.Name,
				Response: map[string]any{"result": m.Content},
			})
		default:
			add("user", genai.Text(m.Content))
		}
	}
	return out
}

// ToSchema converts a JSON schema object into a genai schema.
func ToSchema(schema map[string]any) *genai.Schema {
	if schema == nil {
		return nil
	}
	out := &genai.Schema{}
	switch schema["type"] {
	case "object":
		out.Type = genai.TypeObject
	case "array":
		out.Type = genai.TypeArray
	case "integer":
		out.Type = genai.TypeInteger
	case "number":
		out.Type = genai.TypeNumber
	case "boolean":
		out.Type = genai.TypeBoolean
	default:
		out.Type = genai.TypeString
	}
	if d, ok := schema["description"].(string); ok {
		out.Description = d
	}
	if props, ok := schema["properties"].(map[string]any); ok {
		out.Properties = make(map[string]*genai.Schema, len(props))
		for name, raw := range props {
			if sub, ok := raw.(map[string]any); ok {
				out.Properties[name] = ToSchema(sub)
			}
		}
	}
	switch req := schema["required"].(type) {
	case []string:
		out.Required = req
	case []any:
		for _, r := range req {
			if s, ok := r.(string); ok {
				out.Required = append(out.Required, s)
			}
		}
	}
	if items, ok := schema["items"].(map[string]any); ok {
		out.Items = ToSchema(items)
	}
	if enum, ok := schema["enum"].([]string); ok {
		out.Enum = enum
	}
	return out
}
