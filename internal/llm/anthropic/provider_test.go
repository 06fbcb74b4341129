package anthropic

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

func TestChat_SplitsSystemAndParsesToolUse(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, apiVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

		_, _ = w.Write([]byte(`{
			"content": [
				{"type": "text", "text": "Checking."},
				{"type": "tool_use", "id": "toolu_1", "name": "get_weather_forecast", "input": {"city": "Oslo"}}
			],
			"usage": {"input_tokens": 10, "output_tokens": 5}
		}`))
	}))
	defer server.Close()

	p := NewProvider("sk-ant-REDACTED", "").WithBaseURL(server.URL)
	resp, err := p.Chat(context.Background(), llm.ChatRequest{
		Messages: []llm.Message{llm.System("You are helpful."), llm.User("forecast for Oslo")},
		Tools:    []llm.ToolSpec{{Name: "get_weather_forecast"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "You are helpful.", captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "user", captured.Messages[0].Role)
	assert.Equal(t, 4096, captured.MaxTokens)
	require.Len(t, captured.Tools, 1)
	assert.Equal(t, "object", captured.Tools[0].InputSchema["type"])

	assert.Equal(t, "Checking.", resp.Content)
	assert.Equal(t, 15, resp.TokensUsed)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "toolu_1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"city":"Oslo"}`, string(resp.ToolCalls[0].Arguments))
}

func TestToAnthropicMessages(t *testing.T) {
	call := llm.ToolCall{ID: "toolu_1", Name: "get_current_weather", Arguments: json.RawMessage(`{"city":"Oslo"}`)}
	msgs := toAnthropicMessages([]llm.Message{
		llm.User("weather?"),
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{call}},
		llm.ToolResult(call, "cold"),
	})

	require.Len(t, msgs, 3)
	assert.Equal(t, "assistant", msgs[1].Role)
	assert.Equal(t, "tool_use", msgs[1].Content[0].Type)
	assert.Equal(t, "user", msgs[2].Role)
	assert.Equal(t, "tool_result", msgs[2].Content[0].Type)
	assert.Equal(t, "toolu_1", msgs[2].Content[0].ToolUseID)
}

func TestChat_SystemOnlyBecomesUserTurn(t *testing.T) {
	var captured anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"content": [{"type": "text", "text": "ok"}]}`))
	}))
	defer server.Close()

	p := NewProvider("sk-ant-REDACTED", "").WithBaseURL(server.URL)
	_, err := p.Chat(context.Background(), llm.ChatRequest{Messages: []llm.Message{llm.System("Classify: hi")}})
	require.NoError(t, err)

	assert.Empty(t, captured.System)
	require.Len(t, captured.Messages, 1)
	assert.Equal(t, "Classify: hi", captured.Messages[0].Content[0].Text)
}
