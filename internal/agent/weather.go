package agent

import (
	"context"
	"fmt"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
	"github.com/Sibikrish3000/cr-agent/internal/tools"
)

// WeatherAgent answers weather questions with the current conditions and forecast tools bound.
type WeatherAgent struct {
	gateway llm.Gateway
	specs   []llm.ToolSpec
}

// NewWeatherAgent binds the weather tools found in registry.
func NewWeatherAgent(gateway llm.Gateway, registry *tools.Registry) *WeatherAgent {
	a := &WeatherAgent{gateway: gateway}
	a.specs = registry.Specs(a.Tools()...)
	return a
}

func (a *WeatherAgent) Kind() domain.Agent {
	return domain.AgentWeather
}

func (a *WeatherAgent) Tools() []string {
	return []string{tools.CurrentWeatherTool, tools.WeatherForecastTool}
}

// Respond runs one generation over the whole conversation. The reply may carry tool calls.
func (a *WeatherAgent) Respond(ctx context.Context, in Input) (llm.Message, error) {
	resp, err := a.gateway.Generate(ctx, llm.ChatRequest{
		Messages:    in.Messages,
		Temperature: llm.Temperature(0),
		Tools:       a.specs,
	})
	if err != nil {
		return llm.Message{}, fmt.Errorf("failed to generate weather answer: %w", err)
	}
	return resp.Message(), nil
}
