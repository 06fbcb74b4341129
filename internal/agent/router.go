package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

const routerPrompt = `You are a router. Classify the user query into ONE of these agents:

1. 'weather_agent': ONLY for standalone weather questions (no meeting scheduling).
   Examples: "What's the weather?", "Will it rain tomorrow?"

2. 'meeting_agent': For scheduling/creating NEW meetings OR cancelling/deleting meetings.
   Examples: "Schedule a meeting", "Book a team meeting", "Cancel all meetings", "Unschedule tomorrow's meetings"

3. 'sql_agent': For querying EXISTING meetings (show, list, find).
   Examples: "Show all meetings", "What meetings do I have tomorrow?", "List scheduled meetings"

4. 'doc_agent': For document analysis or general knowledge.
   Examples: "What's in this PDF?", "Explain the policy", "What are AI trends?"

CRITICAL: "Schedule", "book", "cancel", "unschedule", "delete" → meeting_agent, NOT sql_agent!

Return ONLY ONE agent name.`

var (
	meetingCreateVerbs = []string{"schedule", "book", "create"}
	meetingActionVerbs = []string{"schedule", "book", "arrange", "set up", "cancel", "unschedule", "delete", "remove"}
	meetingQueryVerbs  = []string{"show", "list", "display", "find", "get"}
)

// Router picks the agent that handles a request.
type Router struct {
	gateway llm.Gateway
}

// NewRouter creates a router backed by gateway.
func NewRouter(gateway llm.Gateway) *Router {
	return &Router{gateway: gateway}
}

// Classify routes scheduling and cancellation requests by keyword, then asks the model for a
// label and falls back to keywords when the answer names none.
func (r *Router) Classify(ctx context.Context, query string) (domain.Agent, error) {
	if agent, ok := KeywordOverride(query); ok {
		log.Debug().Str("agent", agent.Label()).Msg("Routed by keyword override")
		return agent, nil
	}

	resp, err := r.gateway.Generate(ctx, llm.ChatRequest{
		Messages:    []llm.Message{llm.System(routerPrompt), llm.User(query)},
		Temperature: llm.Temperature(0),
	})
	if err != nil {
		return domain.AgentDoc, fmt.Errorf("failed to classify request: %w", err)
	}

	decision := strings.ToLower(strings.TrimSpace(resp.Content))
	if agent, ok := ParseDecision(decision, query); ok {
		log.Debug().Str("decision", decision).Str("agent", agent.Label()).Msg("Routed by model")
		return agent, nil
	}

	agent := ClassifyByKeywords(query)
	log.Debug().Str("decision", decision).Str("agent", agent.Label()).Msg("Routed by keywords")
	return agent, nil
}

// ParseDecision maps a lower-cased model answer to an agent. The meeting override wins when
// the answer mentions meetings and the user asked to schedule, book or create something.
func ParseDecision(decision, query string) (domain.Agent, bool) {
	q := strings.ToLower(query)
	switch {
	case strings.Contains(decision, "meeting") && containsAny(q, meetingCreateVerbs):
		return domain.AgentMeeting, true
	case strings.Contains(decision, "meeting_agent"):
		return domain.AgentMeeting, true
	case strings.Contains(decision, "weather_agent"):
		return domain.AgentWeather, true
	case strings.Contains(decision, "sql_agent"):
		return domain.AgentSQL, true
	case strings.Contains(decision, "doc_agent"):
		return domain.AgentDoc, true
	}
	return domain.AgentDoc, false
}

// KeywordOverride sends requests to book or cancel meetings to the meeting agent so the
// read-only SQL path never receives them, whatever the model would answer.
func KeywordOverride(query string) (domain.Agent, bool) {
	q := strings.ToLower(query)
	if strings.Contains(q, "meeting") && containsAny(q, meetingActionVerbs) {
		return domain.AgentMeeting, true
	}
	return domain.AgentDoc, false
}

// ClassifyByKeywords routes without a model call.
func ClassifyByKeywords(query string) domain.Agent {
	q := strings.ToLower(query)
	if agent, ok := KeywordOverride(query); ok {
		return agent
	}
	mentionsMeeting := strings.Contains(q, "meeting")
	switch {
	case mentionsMeeting && containsAny(q, meetingQueryVerbs):
		return domain.AgentSQL
	case strings.Contains(q, "weather") && !mentionsMeeting:
		return domain.AgentWeather
	}
	return domain.AgentDoc
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
