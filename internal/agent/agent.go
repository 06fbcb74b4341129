// Package agent holds the request classifier and the four specialized agents.
package agent

import (
	"context"

	"github.com/Sibikrish3000/cr-agent/internal/domain"
	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

// Input is the view of the conversation an agent works on.
type Input struct {
	Messages []llm.Message
	FilePath string
}

// Agent produces the next assistant message of a conversation. Agents that return tool
// calls list the tools they may use in Tools; the others always answer in text.
type Agent interface {
	Kind() domain.Agent
	Tools() []string
	Respond(ctx context.Context, in Input) (llm.Message, error)
}

// ScoreObserver receives the best similarity score of every document search.
type ScoreObserver interface {
	ObserveRAGScore(scope string, score float64)
}
