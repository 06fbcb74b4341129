package agent

import (
	"context"
	"strings"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Sibikrish3000/cr-agent/internal/llm"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) Generate(ctx context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*llm.ChatResponse), args.Error(1)
}

func reply(content string) *llm.ChatResponse {
	return &llm.ChatResponse{Content: content, Provider: "test"}
}

// promptContaining matches a request whose first message contains s.
func promptContaining(s string) any {
	return mock.MatchedBy(func(req llm.ChatRequest) bool {
		return len(req.Messages) > 0 && strings.Contains(req.Messages[0].Content, s)
	})
}

func fixedClock() func() time.Time {
	return func() time.Time { return time.Date(2030, 3, 3, 10, 0, 0, 0, time.Local) }
}
